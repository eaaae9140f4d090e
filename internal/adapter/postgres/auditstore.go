package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// AuditStore implements auditsink.Store on PostgreSQL (append-only).
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an audit store backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Emit inserts one audit record. Records are never updated or deleted.
func (s *AuditStore) Emit(ctx context.Context, rec *event.AuditRecord) error {
	var verdictsJSON []byte
	if len(rec.Verdicts) > 0 {
		var err error
		verdictsJSON, err = json.Marshal(rec.Verdicts)
		if err != nil {
			return fmt.Errorf("marshal verdicts: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_records (id, session_id, stage, action, reason, final_severity, policy_used, retry_count, duration_ns, verdicts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.SessionID, string(rec.Stage), string(rec.Action), rec.Reason,
		string(rec.FinalSeverity), string(rec.PolicyUsed), rec.RetryCount,
		int64(rec.Duration), verdictsJSON, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// auditColumns is the SELECT column list for audit_records queries.
const auditColumns = `id, session_id, stage, action, reason, final_severity, policy_used, retry_count, duration_ns, verdicts, created_at`

// Query returns a cursor-paginated page of audit records, newest first.
func (s *AuditStore) Query(ctx context.Context, filter event.AuditFilter, cursor string, limit int) (*event.AuditPage, error) {
	if limit <= 0 {
		limit = 50
	}

	var args []any
	var conditions []string
	argIdx := 1

	add := func(cond string, val any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, val)
		argIdx++
	}

	if filter.SessionID != "" {
		add("session_id = $%d", filter.SessionID)
	}
	if filter.Stage != "" {
		add("stage = $%d", filter.Stage)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.After != nil {
		add("created_at > $%d", *filter.After)
	}
	if filter.Before != nil {
		add("created_at < $%d", *filter.Before)
	}
	if cursor != "" {
		// Cursor is the created_at of the last record on the previous page.
		ts, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, fmt.Errorf("parse cursor: %w", err)
		}
		add("created_at < $%d", ts)
	}

	where := "true"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	fetchSQL := fmt.Sprintf(
		`SELECT %s FROM audit_records WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		auditColumns, where, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, fetchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []event.AuditRecord
	for rows.Next() {
		var rec event.AuditRecord
		var stage, action, severity, policy string
		var durationNS int64
		var verdictsJSON []byte
		if err := rows.Scan(&rec.ID, &rec.SessionID, &stage, &action, &rec.Reason,
			&severity, &policy, &rec.RetryCount, &durationNS, &verdictsJSON, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Stage = review.Stage(stage)
		rec.Action = event.Action(action)
		rec.FinalSeverity = review.Severity(severity)
		rec.PolicyUsed = decision.PolicyName(policy)
		rec.Duration = time.Duration(durationNS)
		if verdictsJSON != nil {
			if err := json.Unmarshal(verdictsJSON, &rec.Verdicts); err != nil {
				return nil, fmt.Errorf("unmarshal verdicts: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}

	var nextCursor string
	if hasMore && len(records) > 0 {
		nextCursor = records[len(records)-1].Timestamp.Format(time.RFC3339Nano)
	}

	return &event.AuditPage{
		Records: records,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}
