package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// AuditStore implements auditsink.Store on the shared SQLite file.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates an audit store over an opened Store's handle.
func NewAuditStore(s *Store) *AuditStore {
	return &AuditStore{db: s.DB()}
}

// Emit inserts one audit record.
func (s *AuditStore) Emit(ctx context.Context, rec *event.AuditRecord) error {
	var verdictsJSON string
	if len(rec.Verdicts) > 0 {
		data, err := json.Marshal(rec.Verdicts)
		if err != nil {
			return fmt.Errorf("marshal verdicts: %w", err)
		}
		verdictsJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records (id, session_id, stage, action, reason, final_severity, policy_used, retry_count, duration_ns, verdicts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, string(rec.Stage), string(rec.Action), rec.Reason,
		string(rec.FinalSeverity), string(rec.PolicyUsed), rec.RetryCount,
		int64(rec.Duration), verdictsJSON, rec.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Query returns a cursor-paginated page of audit records, newest first. The
// cursor is the created_at nanosecond timestamp of the previous page's last
// record.
func (s *AuditStore) Query(ctx context.Context, filter event.AuditFilter, cursor string, limit int) (*event.AuditPage, error) {
	if limit <= 0 {
		limit = 50
	}

	var args []any
	var conditions []string

	add := func(cond string, val any) {
		conditions = append(conditions, cond)
		args = append(args, val)
	}

	if filter.SessionID != "" {
		add("session_id = ?", filter.SessionID)
	}
	if filter.Stage != "" {
		add("stage = ?", filter.Stage)
	}
	if filter.Action != "" {
		add("action = ?", filter.Action)
	}
	if filter.After != nil {
		add("created_at > ?", filter.After.UnixNano())
	}
	if filter.Before != nil {
		add("created_at < ?", filter.Before.UnixNano())
	}
	if cursor != "" {
		var ns int64
		if _, err := fmt.Sscanf(cursor, "%d", &ns); err != nil {
			return nil, fmt.Errorf("parse cursor: %w", err)
		}
		add("created_at < ?", ns)
	}

	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	fetchSQL := fmt.Sprintf(
		`SELECT id, session_id, stage, action, reason, final_severity, policy_used, retry_count, duration_ns, verdicts, created_at
		 FROM audit_records WHERE %s ORDER BY created_at DESC LIMIT ?`, where)
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, fetchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []event.AuditRecord
	for rows.Next() {
		var rec event.AuditRecord
		var stage, action, severity, policy, verdictsJSON string
		var durationNS, createdNS int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &stage, &action, &rec.Reason,
			&severity, &policy, &rec.RetryCount, &durationNS, &verdictsJSON, &createdNS); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Stage = review.Stage(stage)
		rec.Action = event.Action(action)
		rec.FinalSeverity = review.Severity(severity)
		rec.PolicyUsed = decision.PolicyName(policy)
		rec.Duration = time.Duration(durationNS)
		rec.Timestamp = time.Unix(0, createdNS)
		if verdictsJSON != "" {
			if err := json.Unmarshal([]byte(verdictsJSON), &rec.Verdicts); err != nil {
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
		nextCursor = fmt.Sprintf("%d", records[len(records)-1].Timestamp.UnixNano())
	}

	return &event.AuditPage{
		Records: records,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}
