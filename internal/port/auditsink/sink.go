// Package auditsink defines the audit emission port (interface).
package auditsink

import (
	"context"
	"errors"

	"github.com/Strob0t/ReviewForge/internal/domain/event"
)

// Sink receives one append-only audit record per decision or skip.
type Sink interface {
	// Emit hands a record to the sink. Emission failures must not change
	// the decision already made; callers log and continue.
	Emit(ctx context.Context, rec *event.AuditRecord) error
}

// Reader queries previously emitted records, cursor-paginated.
type Reader interface {
	Query(ctx context.Context, filter event.AuditFilter, cursor string, limit int) (*event.AuditPage, error)
}

// Store is a sink whose records can be read back.
type Store interface {
	Sink
	Reader
}

// Multi fans one record out to several sinks. Every sink sees every record;
// errors are joined so one failing sink never hides another's.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, rec *event.AuditRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
