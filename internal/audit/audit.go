// Package audit holds the sinks that gate terminal states are recorded to.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

// Writer writes one "AUDIT: {json}" line per record.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{w: w}
}

func (l *Writer) Record(_ context.Context, rec models.AuditRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(append([]byte("AUDIT: "), b...), '\n'))
	return err
}

// Ring keeps the last N records in memory.
type Ring struct {
	mu   sync.Mutex
	buf  []models.AuditRecord
	next int
	full bool
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = 256
	}
	return &Ring{buf: make([]models.AuditRecord, size)}
}

func (r *Ring) Record(_ context.Context, rec models.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *Ring) Recent(_ context.Context, limit int) ([]models.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.AuditRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, r.buf[(r.next-i+len(r.buf))%len(r.buf)])
	}
	return out, nil
}

// Multi records to every sink and joins their errors.
type Multi []service.AuditSink

func (m Multi) Record(ctx context.Context, rec models.AuditRecord) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
