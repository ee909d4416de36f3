package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/scenecore/internal/ir"
)

// Recorder writes the engine's trace records to a Store as they happen.
//
// It satisfies the engine's Observer interface. A failed write is logged
// and counted but never interrupts event delivery: losing a trace record
// must not change scene behavior.
type Recorder struct {
	store  *Store
	ctx    context.Context
	logger *slog.Logger

	mu       sync.Mutex
	failures int
	lastErr  error
}

// NewRecorder returns a Recorder writing to s under ctx. A nil logger
// uses slog.Default().
func NewRecorder(ctx context.Context, s *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, ctx: ctx, logger: logger}
}

// CascadeStarted records the cascade.
func (r *Recorder) CascadeStarted(c ir.Cascade) {
	if err := r.store.WriteCascade(r.ctx, c); err != nil {
		r.fail(err, "cascade", c.Token, "seq", c.Seq)
	}
}

// Delivered records the delivery.
func (r *Recorder) Delivered(d ir.Delivery) {
	if err := r.store.WriteDelivery(r.ctx, d); err != nil {
		r.fail(err, "cascade", d.CascadeToken, "seq", d.Seq, "target", d.Target())
	}
}

// Failures returns how many writes failed and the most recent error.
func (r *Recorder) Failures() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures, r.lastErr
}

func (r *Recorder) fail(err error, attrs ...any) {
	r.mu.Lock()
	r.failures++
	r.lastErr = err
	r.mu.Unlock()

	r.logger.Error("trace record dropped", append([]any{"error", err}, attrs...)...)
}
