package engine

import (
	"errors"
	"fmt"
	"strconv"
)

// QuotaEnforcer bounds the number of deliveries per timestamp.
//
// Cyclic routes would otherwise cascade forever. The count restarts
// whenever a delivery carries a different timestamp than the previous one.
type QuotaEnforcer struct {
	maxSteps int
	current  int
	ts       float64
	started  bool
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps deliveries per
// timestamp. Zero or negative disables the bound.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one delivery at ts and fails once the quota is exceeded.
func (q *QuotaEnforcer) Check(cascade string, ts float64) error {
	if !q.started || ts != q.ts {
		q.ts = ts
		q.current = 0
		q.started = true
	}
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Cascade:   cascade,
			Timestamp: ts,
			Steps:     q.current,
			Limit:     q.maxSteps,
		}
	}
	return nil
}

// Reset clears the count.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
	q.started = false
}

// Current returns the deliveries counted for the current timestamp.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the configured limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when one timestamp delivers more events
// than the quota allows.
type StepsExceededError struct {
	Cascade   string
	Timestamp float64
	Steps     int
	Limit     int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("cascade %s exceeded delivery quota at t=%s: %d deliveries > %d limit (cyclic routes?)",
		e.Cascade, strconv.FormatFloat(e.Timestamp, 'g', -1, 64), e.Steps, e.Limit)
}

// RuntimeError converts to the structured form.
func (e *StepsExceededError) RuntimeError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: e.Error(),
		Cascade: e.Cascade,
		Details: map[string]string{
			"steps":     strconv.Itoa(e.Steps),
			"max_steps": strconv.Itoa(e.Limit),
			"timestamp": strconv.FormatFloat(e.Timestamp, 'g', -1, 64),
		},
	}
}

// IsStepsExceededError reports whether err is a *StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
