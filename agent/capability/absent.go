package capability

import (
	"context"
	"time"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

// Absent never produces text.
type Absent struct{}

func (Absent) Invoke(context.Context, string, string) (string, error) {
	return "", contractx.ErrCapabilityAbsent
}

type timeoutCapability struct {
	next    contractx.TextCapability
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. A non-positive d returns next
// unchanged.
func WithTimeout(next contractx.TextCapability, d time.Duration) contractx.TextCapability {
	if next == nil || d <= 0 {
		return next
	}
	return &timeoutCapability{next: next, timeout: d}
}

func (t *timeoutCapability) Invoke(ctx context.Context, prompt string, tag string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Invoke(ctx, prompt, tag)
}
