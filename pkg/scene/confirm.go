package scene

import "fmt"

// Confirmer gates large full-state transfers. It is asked before a Resync
// response of size bytes is sent; human is size formatted for display.
type Confirmer interface {
	ConfirmResync(size int, human string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(size int, human string) bool

// ConfirmResync calls f.
func (f ConfirmFunc) ConfirmResync(size int, human string) bool { return f(size, human) }

// AutoConfirm approves every transfer.
type AutoConfirm struct{}

// ConfirmResync always returns true.
func (AutoConfirm) ConfirmResync(int, string) bool { return true }

// ThresholdConfirm approves transfers up to Limit bytes. Larger transfers
// are passed to Prompt, or refused when Prompt is nil. A non-positive Limit
// approves everything.
type ThresholdConfirm struct {
	Limit  int
	Prompt Confirmer
}

// ConfirmResync implements Confirmer.
func (t ThresholdConfirm) ConfirmResync(size int, human string) bool {
	if t.Limit <= 0 || size <= t.Limit {
		return true
	}
	if t.Prompt == nil {
		return false
	}
	return t.Prompt.ConfirmResync(size, human)
}

// HumanSize formats a byte count with binary units, e.g. "1.50 MiB".
func HumanSize(size int) string {
	switch {
	case size > 1<<30:
		return fmt.Sprintf("%.2f GiB", float64(size)/(1<<30))
	case size > 1<<20:
		return fmt.Sprintf("%.2f MiB", float64(size)/(1<<20))
	case size > 1<<10:
		return fmt.Sprintf("%.2f kiB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
