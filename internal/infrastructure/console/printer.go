// Package console prints digests locally.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"ResearchDigest/internal/ports"
)

// Printer writes the digest to a stream. It backs dry runs and the delivery fallback.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Notifier = (*Printer)(nil)

// NewPrinter writes to out, or stdout when out is nil.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out}
}

// Deliver prints the text followed by a newline.
func (p *Printer) Deliver(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.out, text); err != nil {
		return fmt.Errorf("print digest: %w", err)
	}
	return nil
}
