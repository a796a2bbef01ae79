package watch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"priceScope/internal/model"
)

// Sink receives computed price points.
type Sink interface {
	Emit(point model.PricePoint) error
}

// Emitter writes price points to a stream as JSON lines.
type Emitter struct {
	mu     sync.Mutex
	writer *bufio.Writer
}

// NewEmitter wraps w. The caller keeps ownership of the underlying stream.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: bufio.NewWriter(w)}
}

// Emit appends one point and flushes so readers see it immediately.
func (e *Emitter) Emit(point model.PricePoint) error {
	line, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("marshal price point: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(line); err != nil {
		return fmt.Errorf("write price point: %w", err)
	}
	if err := e.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := e.writer.Flush(); err != nil {
		return fmt.Errorf("flush price point: %w", err)
	}

	return nil
}
