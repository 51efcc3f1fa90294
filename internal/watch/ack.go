package watch

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// KeyAck acknowledges by reading a line (typically Enter on stdin). A single
// pump goroutine owns the reader; Wait is cancellable without losing input.
type KeyAck struct {
	r       io.Reader
	once    sync.Once
	signals chan struct{}
}

// NewKeyAck creates a KeyAck reading from r.
func NewKeyAck(r io.Reader) *KeyAck {
	return &KeyAck{r: r, signals: make(chan struct{}, 1)}
}

// Wait implements AckWaiter. It returns io.EOF once the reader is exhausted.
func (k *KeyAck) Wait(ctx context.Context) error {
	k.once.Do(func() { go k.pump() })
	select {
	case _, ok := <-k.signals:
		if !ok {
			return io.EOF
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KeyAck) pump() {
	scanner := bufio.NewScanner(k.r)
	for scanner.Scan() {
		select {
		case k.signals <- struct{}{}:
		default:
		}
	}
	close(k.signals)
}
