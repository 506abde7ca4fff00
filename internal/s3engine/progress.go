package s3engine

import (
	"context"
	"io"
	"sync"

	"github.com/dmitrijs2005/photoslot/internal/slot"
)

// gate is the pause/resume latch for a slot's transfer. It is open
// (closed channel) by default; pause swaps in a fresh channel that
// wait blocks on until resume closes it.
type gate struct {
	mu sync.Mutex
	ch chan struct{}
}

func newGate() *gate {
	g := &gate{ch: make(chan struct{})}
	close(g.ch)
	return g
}

func (g *gate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		g.ch = make(chan struct{})
	default:
		// already paused
	}
}

func (g *gate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		// already open
	default:
		close(g.ch)
	}
}

func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// progressReader reports bytes written as the S3 client consumes the
// payload, honoring the pause gate between chunks.
type progressReader struct {
	r       io.Reader
	ctx     context.Context
	gate    *gate
	fileID  string
	total   int64
	written int64
	report  func(slot.Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.gate.wait(p.ctx); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.report(slot.Progress{FileID: p.fileID, Written: p.written, Total: p.total})
	}
	return n, err
}
