package measure

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/catalog"
)

// DefaultWorkers bounds concurrent measurements in an AsyncProbe.
const DefaultWorkers = 4

// AsyncOptions configures an AsyncProbe.
type AsyncOptions struct {
	Workers int // concurrent measurements; 0 selects DefaultWorkers
	Buffer  int // report channel capacity
	Logger  *log.Logger
}

// AsyncProbe turns a synchronous Measurer into a Probe. Each request is
// measured on its own goroutine, at most Workers at a time, and the result
// is published on Reports in completion order. A request whose measurement
// fails produces no report.
type AsyncProbe struct {
	m       Measurer
	logger  *log.Logger
	sem     chan struct{}
	reports chan catalog.Report

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncProbe starts a probe backed by m. Cancelling ctx stops pending
// measurements; Close must still be called to release the channel.
func NewAsyncProbe(ctx context.Context, m Measurer, opts AsyncOptions) *AsyncProbe {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	ctx, cancel := context.WithCancel(ctx)
	return &AsyncProbe{
		m:       m,
		logger:  opts.Logger,
		sem:     make(chan struct{}, opts.Workers),
		reports: make(chan catalog.Report, opts.Buffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Reports returns the channel on which measurements are published. It is
// closed by Close.
func (p *AsyncProbe) Reports() <-chan catalog.Report { return p.reports }

// Request schedules a measurement. It never blocks. Requests made after
// Close are dropped.
func (p *AsyncProbe) Request(req Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.wg.Add(1)
	go p.run(req)
}

func (p *AsyncProbe) run(req Request) {
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		return
	}
	h, err := p.m.MeasureCaption(p.ctx, req.Text, req.Width)
	<-p.sem
	if err != nil {
		if p.ctx.Err() == nil {
			p.logger.Warn("caption probe failed", "id", req.ID, "error", err)
		}
		return
	}

	select {
	case p.reports <- req.Report(h):
	case <-p.ctx.Done():
	}
}

// Close cancels outstanding measurements, waits for them to exit, and
// closes the reports channel.
func (p *AsyncProbe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.reports)
	return nil
}
