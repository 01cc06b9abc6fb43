package accessguard

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves entries from the engine's hot path to the sink on
// a background goroutine. A failed append is retried, then parked on a
// bounded fallback queue and surfaced on Errors(); entries are only lost
// when the fallback overflows, and that loss is counted.
type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	metrics   *Metrics
	ch        chan AuditEntry
	fallback  []AuditEntry
	fbMu      sync.Mutex
	errs      chan error
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, metrics *Metrics) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		cfg:     cfg,
		sink:    sink,
		metrics: metrics,
		ch:      make(chan AuditEntry, cfg.BufferSize),
		errs:    make(chan error, 16),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.deliver(entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					d.deliver(entry)
				default:
					d.flushFallback()
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) deliver(entry AuditEntry) {
	err := d.appendOnce(entry)
	if err == nil {
		return
	}

	for attempt := 0; attempt < d.cfg.MaxRetries; attempt++ {
		d.metrics.Inc(MetricAuditRetried)
		if err = d.appendOnce(entry); err == nil {
			return
		}
	}

	d.park(entry)
	d.reportError(err)
}

func (d *auditDispatcher) appendOnce(entry AuditEntry) error {
	ctx := context.Background()
	if d.cfg.AppendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AppendTimeout)
		defer cancel()
	}
	return d.sink.Append(ctx, entry)
}

// park stores an undeliverable entry for a later flush attempt. When the
// fallback queue is full the oldest entry gives way and is counted lost.
func (d *auditDispatcher) park(entry AuditEntry) {
	d.fbMu.Lock()
	defer d.fbMu.Unlock()

	if d.cfg.FallbackCapacity > 0 && len(d.fallback) >= d.cfg.FallbackCapacity {
		d.fallback = d.fallback[1:]
		d.dropped.Add(1)
		d.metrics.Inc(MetricAuditDropped)
	}
	d.fallback = append(d.fallback, entry)
	d.metrics.Inc(MetricAuditFallback)
}

// flushFallback retries every parked entry once. Called on Close and from
// FlushFallback.
func (d *auditDispatcher) flushFallback() {
	d.fbMu.Lock()
	pending := d.fallback
	d.fallback = nil
	d.fbMu.Unlock()

	for i, entry := range pending {
		if err := d.appendOnce(entry); err != nil {
			// Still failing: put the remainder back in order.
			d.fbMu.Lock()
			d.fallback = append(pending[i:], d.fallback...)
			d.fbMu.Unlock()
			d.reportError(err)
			return
		}
	}
}

func (d *auditDispatcher) reportError(err error) {
	select {
	case d.errs <- err:
	default:
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, entry AuditEntry) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case d.ch <- entry:
	case <-d.done:
		// Raced with Close after the run loop stopped draining. Park so the
		// entry stays reachable through FlushFallback instead of vanishing.
		d.park(entry)
	default:
		// The queue is saturated. Park rather than block the caller.
		d.park(entry)
	}
}

// Errors exposes append failures to the embedding application. The channel
// is buffered and never blocks the dispatcher.
func (d *auditDispatcher) Errors() <-chan error {
	if d == nil {
		return nil
	}
	return d.errs
}

func (d *auditDispatcher) FlushFallback() {
	if d == nil || d.closed.Load() {
		return
	}
	d.flushFallback()
}

func (d *auditDispatcher) PendingFallback() int {
	if d == nil {
		return 0
	}
	d.fbMu.Lock()
	defer d.fbMu.Unlock()
	return len(d.fallback)
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
