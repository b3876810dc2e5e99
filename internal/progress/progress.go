// Package progress carries (done, total, message) notifications from the
// scanner and engine to whatever renders them.
package progress

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink receives progress. Implementations may be slow; callers reach them
// through a Dispatcher so the hashing path never waits on them.
type Sink interface {
	OnProgress(done, total int, message string)
}

// Func adapts a plain function to Sink.
type Func func(done, total int, message string)

func (f Func) OnProgress(done, total int, message string) {
	f(done, total, message)
}

type nop struct{}

func (nop) OnProgress(int, int, string) {}

// Nop discards every notification.
var Nop Sink = nop{}

type update struct {
	done, total int
	message     string
}

// Dispatcher delivers notifications to a Sink on its own goroutine. Notify
// never blocks: while the sink is busy only the most recent update is kept.
// A panicking sink is logged and does not affect the notifier.
type Dispatcher struct {
	sink   Sink
	logger *zap.Logger

	mu      sync.Mutex
	latest  update
	pending bool

	signal chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDispatcher starts delivering to sink. A nil sink yields a dispatcher
// that drops everything.
func NewDispatcher(sink Sink, logger *zap.Logger) *Dispatcher {
	if sink == nil {
		sink = Nop
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		sink:   sink,
		logger: logger,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

// Notify records an update and returns immediately.
func (d *Dispatcher) Notify(done, total int, message string) {
	d.mu.Lock()
	d.latest = update{done: done, total: total, message: message}
	d.pending = true
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Close flushes the last pending update and stops the delivery goroutine.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.signal:
			d.deliver()
		case <-d.done:
			d.deliver()
			return
		}
	}
}

func (d *Dispatcher) deliver() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	u := d.latest
	d.pending = false
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("progress sink panicked", zap.Any("panic", r))
		}
	}()
	d.sink.OnProgress(u.done, u.total, u.message)
}

// Throttle forwards to sink at most once per interval, always letting the
// final update (done == total) through.
func Throttle(sink Sink, interval time.Duration) Sink {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return Func(func(done, total int, message string) {
		mu.Lock()
		now := time.Now()
		if done != total && now.Sub(last) < interval {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		sink.OnProgress(done, total, message)
	})
}

// FormatETA renders the remaining time for a stage that has processed done
// of total items in elapsed.
func FormatETA(done, total int, elapsed time.Duration) string {
	if done <= 0 || total <= 0 {
		return "unknown"
	}
	perItem := elapsed / time.Duration(done)
	d := perItem * time.Duration(total-done)
	if d <= 0 {
		return "0s"
	}
	secs := d.Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%.0fs", secs)
	case secs < 3600:
		m := int64(secs) / 60
		return fmt.Sprintf("%dm %.0fs", m, secs-float64(m*60))
	default:
		h := int64(secs) / 3600
		rem := secs - float64(h*3600)
		m := int64(rem) / 60
		return fmt.Sprintf("%dh %dm %.0fs", h, m, rem-float64(m*60))
	}
}
