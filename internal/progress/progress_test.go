package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []update
	delay time.Duration
}

func (r *recordingSink) OnProgress(done, total int, message string) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, update{done: done, total: total, message: message})
}

func (r *recordingSink) last() (update, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return update{}, 0
	}
	return r.calls[len(r.calls)-1], len(r.calls)
}

func TestDispatcherDeliversLatest(t *testing.T) {
	sink := &recordingSink{delay: time.Millisecond}
	d := NewDispatcher(sink, nil)

	start := time.Now()
	for i := 1; i <= 500; i++ {
		d.Notify(i, 500, "hashing")
	}
	// Notify must not wait on a slow sink.
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	d.Close()

	last, n := sink.last()
	assert.Equal(t, 500, last.done)
	assert.Equal(t, 500, last.total)
	assert.Equal(t, "hashing", last.message)
	assert.LessOrEqual(t, n, 500)
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	calls := 0
	d := NewDispatcher(Func(func(int, int, string) {
		calls++
		panic("boom")
	}), nil)

	assert.NotPanics(t, func() {
		d.Notify(1, 2, "a")
		d.Notify(2, 2, "b")
		d.Close()
	})
	assert.GreaterOrEqual(t, calls, 1)
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Notify(1, 1, "")
	d.Close()
	assert.NotPanics(t, d.Close)
	assert.NotPanics(t, func() { d.Notify(2, 2, "") })
}

func TestThrottle(t *testing.T) {
	sink := &recordingSink{}
	th := Throttle(sink, time.Hour)

	th.OnProgress(1, 10, "")
	th.OnProgress(2, 10, "")
	th.OnProgress(3, 10, "")
	th.OnProgress(10, 10, "")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if assert.Len(t, sink.calls, 2) {
		assert.Equal(t, 1, sink.calls[0].done)
		assert.Equal(t, 10, sink.calls[1].done)
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		done, total int
		elapsed     time.Duration
		want        string
	}{
		{0, 10, time.Second, "unknown"},
		{10, 10, time.Second, "0s"},
		{50, 100, 50 * time.Second, "50s"},
		{1, 3, time.Minute, "2m 0s"},
		{10, 100, 10 * time.Minute, "1h 30m 0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatETA(tt.done, tt.total, tt.elapsed))
	}
}
