package game

import (
	"sync"
	"time"
)

// tickFunc hands a tick to the controller. It returns false once the tick can
// no longer be delivered (timer cancelled or controller stopped).
type tickFunc func(code string, gen uint64, stop <-chan struct{}) bool

// turnTimer is the countdown owned by a single room. gen identifies this
// particular arming so that ticks from a superseded timer can be recognised.
type turnTimer struct {
	code string
	gen  uint64
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startTurnTimer(code string, gen uint64, every time.Duration, tick tickFunc) *turnTimer {
	t := &turnTimer{
		code: code,
		gen:  gen,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(every, tick)
	return t
}

func (t *turnTimer) run(every time.Duration, tick tickFunc) {
	defer close(t.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if !tick(t.code, t.gen, t.stop) {
				return
			}
		}
	}
}

// cancel stops the countdown. Safe to call more than once.
func (t *turnTimer) cancel() {
	t.once.Do(func() { close(t.stop) })
}
