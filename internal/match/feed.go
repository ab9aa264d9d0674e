package match

import "sync"

const feedBuffer = 32

// feed fans snapshots of one room out to its subscribers. A subscriber that
// falls behind loses its oldest queued snapshot, never the newest.
type feed struct {
	mu       sync.Mutex
	watchers map[chan Snapshot]struct{}
	closed   bool
}

func newFeed() *feed {
	return &feed{watchers: map[chan Snapshot]struct{}{}}
}

func (f *feed) publish(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for ch := range f.watchers {
		offer(ch, s)
	}
}

func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func (f *feed) subscribe(initial Snapshot) (chan Snapshot, func()) {
	ch := make(chan Snapshot, feedBuffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- initial
	f.watchers[ch] = struct{}{}
	return ch, func() { f.unsubscribe(ch) }
}

func (f *feed) unsubscribe(ch chan Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchers[ch]; ok {
		delete(f.watchers, ch)
		close(ch)
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.watchers {
		close(ch)
		delete(f.watchers, ch)
	}
}
