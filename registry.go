package textstream

import (
	"log/slog"
	"sync"
)

type subscription struct {
	id uint64
	fn func(State)
}

// Registry fans snapshots out to subscribers. Snapshots are delivered in
// the order they were published, to subscribers in the order they
// subscribed. Only one goroutine delivers at a time; a publish made while
// a delivery pass is running (including from inside a subscriber) is
// queued and delivered by that pass after the current snapshot.
//
// The zero value is ready to use.
type Registry struct {
	// Logger receives subscriber panics. Nil discards them.
	Logger *slog.Logger

	mu         sync.Mutex
	subs       []subscription
	nextID     uint64
	queue      []State
	delivering bool
}

// Subscribe registers fn to receive every future snapshot. The same
// function may be registered more than once. The returned function
// removes this registration only and is safe to call any number of times.
func (r *Registry) Subscribe(fn func(State)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscription{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					// Copy so an in-progress pass keeps its own view.
					subs := make([]subscription, 0, len(r.subs)-1)
					subs = append(subs, r.subs[:i]...)
					r.subs = append(subs, r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Publish queues s and delivers everything queued, unless another call is
// already delivering.
func (r *Registry) Publish(s State) {
	r.Enqueue(s)
	r.Flush()
}

// Enqueue adds s to the delivery queue without delivering it. Callers that
// must fix the order of snapshots under their own lock enqueue under that
// lock and Flush after releasing it.
func (r *Registry) Enqueue(s State) {
	r.mu.Lock()
	r.queue = append(r.queue, s)
	r.mu.Unlock()
}

// Flush delivers queued snapshots until the queue is empty. It returns
// immediately if another goroutine, or an enclosing call on this one, is
// already delivering.
func (r *Registry) Flush() {
	r.mu.Lock()
	if r.delivering {
		r.mu.Unlock()
		return
	}
	r.delivering = true
	for len(r.queue) > 0 {
		s := r.queue[0]
		r.queue = r.queue[1:]
		subs := r.subs
		r.mu.Unlock()

		for _, sub := range subs {
			r.deliver(sub, s)
		}

		r.mu.Lock()
	}
	r.queue = nil
	r.delivering = false
	r.mu.Unlock()
}

func (r *Registry) deliver(sub subscription, s State) {
	defer func() {
		if v := recover(); v != nil && r.Logger != nil {
			r.Logger.Error("subscriber panicked",
				"subscription", sub.id,
				"panic", v,
			)
		}
	}()
	sub.fn(s)
}
