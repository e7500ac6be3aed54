package events

import "sync"

// Delivery is one event captured by a Recorder
type Delivery struct {
	Target  string
	Event   string
	Payload any
	Private bool
}

// Recorder is a Broadcaster that keeps every delivery in memory.
// It is safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (r *Recorder) ToRoom(auctionID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Target: auctionID, Event: event, Payload: payload})
}

func (r *Recorder) ToBidder(bidderID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Target: bidderID, Event: event, Payload: payload, Private: true})
}

// Deliveries returns a copy of everything recorded so far
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// Named returns the deliveries of one event
func (r *Recorder) Named(event string) []Delivery {
	var out []Delivery
	for _, d := range r.Deliveries() {
		if d.Event == event {
			out = append(out, d)
		}
	}
	return out
}
