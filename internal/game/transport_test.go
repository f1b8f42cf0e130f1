package game

import "sync"

// delivery is one event as seen by one connection
type delivery struct {
	event   string
	payload any
}

// recordingTransport captures what each connection would have received.
type recordingTransport struct {
	mu       sync.Mutex
	groups   map[string]map[string]bool
	received map[string][]delivery
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		groups:   make(map[string]map[string]bool),
		received: make(map[string][]delivery),
	}
}

func (r *recordingTransport) Emit(connID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received[connID] = append(r.received[connID], delivery{event, payload})
}

func (r *recordingTransport) Broadcast(group, event string, payload any) {
	r.BroadcastExcept(group, "", event, payload)
}

func (r *recordingTransport) BroadcastExcept(group, except, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.groups[group] {
		if id != except {
			r.received[id] = append(r.received[id], delivery{event, payload})
		}
	}
}

func (r *recordingTransport) JoinGroup(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[group] == nil {
		r.groups[group] = make(map[string]bool)
	}
	r.groups[group][connID] = true
}

func (r *recordingTransport) LeaveGroup(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[group], connID)
}

func (r *recordingTransport) inGroup(connID, group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[group][connID]
}

// events lists the event names connID received, in order.
func (r *recordingTransport) events(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.received[connID]))
	for _, d := range r.received[connID] {
		names = append(names, d.event)
	}
	return names
}

func (r *recordingTransport) count(connID, event string) int {
	n := 0
	for _, name := range r.events(connID) {
		if name == event {
			n++
		}
	}
	return n
}

// last returns the payload of the most recent event of that name sent to connID.
func (r *recordingTransport) last(connID, event string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.received[connID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].event == event {
			return list[i].payload, true
		}
	}
	return nil, false
}

func (r *recordingTransport) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = make(map[string][]delivery)
}
