package sensor

import "sync"

// Source is one observable browser condition (visibility, focus, fullscreen).
// Subscribe must not invoke fn synchronously, and the returned function must
// detach fn.
type Source interface {
	Current() bool
	Subscribe(fn func(bool)) (unsubscribe func())
}

// Sources groups the three conditions the sensor watches. A nil field is
// simply not observed.
type Sources struct {
	Visibility Source
	Focus      Source
	Fullscreen Source
}

// Switch is a Source driven by the host environment calling Set.
type Switch struct {
	mu     sync.Mutex
	value  bool
	nextID int
	subs   map[int]func(bool)
}

// NewSwitch returns a Switch holding initial.
func NewSwitch(initial bool) *Switch {
	return &Switch{value: initial, subs: make(map[int]func(bool))}
}

func (s *Switch) Current() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and notifies subscribers when the value changed.
func (s *Switch) Set(v bool) {
	s.mu.Lock()
	if s.value == v {
		s.mu.Unlock()
		return
	}
	s.value = v
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (s *Switch) Subscribe(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of attached listeners.
func (s *Switch) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
