package rendering

import "sync"

// InFlight tracks which resumes are currently being rendered.
type InFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInFlight returns an empty tracker.
func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]struct{})}
}

// Begin marks key as in progress. The returned release must be called when
// generation ends, whatever the outcome; calling it more than once is safe.
func (f *InFlight) Begin(key string) (release func(), err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return nil, ErrGenerationInProgress
	}
	f.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, key)
			f.mu.Unlock()
		})
	}, nil
}

// Active reports whether key is being rendered.
func (f *InFlight) Active(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.active[key]
	return busy
}
