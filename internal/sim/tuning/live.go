package tuning

import "sync"

// LiveOverrides is an Overrides set that can be changed by the admin API while
// the world loop reads it.
type LiveOverrides struct {
	mu   sync.RWMutex
	base Provider
	o    Overrides
}

func NewLiveOverrides(base Provider, initial Overrides) *LiveOverrides {
	l := &LiveOverrides{base: base, o: Overrides{}}
	for k, v := range initial {
		l.o[k] = v
	}
	return l
}

func (l *LiveOverrides) Bool(key string) (bool, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.o.Bool(key)
}

func (l *LiveOverrides) Number(key string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.o.Number(key)
}

func (l *LiveOverrides) Strings(key string) ([]string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.o.Strings(key)
}

// Set validates against the base the overrides were created with.
func (l *LiveOverrides) Set(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.o.Set(l.base, key, value)
}

func (l *LiveOverrides) Delete(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.o[key]
	delete(l.o, key)
	return ok
}

func (l *LiveOverrides) Snapshot() Overrides {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(Overrides, len(l.o))
	for k, v := range l.o {
		out[k] = v
	}
	return out
}

// Provider layers the live values over the base.
func (l *LiveOverrides) Provider() Layered { return Layered{Over: l, Base: l.base} }
