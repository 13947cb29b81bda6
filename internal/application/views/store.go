package views

import (
	"sync"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
)

// Snapshot is an immutable copy of the coordinator's display state: the
// selection and sharing mode shared by all views plus per-view settings.
type Snapshot struct {
	Version  uint64
	selected []string
	Sharing  prediction.SharingMode
	settings map[Kind]Settings
}

func newSnapshot(settings map[Kind]Settings) Snapshot {
	s := Snapshot{Sharing: prediction.SharingAll, settings: make(map[Kind]Settings, len(AllKinds))}
	def := DefaultSettings()
	for _, k := range AllKinds {
		if v, ok := settings[k]; ok {
			s.settings[k] = v
		} else {
			s.settings[k] = def[k]
		}
	}
	return s
}

// Selected returns the selected subject ids in group order.
func (s Snapshot) Selected() []string { return append([]string(nil), s.selected...) }

// Settings returns the display modes of kind.
func (s Snapshot) Settings(kind Kind) Settings { return s.settings[kind] }

// Filter is the FilterState kind's pipeline runs with.
func (s Snapshot) Filter(kind Kind) prediction.FilterState {
	v := s.settings[kind]
	return prediction.NewFilterState(s.selected, s.Sharing, v.Sort, v.Scale)
}

func (s Snapshot) withSelected(ids []string) Snapshot {
	s.selected = append([]string(nil), ids...)
	return s
}

func (s Snapshot) withSharing(m prediction.SharingMode) Snapshot {
	s.Sharing = m
	return s
}

func (s Snapshot) withSettings(kind Kind, v Settings) Snapshot {
	next := make(map[Kind]Settings, len(s.settings))
	for k, old := range s.settings {
		next[k] = old
	}
	next[kind] = v
	s.settings = next
	return s
}

// Change describes what differs between two snapshots.
type Change struct {
	Selection bool
	Sharing   bool
	Views     []Kind
}

// Diff reports what changed from prev to next.
func Diff(prev, next Snapshot) Change {
	var c Change
	c.Selection = !equalIDs(prev.selected, next.selected)
	c.Sharing = prev.Sharing != next.Sharing
	for _, k := range AllKinds {
		if prev.settings[k] != next.settings[k] {
			c.Views = append(c.Views, k)
		}
	}
	return c
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return !c.Selection && !c.Sharing && len(c.Views) == 0
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Observer is notified after every state change.
type Observer func(prev, next Snapshot)

// Store holds the single writable Snapshot and notifies observers when it
// changes. Observers run synchronously, in subscription order, outside the
// store lock.
type Store struct {
	mu        sync.RWMutex
	state     Snapshot
	observers []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Observer
}

// NewStore starts with an empty selection and the given per-view settings.
func NewStore(settings map[Kind]Settings) *Store {
	return &Store{state: newSnapshot(settings)}
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Update applies fn to the current snapshot. Observers are only notified
// when the result differs. It returns the new snapshot.
func (s *Store) Update(fn func(Snapshot) Snapshot) Snapshot {
	s.mu.Lock()
	prev := s.state
	next := fn(prev)
	if Diff(prev, next).Empty() {
		s.mu.Unlock()
		return prev
	}
	next.Version = prev.Version + 1
	s.state = next
	observers := append([]subscription(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(prev, next)
	}
	return next
}
