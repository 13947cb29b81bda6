package views

import "sync"

// Surface receives view drawings. Draw adds to whatever the view already
// shows, so every redraw must be preceded by Clear.
type Surface interface {
	Clear(kind Kind)
	Draw(kind Kind, d Drawing)
}

// MemorySurface keeps drawings in memory. It is what the HTTP layer and the
// CLI read frames from.
type MemorySurface struct {
	mu       sync.RWMutex
	drawings map[Kind]Drawing
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{drawings: make(map[Kind]Drawing)}
}

func (s *MemorySurface) Clear(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drawings, kind)
}

func (s *MemorySurface) Draw(kind Kind, d Drawing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.drawings[kind]
	if !ok {
		d.Primitives = append([]Primitive(nil), d.Primitives...)
		s.drawings[kind] = d
		return
	}
	cur.Primitives = append(cur.Primitives, d.Primitives...)
	cur.Width, cur.Height, cur.Legend = d.Width, d.Height, d.Legend
	s.drawings[kind] = cur
}

// Snapshot returns a copy of what kind currently shows.
func (s *MemorySurface) Snapshot(kind Kind) (Drawing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drawings[kind]
	if !ok {
		return Drawing{}, false
	}
	d.Primitives = append([]Primitive(nil), d.Primitives...)
	return d, true
}

// discardSurface drops everything.
type discardSurface struct{}

func (discardSurface) Clear(Kind)         {}
func (discardSurface) Draw(Kind, Drawing) {}
