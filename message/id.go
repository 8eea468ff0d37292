package message

import "sync/atomic"

// IDSource hands out request ids. The first id is 1; ids are never reused or reset.
// The zero value is ready to use. Create one per process and share it.
type IDSource struct {
	last atomic.Int64
}

func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns the next id. Safe for concurrent use.
func (s *IDSource) Next() int64 {
	return s.last.Add(1)
}

// Last returns the most recently issued id, 0 if none.
func (s *IDSource) Last() int64 {
	return s.last.Load()
}
