package core

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// IDSource hands out order identifiers. Uniqueness is the source's
// responsibility; the book only rejects an identifier that is still resting.
type IDSource interface {
	NextID() OrderID
}

// SequentialIDs generates strictly increasing identifiers. It is
// deterministic, which makes it the natural choice for tests and replays.
type SequentialIDs struct {
	next atomic.Uint64
}

// NewSequentialIDs creates a source whose first identifier is start+1
func NewSequentialIDs(start uint64) *SequentialIDs {
	s := &SequentialIDs{}
	s.next.Store(start)
	return s
}

// NextID returns the next identifier
func (s *SequentialIDs) NextID() OrderID {
	return OrderID(s.next.Add(1))
}

// Current returns the last identifier issued
func (s *SequentialIDs) Current() OrderID {
	return OrderID(s.next.Load())
}

// RandomIDs draws 64-bit identifiers from crypto/rand
type RandomIDs struct{}

// NewRandomIDs creates a random identifier source
func NewRandomIDs() RandomIDs {
	return RandomIDs{}
}

// NextID returns a random identifier. It panics if the system random
// source fails, since no identifier can be produced without it.
func (RandomIDs) NextID() OrderID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("failed to generate random bytes: %v", err))
	}
	return OrderID(binary.BigEndian.Uint64(buf[:]))
}

// IDSourceFunc adapts a function to the IDSource interface
type IDSourceFunc func() OrderID

// NextID calls f
func (f IDSourceFunc) NextID() OrderID {
	return f()
}
