package trade

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator issues transaction identifiers. Identifiers must stay unique
// across rapid calls within the same millisecond.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues time-ordered UUIDv7 identifiers. Version 7 embeds a
// millisecond timestamp plus random bits, so ids sort by creation time and
// do not collide within a millisecond.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// SequenceGenerator issues prefix-1, prefix-2, ... from a monotonic counter.
type SequenceGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceGenerator creates a counter-backed generator.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
