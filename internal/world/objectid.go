package world

import (
	"sync/atomic"

	"github.com/udisondev/statgraph/internal/stat"
)

// EntityKind selects the ID range an entity is allocated from.
type EntityKind uint8

const (
	KindCharacter EntityKind = iota
	KindCreature
	KindItem
)

func (k EntityKind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindCreature:
		return "creature"
	case KindItem:
		return "item"
	default:
		return "unknown"
	}
}

// IDGenerator generates unique entity IDs for every stat owner.
//
// ID ranges (convention):
//
//	0x00000000 - 0x0FFFFFFF: Reserved (0 = invalid)
//	0x10000000 - 0x1FFFFFFF: Characters
//	0x20000000 - 0x2FFFFFFF: Creatures
//	0x30000000 - 0x3FFFFFFF: Items (equipment carrying modifiers)
type IDGenerator struct {
	next [3]atomic.Uint32
}

// NewIDGenerator creates a new ID generator.
func NewIDGenerator() *IDGenerator {
	gen := &IDGenerator{}
	gen.next[KindCharacter].Store(0x10000000)
	gen.next[KindCreature].Store(0x20000000)
	gen.next[KindItem].Store(0x30000000)
	return gen
}

// Next generates the next unique ID of a kind.
// Thread-safe via atomic increment.
func (g *IDGenerator) Next(kind EntityKind) stat.EntityID {
	if int(kind) >= len(g.next) {
		kind = KindCreature
	}
	return stat.EntityID(g.next[kind].Add(1))
}

// KindOf recovers the kind from an ID range.
func KindOf(id stat.EntityID) (EntityKind, bool) {
	switch uint32(id) >> 28 {
	case 1:
		return KindCharacter, true
	case 2:
		return KindCreature, true
	case 3:
		return KindItem, true
	default:
		return 0, false
	}
}
