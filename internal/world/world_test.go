package world

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/statgraph/internal/stat"
)

func TestIDGenerator_Ranges(t *testing.T) {
	gen := NewIDGenerator()

	c := gen.Next(KindCharacter)
	m := gen.Next(KindCreature)
	i := gen.Next(KindItem)

	assert.Equal(t, stat.EntityID(0x10000001), c)
	assert.Equal(t, stat.EntityID(0x20000001), m)
	assert.Equal(t, stat.EntityID(0x30000001), i)

	for id, want := range map[stat.EntityID]EntityKind{c: KindCharacter, m: KindCreature, i: KindItem} {
		kind, ok := KindOf(id)
		require.True(t, ok)
		assert.Equal(t, want, kind)
	}
	_, ok := KindOf(0)
	assert.False(t, ok)
}

func TestIDGenerator_Concurrent(t *testing.T) {
	gen := NewIDGenerator()

	var (
		mu   sync.Mutex
		seen = make(map[stat.EntityID]struct{})
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				id := gen.Next(KindItem)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 800)
}

func TestWorld_Lifecycle(t *testing.T) {
	w := New(stat.NewAccessor(nil))

	hero, err := w.Spawn(KindCharacter, "hero")
	require.NoError(t, err)
	sword, err := w.Spawn(KindItem, "sword")
	require.NoError(t, err)

	_, err = w.Spawn(KindItem, "sword")
	assert.ErrorIs(t, err, ErrNameTaken)

	acc := w.Stats()
	require.NoError(t, acc.AddModifier(hero.ID, "Strength", stat.Literal(20)))
	require.NoError(t, acc.AddModifier(sword.ID, "Damage", stat.MustFormula("Strength@Owner * 2")))

	require.NoError(t, w.Link("sword", "Owner", "hero"))
	assert.Equal(t, 40.0, acc.Get(sword.ID, "Damage"))

	require.NoError(t, w.Despawn("hero"))
	assert.Equal(t, 0.0, acc.Get(sword.ID, "Damage"))
	assert.False(t, acc.HasEntity(hero.ID))

	_, err = w.Lookup("hero")
	assert.ErrorIs(t, err, ErrUnknownEntity)
	assert.ErrorIs(t, w.Despawn("hero"), ErrUnknownEntity)
	assert.ErrorIs(t, w.Link("sword", "Owner", "hero"), ErrUnknownEntity)

	entities := w.Entities()
	require.Len(t, entities, 1)
	assert.Equal(t, "sword", entities[0].Name)
}

func TestWorld_Unlink(t *testing.T) {
	w := New(stat.NewAccessor(nil))
	hero, err := w.Spawn(KindCharacter, "hero")
	require.NoError(t, err)
	ring, err := w.Spawn(KindItem, "ring")
	require.NoError(t, err)

	acc := w.Stats()
	require.NoError(t, acc.Set(hero.ID, "Level", 7))
	require.NoError(t, w.Link("ring", "Owner", "hero"))
	require.NoError(t, acc.AddModifier(ring.ID, "Power", stat.MustFormula("Level@Owner + 1")))
	assert.Equal(t, 8.0, acc.Get(ring.ID, "Power"))

	require.NoError(t, w.Unlink("ring", "Owner"))
	assert.Equal(t, 1.0, acc.Get(ring.ID, "Power"))

	e, ok := w.Entity(ring.ID)
	require.True(t, ok)
	assert.Equal(t, KindItem, e.Kind)
}
