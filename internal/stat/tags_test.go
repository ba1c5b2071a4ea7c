package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDamageRegistry registers damage types (fire, cold, lightning, physical)
// with an "elemental" composite, and weapon types (sword, axe).
func newDamageRegistry(t *testing.T) *TagRegistry {
	t.Helper()
	r := NewTagRegistry()
	r.RegisterPrimaryType("damage")
	for _, n := range []string{"fire", "cold", "lightning", "physical"} {
		_, err := r.RegisterSubtype("damage", n)
		require.NoError(t, err)
	}
	_, err := r.RegisterComposite("damage", "elemental", "fire", "cold", "lightning")
	require.NoError(t, err)

	r.RegisterPrimaryType("weapon")
	for _, n := range []string{"sword", "axe"} {
		_, err := r.RegisterSubtype("weapon", n)
		require.NoError(t, err)
	}
	return r
}

func TestTagRegistry_Bits(t *testing.T) {
	r := newDamageRegistry(t)

	fire, ok := r.Tag("FIRE")
	require.True(t, ok)
	assert.Equal(t, uint32(1), fire)

	axe, _ := r.Tag("axe")
	assert.Equal(t, uint32(32), axe)

	elemental, _ := r.Tag("elemental")
	assert.Equal(t, uint32(7), elemental)

	group, _ := r.GroupMask("damage")
	assert.Equal(t, uint32(15), group)

	name, ok := r.Name("damage", 7)
	require.True(t, ok)
	assert.Equal(t, "elemental", name)

	assert.Equal(t, []string{"fire", "cold", "lightning"}, r.Names(7))
	assert.Equal(t, []string{"damage", "weapon"}, r.Groups())

	g, ok := r.GroupOf("sword")
	require.True(t, ok)
	assert.Equal(t, "weapon", g)
}

func TestTagRegistry_Errors(t *testing.T) {
	r := newDamageRegistry(t)

	_, err := r.RegisterSubtype("armor", "plate")
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = r.RegisterComposite("damage", "mixed", "fire", "sword")
	assert.Error(t, err)

	_, err = r.Mask("fire", "ice")
	assert.ErrorIs(t, err, ErrUnknownTag)

	again, err := r.RegisterSubtype("damage", "fire")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), again)
}

func TestQualifies_Policies(t *testing.T) {
	r := newDamageRegistry(t)

	permissive, err := r.ModifierMask(Permissive, "elemental")
	require.NoError(t, err)
	strict, err := r.ModifierMask(Strict, "elemental")
	require.NoError(t, err)

	fireAxe, _ := r.QueryMask("fire", "axe")
	fire, _ := r.QueryMask("fire")
	physical, _ := r.QueryMask("physical")

	tests := []struct {
		name     string
		modifier uint32
		query    uint32
		want     bool
	}{
		{name: "permissive covers unnamed weapon", modifier: permissive, query: fireAxe, want: true},
		{name: "permissive excludes sibling", modifier: permissive, query: physical, want: false},
		{name: "strict needs exact weapon", modifier: strict, query: fireAxe, want: false},
		{name: "strict matches member", modifier: strict, query: fire, want: true},
		{name: "empty query matches all", modifier: strict, query: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Qualifies(tt.modifier, tt.query))
		})
	}
}

func TestParseBitPolicy(t *testing.T) {
	p, err := ParseBitPolicy("Strict")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = ParseBitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, Permissive, p)

	_, err = ParseBitPolicy("loose")
	assert.Error(t, err)
}
