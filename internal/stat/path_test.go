package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in        string
		name      string
		part      string
		tag       uint32
		hasTag    bool
		alias     string
		canonical string
	}{
		{in: "Life", name: "Life", canonical: "Life"},
		{in: "Life.Added", name: "Life", part: "Added", canonical: "Life.Added"},
		{in: "Damage.Added.7", name: "Damage", part: "Added", tag: 7, hasTag: true, canonical: "Damage.Added.7"},
		{in: "Damage.7", name: "Damage", tag: 7, hasTag: true, canonical: "Damage.7"},
		{in: "Power.Added@Owner", name: "Power", part: "Added", alias: "Owner", canonical: "Power.Added@Owner"},
		{in: "Owner@Power.Added", name: "Power", part: "Added", alias: "Owner", canonical: "Power.Added@Owner"},
		{in: "Power@Src", name: "Power", alias: "Src", canonical: "Power@Src"},
		{in: "Damage.Added.4294967295@Src", name: "Damage", part: "Added", tag: 4294967295, hasTag: true, alias: "Src", canonical: "Damage.Added.4294967295@Src"},
		{in: "", name: "", canonical: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := ParsePath(tt.in)
			assert.Equal(t, tt.name, p.Name)
			assert.Equal(t, tt.part, p.Part)
			assert.Equal(t, tt.tag, p.Tag)
			assert.Equal(t, tt.hasTag, p.HasTag)
			assert.Equal(t, tt.alias, p.Alias)
			assert.Equal(t, tt.canonical, p.String())
			assert.Equal(t, tt.canonical, ParsePath(p.String()).String(), "round trip")
		})
	}
}

func TestParsePath_BadTag(t *testing.T) {
	p := ParsePath("Damage.Added.fire")
	assert.Equal(t, "Damage", p.Name)
	assert.Equal(t, "Added", p.Part)
	assert.False(t, p.HasTag)
	assert.Equal(t, "fire", p.badTag)
	assert.Equal(t, "Damage.Added.fire", p.String())
}

func TestParsePath_TagOverflow(t *testing.T) {
	p := ParsePath("Damage.4294967296")
	assert.False(t, p.HasTag)
	assert.Equal(t, "4294967296", p.Part)
}

func TestPath_Helpers(t *testing.T) {
	p := ParsePath("Damage.Added.3@Src")

	assert.Equal(t, "Damage.Added.3", p.Key())
	assert.Equal(t, "Damage", p.Base().String())
	assert.False(t, p.IsBase())
	assert.True(t, ParsePath("Damage").IsBase())
	assert.Equal(t, "", p.Local().Alias)

	assert.Equal(t, "Damage.Added.5", TaggedPath("Damage", "Added", 5))
	assert.Equal(t, "Damage.5", TaggedPath("Damage", "", 5))
}
