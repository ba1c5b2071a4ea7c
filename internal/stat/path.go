package stat

import (
	"strconv"
	"strings"
)

const (
	// AliasSeparator splits a stat path from the source alias it is read through.
	AliasSeparator = "@"
	// PartSeparator splits name, part and tag segments.
	PartSeparator = "."
)

// Path addresses a stat or one of its parts: Name[.Part[.Tag]][@Alias].
//
// Examples:
//
//	Life              whole stat
//	Life.Added        one part of a complex stat
//	Damage.Added.7    tagged part, tag is a 32-bit mask
//	Damage.7          tagged query over every part
//	Power.Added@Owner value of Power.Added on the entity bound to Owner
type Path struct {
	Name   string
	Part   string
	Tag    uint32
	HasTag bool
	Alias  string

	// Full is the string the path was parsed from.
	Full string

	badTag string
}

// ParsePath never fails: garbage yields a path with an empty Name.
//
// The alias is split off at the right-most '@'. The alias-first form
// "Owner@Power.Added" is also accepted when the left side has no dot and the
// right side has one; it reconstructs to the canonical "Power.Added@Owner".
func ParsePath(s string) Path {
	p := Path{Full: s}
	base := strings.TrimSpace(s)

	if i := strings.LastIndex(base, AliasSeparator); i >= 0 {
		left, right := base[:i], base[i+1:]
		if !strings.Contains(left, PartSeparator) && strings.Contains(right, PartSeparator) {
			p.Alias = left
			base = right
		} else {
			p.Alias = right
			base = left
		}
	}

	segments := strings.Split(base, PartSeparator)
	p.Name = segments[0]
	if len(segments) < 2 {
		return p
	}

	if tag, ok := parseTag(segments[1]); ok {
		p.Tag, p.HasTag = tag, true
		return p
	}
	p.Part = segments[1]

	if len(segments) > 2 {
		if tag, ok := parseTag(segments[2]); ok {
			p.Tag, p.HasTag = tag, true
		} else {
			p.badTag = segments[2]
		}
	}
	return p
}

func parseTag(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// String reconstructs the canonical Name.Part.Tag@Alias form.
// It is the cache key of the path. A malformed tag segment is kept verbatim,
// so such a path never shares a key with the untagged part.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Part != "" {
		b.WriteString(PartSeparator)
		b.WriteString(p.Part)
	}
	if p.HasTag {
		b.WriteString(PartSeparator)
		b.WriteString(strconv.FormatUint(uint64(p.Tag), 10))
	} else if p.badTag != "" {
		b.WriteString(PartSeparator)
		b.WriteString(p.badTag)
	}
	if p.Alias != "" {
		b.WriteString(AliasSeparator)
		b.WriteString(p.Alias)
	}
	return b.String()
}

// Local drops the alias, addressing the stat on the entity that owns it.
func (p Path) Local() Path {
	p.Alias = ""
	p.Full = ""
	return p
}

// Key is the canonical string of the path without its alias.
func (p Path) Key() string {
	return p.Local().String()
}

// Base addresses the whole stat the path belongs to.
func (p Path) Base() Path {
	return Path{Name: p.Name}
}

// IsBase reports whether the path addresses a whole stat without part or tag.
func (p Path) IsBase() bool {
	return p.Part == "" && !p.HasTag
}

// TaggedPath formats the address of a tagged part, e.g. Damage.Added.5.
// An empty part addresses a query over every part.
func TaggedPath(name, part string, mask uint32) string {
	return Path{Name: name, Part: part, Tag: mask, HasTag: true}.String()
}
