package stat

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// BitPolicy decides how a modifier tag fills the bits it does not specify.
type BitPolicy uint8

const (
	// Permissive treats unspecified groups as "any": their bits are set, so
	// "elemental damage" also applies to every weapon type.
	Permissive BitPolicy = iota
	// Strict treats unspecified bits as 0: the modifier applies only to the
	// exact combination given.
	Strict
)

func (p BitPolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "permissive"
}

// ParseBitPolicy accepts "strict" or "permissive" (default for empty input).
func ParseBitPolicy(s string) (BitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, fmt.Errorf("unknown bit policy %q", s)
	}
}

// Qualifies reports whether a modifier with the given effective mask applies
// to a query: every bit the query asks for must be present in the modifier.
func Qualifies(modifier, query uint32) bool {
	return modifier&query == query
}

const maxTagBits = 32

type tagGroup struct {
	name    string
	mask    uint32
	members map[string]uint32 // leaf and composite tags
	order   []string
}

type tagRef struct {
	group *tagGroup
	mask  uint32
}

// TagRegistry maps symbolic tag names to bits. A primary type (group) owns a
// set of subtypes, each a single bit; the group mask is the OR of its members.
// Composites name a union of subtypes inside one group ("elemental").
//
// Not safe for concurrent registration; build it once, then share it.
type TagRegistry struct {
	groups  []*tagGroup
	byGroup map[string]*tagGroup
	tags    map[string]tagRef
	next    int
}

// NewTagRegistry creates an empty registry.
func NewTagRegistry() *TagRegistry {
	return &TagRegistry{
		byGroup: make(map[string]*tagGroup),
		tags:    make(map[string]tagRef),
	}
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterPrimaryType declares a tag group. Registering twice is a no-op.
func (r *TagRegistry) RegisterPrimaryType(group string) {
	key := normalizeTag(group)
	if _, ok := r.byGroup[key]; ok {
		return
	}
	g := &tagGroup{name: group, members: make(map[string]uint32)}
	r.groups = append(r.groups, g)
	r.byGroup[key] = g
}

// RegisterSubtype assigns the next free bit to a tag inside a group.
// Registering an existing tag of the same group returns its bit.
func (r *TagRegistry) RegisterSubtype(group, name string) (uint32, error) {
	g, ok := r.byGroup[normalizeTag(group)]
	if !ok {
		return 0, fmt.Errorf("%w: group %q", ErrUnknownTag, group)
	}
	key := normalizeTag(name)
	if ref, exists := r.tags[key]; exists {
		if ref.group != g {
			return 0, fmt.Errorf("tag %q already registered in group %q", name, ref.group.name)
		}
		return ref.mask, nil
	}
	if r.next >= maxTagBits {
		return 0, fmt.Errorf("registering tag %q: all %d bits are in use", name, maxTagBits)
	}

	bit := uint32(1) << r.next
	r.next++
	g.mask |= bit
	g.members[key] = bit
	g.order = append(g.order, name)
	r.tags[key] = tagRef{group: g, mask: bit}
	return bit, nil
}

// RegisterComposite names the union of existing subtypes of one group.
func (r *TagRegistry) RegisterComposite(group, name string, members ...string) (uint32, error) {
	g, ok := r.byGroup[normalizeTag(group)]
	if !ok {
		return 0, fmt.Errorf("%w: group %q", ErrUnknownTag, group)
	}
	key := normalizeTag(name)
	if _, exists := r.tags[key]; exists {
		return 0, fmt.Errorf("tag %q already registered", name)
	}

	var mask uint32
	for _, m := range members {
		ref, ok := r.tags[normalizeTag(m)]
		if !ok {
			return 0, fmt.Errorf("%w: %q in composite %q", ErrUnknownTag, m, name)
		}
		if ref.group != g {
			return 0, fmt.Errorf("composite %q: tag %q belongs to group %q", name, m, ref.group.name)
		}
		mask |= ref.mask
	}

	g.members[key] = mask
	g.order = append(g.order, name)
	r.tags[key] = tagRef{group: g, mask: mask}
	return mask, nil
}

// Tag returns the mask of a tag or composite, case-insensitive.
func (r *TagRegistry) Tag(name string) (uint32, bool) {
	ref, ok := r.tags[normalizeTag(name)]
	return ref.mask, ok
}

// GroupMask returns the OR of every member of a group.
func (r *TagRegistry) GroupMask(group string) (uint32, bool) {
	g, ok := r.byGroup[normalizeTag(group)]
	if !ok {
		return 0, false
	}
	return g.mask, true
}

// GroupOf returns the group name a tag belongs to.
func (r *TagRegistry) GroupOf(name string) (string, bool) {
	ref, ok := r.tags[normalizeTag(name)]
	if !ok {
		return "", false
	}
	return ref.group.name, true
}

// Name returns the registered name of an exact mask inside a group.
func (r *TagRegistry) Name(group string, mask uint32) (string, bool) {
	g, ok := r.byGroup[normalizeTag(group)]
	if !ok {
		return "", false
	}
	for _, n := range g.order {
		if g.members[normalizeTag(n)] == mask {
			return n, true
		}
	}
	return "", false
}

// Names decomposes a mask into its single-bit tag names, lowest bit first.
func (r *TagRegistry) Names(mask uint32) []string {
	var out []string
	for _, g := range r.groups {
		for _, n := range g.order {
			m := g.members[normalizeTag(n)]
			if bits.OnesCount32(m) == 1 && mask&m != 0 {
				out = append(out, n)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		mi, _ := r.Tag(out[i])
		mj, _ := r.Tag(out[j])
		return mi < mj
	})
	return out
}

// Groups returns group names in registration order.
func (r *TagRegistry) Groups() []string {
	out := make([]string, len(r.groups))
	for i, g := range r.groups {
		out[i] = g.name
	}
	return out
}

// Mask ORs the named tags together.
func (r *TagRegistry) Mask(names ...string) (uint32, error) {
	var mask uint32
	for _, n := range names {
		m, ok := r.Tag(n)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownTag, n)
		}
		mask |= m
	}
	return mask, nil
}

// QueryMask builds a fully specified query tag; nothing is filled.
func (r *TagRegistry) QueryMask(names ...string) (uint32, error) {
	return r.Mask(names...)
}

// ModifierMask builds the effective mask of a modifier tag under a policy.
func (r *TagRegistry) ModifierMask(policy BitPolicy, names ...string) (uint32, error) {
	specified, err := r.Mask(names...)
	if err != nil {
		return 0, err
	}
	return r.Fill(specified, policy), nil
}

// Fill applies a policy to a partially specified mask. Under Permissive,
// every group the mask does not touch is set entirely, as is every bit
// outside any group.
func (r *TagRegistry) Fill(specified uint32, policy BitPolicy) uint32 {
	if policy == Strict {
		return specified
	}
	var touched uint32
	for _, g := range r.groups {
		if g.mask&specified != 0 {
			touched |= g.mask
		}
	}
	return specified | ^touched
}
