package stat

import "fmt"

// ModifierEntry is one contribution of a set.
type ModifierEntry struct {
	Path     string
	Modifier Modifier
}

// ModifierSet bundles contributions applied and removed together, such as
// the bonuses of an item or a buff.
type ModifierSet struct {
	Name    string
	Entries []ModifierEntry
}

// NewModifierSet creates an empty named set.
func NewModifierSet(name string) *ModifierSet {
	return &ModifierSet{Name: name}
}

// Add appends an entry and returns the set for chaining.
func (ms *ModifierSet) Add(path string, m Modifier) *ModifierSet {
	ms.Entries = append(ms.Entries, ModifierEntry{Path: path, Modifier: m})
	return ms
}

// AddText appends an entry parsed with ParseModifier.
func (ms *ModifierSet) AddText(path, text string) error {
	m, err := ParseModifier(text)
	if err != nil {
		return fmt.Errorf("modifier set %q, path %q: %w", ms.Name, path, err)
	}
	ms.Add(path, m)
	return nil
}

// Len returns the number of entries.
func (ms *ModifierSet) Len() int {
	return len(ms.Entries)
}

// ApplyModifierSet adds every entry in order. If one fails, the entries
// already applied are removed again and the error is returned.
func (a *Accessor) ApplyModifierSet(id EntityID, ms *ModifierSet) error {
	paths := make([]Path, len(ms.Entries))
	for i, e := range ms.Entries {
		p, err := parseModifierPath(e.Path)
		if err != nil {
			return fmt.Errorf("modifier set %q: %w", ms.Name, err)
		}
		paths[i] = p
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, e := range ms.Entries {
		if err := a.addModifier(id, paths[i], e.Modifier); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = a.removeModifier(id, paths[j], ms.Entries[j].Modifier)
			}
			return fmt.Errorf("applying modifier set %q: %w", ms.Name, err)
		}
	}
	return nil
}

// RemoveModifierSet removes every entry in reverse order.
func (a *Accessor) RemoveModifierSet(id EntityID, ms *ModifierSet) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(ms.Entries) - 1; i >= 0; i-- {
		e := ms.Entries[i]
		p, err := parseModifierPath(e.Path)
		if err != nil {
			return fmt.Errorf("modifier set %q: %w", ms.Name, err)
		}
		if err := a.removeModifier(id, p, e.Modifier); err != nil {
			return fmt.Errorf("removing modifier set %q: %w", ms.Name, err)
		}
	}
	return nil
}
