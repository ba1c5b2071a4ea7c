package world

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/udisondev/statgraph/internal/stat"
)

var (
	ErrNameTaken     = errors.New("entity name already in use")
	ErrUnknownEntity = errors.New("unknown entity")
)

// Entity is a named stat owner living in the world.
type Entity struct {
	ID   stat.EntityID
	Kind EntityKind
	Name string
}

// World is the host object model of the stat engine: it owns entity
// identity and forwards lifecycle events (spawn, despawn, link) to the
// Accessor.
//
// Thread-safe: the name index is guarded by a mutex; the Accessor has its own.
type World struct {
	ids   *IDGenerator
	stats *stat.Accessor

	mu     sync.RWMutex
	byID   map[stat.EntityID]Entity
	byName map[string]stat.EntityID
}

// New creates a world over an accessor.
func New(stats *stat.Accessor) *World {
	return &World{
		ids:    NewIDGenerator(),
		stats:  stats,
		byID:   make(map[stat.EntityID]Entity),
		byName: make(map[string]stat.EntityID),
	}
}

// Stats returns the accessor entities are registered with.
func (w *World) Stats() *stat.Accessor {
	return w.stats
}

// Spawn allocates an ID, registers the name and creates the stat store.
func (w *World) Spawn(kind EntityKind, name string) (Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.byName[name]; ok {
		return Entity{}, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}

	e := Entity{ID: w.ids.Next(kind), Kind: kind, Name: name}
	w.byID[e.ID] = e
	w.byName[name] = e.ID
	w.stats.InsertEntity(e.ID)

	slog.Debug("entity spawned", "id", e.ID, "kind", kind, "name", name)
	return e, nil
}

// Despawn removes an entity and tears down its stats. Entities reading
// from it see 0 until linked to something else.
func (w *World) Despawn(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, ok := w.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	if err := w.stats.RemoveStatEntity(id); err != nil {
		return fmt.Errorf("despawning %q: %w", name, err)
	}
	delete(w.byName, name)
	delete(w.byID, id)

	slog.Debug("entity despawned", "id", id, "name", name)
	return nil
}

// Link makes owner read source's stats through alias, e.g. an item
// reading its wielder as "Owner".
func (w *World) Link(owner, alias, source string) error {
	w.mu.RLock()
	ownerID, ok := w.byName[owner]
	sourceID, ok2 := w.byName[source]
	w.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, owner)
	}
	if !ok2 {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, source)
	}
	return w.stats.RegisterSource(ownerID, alias, sourceID)
}

// Unlink drops an alias binding of owner.
func (w *World) Unlink(owner, alias string) error {
	id, err := w.Lookup(owner)
	if err != nil {
		return err
	}
	return w.stats.UnregisterSource(id, alias)
}

// Lookup resolves a name to its ID.
func (w *World) Lookup(name string) (stat.EntityID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	id, ok := w.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return id, nil
}

// Entity returns the entity with an ID.
func (w *World) Entity(id stat.EntityID) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.byID[id]
	return e, ok
}

// Entities returns every live entity ordered by ID.
func (w *World) Entities() []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Entity, 0, len(w.byID))
	for _, e := range w.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
