package stat

import "errors"

var (
	// ErrInvalidStatPath is returned for empty, aliased or part-less modifier paths.
	ErrInvalidStatPath = errors.New("invalid stat path")
	// ErrExpression is returned when a formula does not compile.
	ErrExpression = errors.New("expression error")
	// ErrEntityNotFound is returned for entities without a stat store.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrStatNotFound is returned when no definition exists for a stat name.
	ErrStatNotFound = errors.New("stat not found")
	// ErrInvalidTagFormat marks a tag segment that is not a 32-bit decimal.
	ErrInvalidTagFormat = errors.New("invalid tag format")
	// ErrMissingSource marks an alias read before it is bound to an entity.
	ErrMissingSource = errors.New("missing source")
	// ErrDependencyCycle marks an edge skipped because it closes a cycle.
	ErrDependencyCycle = errors.New("dependency cycle")
	// ErrNotSettable is returned by Set on a stat that is not flat.
	ErrNotSettable = errors.New("stat is not settable")
	// ErrUnknownTag is returned for tag names missing from the registry.
	ErrUnknownTag = errors.New("unknown tag")
)
