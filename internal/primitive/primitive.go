// Package primitive provides the built-in meshes that stand in for analytic
// simulator geometry (planes and spheres) and registers them in the mesh pool.
package primitive

import (
	"embed"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/simscene/internal/logger"
	"github.com/Faultbox/simscene/internal/pool"
	"github.com/Faultbox/simscene/pkg/formats"
)

//go:embed data/plane.obj data/sphere.obj
var assets embed.FS

// Kind identifies a built-in primitive.
type Kind int

// Built-in primitives, in pool registration order.
const (
	Plane Kind = iota
	Sphere
)

// Kinds lists every primitive in the order it is placed at the front of the pool.
var Kinds = []Kind{Plane, Sphere}

// String returns the primitive name.
func (k Kind) String() string {
	switch k {
	case Plane:
		return "plane"
	case Sphere:
		return "sphere"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// AssetPath returns the embedded asset path for the primitive.
func (k Kind) AssetPath() string {
	return "data/" + k.String() + ".obj"
}

// LoadError reports a primitive asset that could not be read or parsed.
// A malformed built-in primitive is a packaging defect and is never recovered.
type LoadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s primitive from %s: %v", e.Kind, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Sources holds optional on-disk replacements for the embedded assets.
// An empty path selects the embedded asset.
type Sources struct {
	Plane  string
	Sphere string
}

func (s Sources) path(k Kind) string {
	switch k {
	case Plane:
		return s.Plane
	case Sphere:
		return s.Sphere
	}
	return ""
}

// Load reads the geometry of one primitive. If override is non-empty the
// file at that path is used instead of the embedded asset.
func Load(kind Kind, override string) (*formats.OBJ, error) {
	if override != "" {
		obj, err := formats.LoadOBJ(override)
		if err != nil {
			return nil, &LoadError{Kind: kind, Path: override, Err: err}
		}
		return obj, nil
	}

	data, err := assets.ReadFile(kind.AssetPath())
	if err != nil {
		return nil, &LoadError{Kind: kind, Path: kind.AssetPath(), Err: err}
	}
	obj, err := formats.ParseOBJ(data)
	if err != nil {
		return nil, &LoadError{Kind: kind, Path: kind.AssetPath(), Err: err}
	}
	return obj, nil
}

// Slots maps geometry kinds to pool indices once primitives are registered.
type Slots struct {
	Plane    int
	Sphere   int
	MeshBase int // pool index of simulator mesh asset 0
}

// Register loads every primitive and prepends them to p as one block, plane
// first. Simulator meshes already in p move behind them.
func Register(p *pool.Pool, src Sources) (Slots, error) {
	entries := make([]pool.Entry, 0, len(Kinds))
	for _, k := range Kinds {
		obj, err := Load(k, src.path(k))
		if err != nil {
			return Slots{}, err
		}
		e, err := pool.EntryFromTriangles(k.String(), obj.Vertices, obj.Indices)
		if err != nil {
			return Slots{}, &LoadError{Kind: k, Path: k.AssetPath(), Err: err}
		}
		entries = append(entries, e)

		logger.Debug("primitive loaded",
			zap.Stringer("kind", k),
			zap.Int("vertices", len(e.Vertices)),
			zap.Int("faces", len(e.Faces)),
		)
	}

	if err := p.PrependAll(entries...); err != nil {
		return Slots{}, fmt.Errorf("registering primitives: %w", err)
	}

	slots := Slots{MeshBase: len(Kinds)}
	for i, k := range Kinds {
		switch k {
		case Plane:
			slots.Plane = i
		case Sphere:
			slots.Sphere = i
		}
	}
	return slots, nil
}
