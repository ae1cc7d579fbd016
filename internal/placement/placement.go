// Package placement turns simulation geoms into scene nodes: a pool mesh index
// plus a column-major world transform.
package placement

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/simscene/internal/logger"
	"github.com/Faultbox/simscene/internal/primitive"
	"github.com/Faultbox/simscene/internal/sim"
	"github.com/Faultbox/simscene/pkg/math"
)

// ErrMeshID is returned when a mesh geom references a mesh asset that does not exist.
var ErrMeshID = errors.New("mesh asset id out of range")

// Node is one placed instance of a pool mesh.
type Node struct {
	Mesh      int
	Transform math.Mat4
}

// Resolve returns the pool index of the mesh drawn for g.
// meshCount is the number of simulator mesh assets.
func Resolve(g sim.Geom, slots primitive.Slots, meshCount int) (int, error) {
	switch g.Kind {
	case sim.GeomSphere:
		return slots.Sphere, nil
	case sim.GeomPlane:
		return slots.Plane, nil
	case sim.GeomMesh:
		if g.MeshID < 0 || g.MeshID >= meshCount {
			return 0, fmt.Errorf("%w: %d of %d", ErrMeshID, g.MeshID, meshCount)
		}
		return slots.MeshBase + g.MeshID, nil
	default:
		return 0, fmt.Errorf("unhandled geometry kind %s", g.Kind)
	}
}

// Build creates one node per geom, in geom order.
func Build(geoms []sim.Geom, slots primitive.Slots, meshCount int) ([]Node, error) {
	nodes := make([]Node, len(geoms))
	for i, g := range geoms {
		mesh, err := Resolve(g, slots, meshCount)
		if err != nil {
			return nil, fmt.Errorf("geom %d: %w", i, err)
		}
		nodes[i] = Node{
			Mesh:      mesh,
			Transform: math.Compose(g.Rot, g.Pos),
		}
	}

	logger.Debug("nodes placed", zap.Int("count", len(nodes)))
	return nodes, nil
}
