package sim

import (
	"errors"
	"fmt"

	"github.com/Faultbox/simscene/pkg/math"
)

// Simulator geometry type codes understood by the exporter.
const (
	CodeSphere = 0
	CodePlane  = 2
	CodeMesh   = 7
)

// ErrUnknownGeometry is returned for type codes outside the exportable set.
var ErrUnknownGeometry = errors.New("unknown geometry type code")

// GeomKind is the closed set of exportable geometry kinds.
type GeomKind int

// Geometry kinds.
const (
	GeomPlane GeomKind = iota
	GeomSphere
	GeomMesh
)

// String returns the kind name.
func (k GeomKind) String() string {
	switch k {
	case GeomPlane:
		return "plane"
	case GeomSphere:
		return "sphere"
	case GeomMesh:
		return "mesh"
	default:
		return fmt.Sprintf("GeomKind(%d)", int(k))
	}
}

// KindFromCode maps a raw simulator type code to a GeomKind.
func KindFromCode(code int) (GeomKind, error) {
	switch code {
	case CodeSphere:
		return GeomSphere, nil
	case CodePlane:
		return GeomPlane, nil
	case CodeMesh:
		return GeomMesh, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownGeometry, code)
	}
}

// UnsupportedGeometryError reports a geom whose type code is outside the
// exportable set.
type UnsupportedGeometryError struct {
	Geom int // geom index in the snapshot
	Code int
	Err  error
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("geom %d: %v", e.Geom, e.Err)
}

func (e *UnsupportedGeometryError) Unwrap() error {
	return e.Err
}

// Geom is one placed geometry instance.
type Geom struct {
	Kind   GeomKind
	MeshID int // simulator mesh asset id, only meaningful for GeomMesh
	Size   [3]float32
	Pos    math.Vec3
	Rot    [3][3]float32 // row-major orientation
}
