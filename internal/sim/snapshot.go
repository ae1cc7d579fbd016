// Package sim describes one instant of a physics simulation as seen by the exporter:
// the static mesh and geom tables of the model plus the world pose of every geom.
package sim

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/simscene/pkg/math"
)

// ErrSnapshotShape is returned when per-geom or per-mesh arrays disagree in length.
var ErrSnapshotShape = errors.New("snapshot arrays have inconsistent lengths")

// Model holds the static tables of the simulated model.
type Model struct {
	MeshVert    [][3]float32 `yaml:"mesh_vert"`
	MeshFace    [][3]uint32  `yaml:"mesh_face"`
	MeshVertAdr []int        `yaml:"mesh_vertadr"`
	MeshFaceAdr []int        `yaml:"mesh_faceadr"`
	GeomType    []int        `yaml:"geom_type"`
	GeomDataID  []int        `yaml:"geom_dataid"`
	GeomSize    [][3]float32 `yaml:"geom_size"`
}

// State holds the world pose of every geom at one instant.
type State struct {
	GeomXPos [][3]float32    `yaml:"geom_xpos"`
	GeomXMat [][3][3]float32 `yaml:"geom_xmat"` // row-major
}

// Snapshot is a model together with one state.
type Snapshot struct {
	Model Model `yaml:"model"`
	State State `yaml:"state"`
}

// LoadSnapshot reads a YAML (or JSON) snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return snap, nil
}

// ParseSnapshot decodes and validates a snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// NumGeoms returns the number of geoms in the model.
func (s *Snapshot) NumGeoms() int {
	return len(s.Model.GeomType)
}

// NumMeshes returns the number of mesh assets in the model.
func (s *Snapshot) NumMeshes() int {
	return len(s.Model.MeshVertAdr)
}

// Validate checks that parallel arrays have matching lengths.
// geom_size may be omitted entirely.
func (s *Snapshot) Validate() error {
	n := s.NumGeoms()
	check := func(field string, got int) error {
		if got != n {
			return fmt.Errorf("%w: %s has %d entries, geom_type has %d", ErrSnapshotShape, field, got, n)
		}
		return nil
	}

	if err := check("geom_dataid", len(s.Model.GeomDataID)); err != nil {
		return err
	}
	if len(s.Model.GeomSize) != 0 {
		if err := check("geom_size", len(s.Model.GeomSize)); err != nil {
			return err
		}
	}
	if err := check("geom_xpos", len(s.State.GeomXPos)); err != nil {
		return err
	}
	if err := check("geom_xmat", len(s.State.GeomXMat)); err != nil {
		return err
	}
	if len(s.Model.MeshVertAdr) != len(s.Model.MeshFaceAdr) {
		return fmt.Errorf("%w: mesh_vertadr has %d entries, mesh_faceadr has %d",
			ErrSnapshotShape, len(s.Model.MeshVertAdr), len(s.Model.MeshFaceAdr))
	}
	return nil
}

// MeshVertices returns mesh_vert as vectors.
func (s *Snapshot) MeshVertices() []math.Vec3 {
	out := make([]math.Vec3, len(s.Model.MeshVert))
	for i, v := range s.Model.MeshVert {
		out[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	return out
}

// Geoms converts every geom of the snapshot into its typed form.
// The first geom with an unsupported type code fails the whole conversion.
func (s *Snapshot) Geoms() ([]Geom, error) {
	geoms := make([]Geom, s.NumGeoms())
	for i, code := range s.Model.GeomType {
		kind, err := KindFromCode(code)
		if err != nil {
			return nil, &UnsupportedGeometryError{Geom: i, Code: code, Err: err}
		}

		g := Geom{
			Kind: kind,
			Pos:  math.Vec3{X: s.State.GeomXPos[i][0], Y: s.State.GeomXPos[i][1], Z: s.State.GeomXPos[i][2]},
			Rot:  s.State.GeomXMat[i],
		}
		if kind == GeomMesh {
			g.MeshID = s.Model.GeomDataID[i]
		}
		if len(s.Model.GeomSize) != 0 {
			g.Size = s.Model.GeomSize[i]
		}
		geoms[i] = g
	}
	return geoms, nil
}
