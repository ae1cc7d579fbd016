// Package layout computes where each pool mesh lives inside the exported binary blob.
//
// The blob is the whole face array (u32 triangles) followed by the whole vertex
// array (f32 triples). Every mesh gets an index view into the first region and a
// vertex view into the second, plus one accessor per view.
package layout

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/simscene/internal/logger"
	"github.com/Faultbox/simscene/internal/pool"
	"github.com/Faultbox/simscene/pkg/math"
)

// Byte sizes of one blob element.
const (
	BytesPerFace   = 12 // 3 x uint32
	BytesPerVertex = 12 // 3 x float32
)

// ViewKind tells which region of the blob a view addresses.
type ViewKind int

// View kinds.
const (
	ViewIndex  ViewKind = iota // element array (triangle indices)
	ViewVertex                 // array buffer (positions)
)

// String returns the view kind name.
func (k ViewKind) String() string {
	switch k {
	case ViewIndex:
		return "index"
	case ViewVertex:
		return "vertex"
	default:
		return fmt.Sprintf("ViewKind(%d)", int(k))
	}
}

// ComponentType is the scalar type of accessor elements.
type ComponentType int

// Component types.
const (
	ComponentUint32 ComponentType = iota
	ComponentFloat32
)

// Shape is the number of components per accessor element.
type Shape int

// Shapes.
const (
	ShapeScalar Shape = iota
	ShapeVec3
)

// BufferView is a byte range of the blob.
type BufferView struct {
	Buffer     int
	ByteOffset int
	ByteLength int
	Kind       ViewKind
}

// End returns the offset one past the last byte of the view.
func (v BufferView) End() int {
	return v.ByteOffset + v.ByteLength
}

// Accessor is a typed, bounded reading of one BufferView.
type Accessor struct {
	View          int
	ComponentType ComponentType
	Count         int
	Shape         Shape
	Min           []float64
	Max           []float64
}

// Mesh references the index and position accessors of one pool mesh.
type Mesh struct {
	Name      string
	Indices   int
	Positions int
}

// Options tunes the layout.
type Options struct {
	// TightBounds computes accessor min/max over each mesh's own slice.
	// By default bounds cover the whole face or vertex array.
	TightBounds bool
}

// Layout is the manifest for one blob: two views, two accessors and one mesh
// per pool entry, in pool order.
type Layout struct {
	Views       []BufferView
	Accessors   []Accessor
	Meshes      []Mesh
	IndexBytes  int
	VertexBytes int
}

// BlobLength returns the expected size of the blob.
func (l *Layout) BlobLength() int {
	return l.IndexBytes + l.VertexBytes
}

// Build lays out every mesh of p.
func Build(p *pool.Pool, opts Options) (*Layout, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	totalFaces := p.FaceCount()
	l := &Layout{
		Views:       make([]BufferView, 0, 2*p.Len()),
		Accessors:   make([]Accessor, 0, 2*p.Len()),
		Meshes:      make([]Mesh, 0, p.Len()),
		IndexBytes:  BytesPerFace * totalFaces,
		VertexBytes: BytesPerVertex * p.VertexCount(),
	}

	// Vertex views start after the entire index region, whatever the mesh.
	vertexBase := BytesPerFace * totalFaces

	faceLo, faceHi := faceBounds(p.Faces())
	vertLo, vertHi := math.Bounds(p.Vertices())

	for i, a := range p.Assets() {
		// glTF requires count and byteLength of at least one.
		if a.VertexCount == 0 || a.FaceCount == 0 {
			return nil, &pool.LayoutInvariantError{Asset: i, Reason: fmt.Sprintf(
				"mesh %s is empty (%d vertices, %d faces)", p.Name(i), a.VertexCount, a.FaceCount)}
		}

		if opts.TightBounds {
			faceLo, faceHi = faceBounds(p.MeshFaces(i))
			vertLo, vertHi = math.Bounds(p.MeshVertices(i))
		}

		l.Views = append(l.Views, BufferView{
			ByteOffset: BytesPerFace * a.FaceOffset,
			ByteLength: BytesPerFace * a.FaceCount,
			Kind:       ViewIndex,
		})
		l.Accessors = append(l.Accessors, Accessor{
			View:          len(l.Views) - 1,
			ComponentType: ComponentUint32,
			Count:         3 * a.FaceCount,
			Shape:         ShapeScalar,
			Min:           []float64{float64(faceLo)},
			Max:           []float64{float64(faceHi)},
		})

		l.Views = append(l.Views, BufferView{
			ByteOffset: vertexBase + BytesPerVertex*a.VertexOffset,
			ByteLength: BytesPerVertex * a.VertexCount,
			Kind:       ViewVertex,
		})
		l.Accessors = append(l.Accessors, Accessor{
			View:          len(l.Views) - 1,
			ComponentType: ComponentFloat32,
			Count:         a.VertexCount,
			Shape:         ShapeVec3,
			Min:           vertLo.Float64s(),
			Max:           vertHi.Float64s(),
		})

		l.Meshes = append(l.Meshes, Mesh{
			Name:      p.Name(i),
			Indices:   len(l.Accessors) - 2,
			Positions: len(l.Accessors) - 1,
		})

		logger.Debug("mesh laid out",
			zap.Int("mesh", i),
			zap.String("name", p.Name(i)),
			zap.Int("index_offset", BytesPerFace*a.FaceOffset),
			zap.Int("vertex_offset", vertexBase+BytesPerVertex*a.VertexOffset),
		)
	}

	if err := l.Check(); err != nil {
		return nil, err
	}
	return l, nil
}

// Check verifies that index views stay inside the index region, vertex views
// inside the vertex region, and that each region is covered without gaps.
func (l *Layout) Check() error {
	if len(l.Views) != 2*len(l.Meshes) || len(l.Accessors) != len(l.Views) {
		return &pool.LayoutInvariantError{Asset: -1, Reason: fmt.Sprintf(
			"%d meshes, %d views, %d accessors", len(l.Meshes), len(l.Views), len(l.Accessors))}
	}

	indexNext, vertexNext := 0, l.IndexBytes
	for i := 0; i < len(l.Views); i += 2 {
		mesh := i / 2
		iv, vv := l.Views[i], l.Views[i+1]

		if iv.Kind != ViewIndex || vv.Kind != ViewVertex {
			return &pool.LayoutInvariantError{Asset: mesh, Reason: "views not in (index, vertex) order"}
		}
		if iv.ByteOffset != indexNext || iv.End() > l.IndexBytes {
			return &pool.LayoutInvariantError{Asset: mesh, Reason: fmt.Sprintf(
				"index view [%d, %d) outside index region [%d, %d)", iv.ByteOffset, iv.End(), indexNext, l.IndexBytes)}
		}
		if vv.ByteOffset != vertexNext || vv.End() > l.BlobLength() {
			return &pool.LayoutInvariantError{Asset: mesh, Reason: fmt.Sprintf(
				"vertex view [%d, %d) outside vertex region [%d, %d)", vv.ByteOffset, vv.End(), vertexNext, l.BlobLength())}
		}
		if l.Accessors[i].Count*4 != iv.ByteLength || l.Accessors[i+1].Count*BytesPerVertex != vv.ByteLength {
			return &pool.LayoutInvariantError{Asset: mesh, Reason: "accessor count does not match view length"}
		}
		indexNext = iv.End()
		vertexNext = vv.End()
	}

	if indexNext != l.IndexBytes || vertexNext != l.BlobLength() {
		return &pool.LayoutInvariantError{Asset: -1, Reason: fmt.Sprintf(
			"views cover %d index and %d vertex bytes, regions hold %d and %d",
			indexNext, vertexNext-l.IndexBytes, l.IndexBytes, l.VertexBytes)}
	}
	return nil
}

func faceBounds(faces [][3]uint32) (lo, hi uint32) {
	if len(faces) == 0 {
		return 0, 0
	}
	lo, hi = faces[0][0], faces[0][0]
	for _, f := range faces {
		for _, idx := range f {
			lo = min(lo, idx)
			hi = max(hi, idx)
		}
	}
	return lo, hi
}
