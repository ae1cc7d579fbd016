// Package pool holds the merged set of exportable triangle meshes.
//
// All meshes share one global vertex array and one global face array. Each
// MeshAsset addresses a contiguous slice of both, and the slices partition the
// arrays in pool order with no gaps or overlaps. Face indices are local to the
// mesh's own vertex slice.
package pool

import (
	"errors"
	"fmt"

	"github.com/Faultbox/simscene/pkg/math"
)

// Pool errors.
var (
	ErrFrozen       = errors.New("mesh pool is frozen")
	ErrRaggedFaces  = errors.New("triangle index count is not a multiple of 3")
	ErrAddressCount = errors.New("vertex and face address arrays differ in length")
)

// LayoutInvariantError reports offsets or counts that fail to partition the
// global arrays. It means the prepend or layout arithmetic is broken.
type LayoutInvariantError struct {
	Asset  int // pool index, or -1 when not tied to one asset
	Reason string
}

func (e *LayoutInvariantError) Error() string {
	if e.Asset < 0 {
		return "layout invariant violated: " + e.Reason
	}
	return fmt.Sprintf("layout invariant violated at mesh %d: %s", e.Asset, e.Reason)
}

// MeshAsset is one triangle mesh in the pool, as slices of the global arrays.
type MeshAsset struct {
	VertexOffset int
	VertexCount  int
	FaceOffset   int
	FaceCount    int
}

// Entry is a mesh to be inserted into the pool.
type Entry struct {
	Name     string
	Vertices []math.Vec3
	Faces    [][3]uint32
}

// Pool owns the global vertex and face arrays and the assets that slice them.
type Pool struct {
	vertices []math.Vec3
	faces    [][3]uint32
	assets   []MeshAsset
	names    []string
	frozen   bool
}

// New builds a pool from simulator mesh arrays.
// vertAdr and faceAdr hold the first vertex and first face of each mesh; the
// count of each mesh runs to the next address, and the last one to the end of
// the array.
func New(vertices []math.Vec3, faces [][3]uint32, vertAdr, faceAdr []int) (*Pool, error) {
	if len(vertAdr) != len(faceAdr) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrAddressCount, len(vertAdr), len(faceAdr))
	}

	p := &Pool{
		vertices: append([]math.Vec3(nil), vertices...),
		faces:    append([][3]uint32(nil), faces...),
		assets:   make([]MeshAsset, len(vertAdr)),
		names:    make([]string, len(vertAdr)),
	}

	for i := range vertAdr {
		vEnd, fEnd := len(vertices), len(faces)
		if i+1 < len(vertAdr) {
			vEnd, fEnd = vertAdr[i+1], faceAdr[i+1]
		}
		p.assets[i] = MeshAsset{
			VertexOffset: vertAdr[i],
			VertexCount:  vEnd - vertAdr[i],
			FaceOffset:   faceAdr[i],
			FaceCount:    fEnd - faceAdr[i],
		}
		p.names[i] = fmt.Sprintf("mesh_%d", i)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Len returns the number of meshes in the pool.
func (p *Pool) Len() int {
	return len(p.assets)
}

// Asset returns the mesh at pool index i.
func (p *Pool) Asset(i int) MeshAsset {
	return p.assets[i]
}

// Assets returns a copy of all mesh records in pool order.
func (p *Pool) Assets() []MeshAsset {
	return append([]MeshAsset(nil), p.assets...)
}

// Name returns the name of the mesh at pool index i.
func (p *Pool) Name(i int) string {
	return p.names[i]
}

// Vertices returns a copy of the global vertex array.
func (p *Pool) Vertices() []math.Vec3 {
	return append([]math.Vec3(nil), p.vertices...)
}

// Faces returns a copy of the global face array.
func (p *Pool) Faces() [][3]uint32 {
	return append([][3]uint32(nil), p.faces...)
}

// VertexCount returns the length of the global vertex array.
func (p *Pool) VertexCount() int {
	return len(p.vertices)
}

// FaceCount returns the length of the global face array.
func (p *Pool) FaceCount() int {
	return len(p.faces)
}

// MeshVertices returns the vertex slice of mesh i (read-only view).
func (p *Pool) MeshVertices(i int) []math.Vec3 {
	a := p.Asset(i)
	return p.vertices[a.VertexOffset : a.VertexOffset+a.VertexCount : a.VertexOffset+a.VertexCount]
}

// MeshFaces returns the face slice of mesh i (read-only view).
func (p *Pool) MeshFaces(i int) [][3]uint32 {
	a := p.Asset(i)
	return p.faces[a.FaceOffset : a.FaceOffset+a.FaceCount : a.FaceOffset+a.FaceCount]
}

// Prepend inserts e at pool index 0. Every existing asset is re-based by the
// number of inserted vertices and faces, and e's arrays are spliced in front of
// the global arrays.
func (p *Pool) Prepend(e Entry) error {
	return p.PrependAll(e)
}

// PrependAll inserts entries in front of the pool as one block, keeping their
// order: entries[0] ends up at pool index 0. It is the same as calling Prepend
// on each entry from last to first.
func (p *Pool) PrependAll(entries ...Entry) error {
	if p.frozen {
		return ErrFrozen
	}
	if len(entries) == 0 {
		return nil
	}

	var (
		vertices []math.Vec3
		faces    [][3]uint32
		assets   = make([]MeshAsset, 0, len(entries)+len(p.assets))
		names    = make([]string, 0, len(entries)+len(p.names))
	)
	for _, e := range entries {
		assets = append(assets, MeshAsset{
			VertexOffset: len(vertices),
			VertexCount:  len(e.Vertices),
			FaceOffset:   len(faces),
			FaceCount:    len(e.Faces),
		})
		names = append(names, e.Name)
		vertices = append(vertices, e.Vertices...)
		faces = append(faces, e.Faces...)
	}

	shiftV, shiftF := len(vertices), len(faces)
	for _, a := range p.assets {
		a.VertexOffset += shiftV
		a.FaceOffset += shiftF
		assets = append(assets, a)
	}
	names = append(names, p.names...)

	next := &Pool{
		vertices: append(vertices, p.vertices...),
		faces:    append(faces, p.faces...),
		assets:   assets,
		names:    names,
	}
	if err := next.Validate(); err != nil {
		return err
	}

	// Commit only once the new state is known to be consistent.
	p.vertices, p.faces, p.assets, p.names = next.vertices, next.faces, next.assets, next.names
	return nil
}

// Freeze ends the initialization phase. Later prepends fail with ErrFrozen.
func (p *Pool) Freeze() {
	p.frozen = true
}

// Validate checks that the assets partition both global arrays in order and
// that every face index stays inside its mesh's vertex slice.
func (p *Pool) Validate() error {
	vNext, fNext := 0, 0
	for i, a := range p.assets {
		if a.VertexCount < 0 || a.FaceCount < 0 {
			return &LayoutInvariantError{Asset: i, Reason: fmt.Sprintf("negative count (vertices %d, faces %d)", a.VertexCount, a.FaceCount)}
		}
		if a.VertexOffset != vNext {
			return &LayoutInvariantError{Asset: i, Reason: fmt.Sprintf("vertex offset %d, expected %d", a.VertexOffset, vNext)}
		}
		if a.FaceOffset != fNext {
			return &LayoutInvariantError{Asset: i, Reason: fmt.Sprintf("face offset %d, expected %d", a.FaceOffset, fNext)}
		}
		vNext += a.VertexCount
		fNext += a.FaceCount
	}
	if vNext != len(p.vertices) {
		return &LayoutInvariantError{Asset: -1, Reason: fmt.Sprintf("vertex counts sum to %d, array holds %d", vNext, len(p.vertices))}
	}
	if fNext != len(p.faces) {
		return &LayoutInvariantError{Asset: -1, Reason: fmt.Sprintf("face counts sum to %d, array holds %d", fNext, len(p.faces))}
	}

	for i, a := range p.assets {
		for _, f := range p.faces[a.FaceOffset : a.FaceOffset+a.FaceCount] {
			for _, idx := range f {
				if int(idx) >= a.VertexCount {
					return &LayoutInvariantError{Asset: i, Reason: fmt.Sprintf("face index %d outside %d vertices", idx, a.VertexCount)}
				}
			}
		}
	}
	return nil
}

// EntryFromTriangles builds an Entry from a flat triangle index list.
func EntryFromTriangles(name string, vertices []math.Vec3, indices []uint32) (Entry, error) {
	if len(indices)%3 != 0 {
		return Entry{}, fmt.Errorf("%s: %w (%d)", name, ErrRaggedFaces, len(indices))
	}
	faces := make([][3]uint32, len(indices)/3)
	for i := range faces {
		faces[i] = [3]uint32{indices[3*i], indices[3*i+1], indices[3*i+2]}
	}
	return Entry{Name: name, Vertices: vertices, Faces: faces}, nil
}
