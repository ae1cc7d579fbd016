package scene

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/simscene/internal/layout"
	"github.com/Faultbox/simscene/pkg/math"
)

// ErrNotExported is returned by Verify for documents that do not follow the
// exporter's one-buffer, one-primitive-per-mesh shape.
var ErrNotExported = errors.New("document does not have the exported scene shape")

// Summary counts the top-level objects of a document.
type Summary struct {
	Buffers     int
	BufferViews int
	Accessors   int
	Meshes      int
	Materials   int
	Nodes       int
	BlobBytes   int
}

// Summarize counts the objects in doc.
func Summarize(doc *gltf.Document) Summary {
	s := Summary{
		Buffers:     len(doc.Buffers),
		BufferViews: len(doc.BufferViews),
		Accessors:   len(doc.Accessors),
		Meshes:      len(doc.Meshes),
		Materials:   len(doc.Materials),
		Nodes:       len(doc.Nodes),
	}
	for _, b := range doc.Buffers {
		s.BlobBytes += b.ByteLength
	}
	return s
}

// WorldBounds returns the world-space box enclosing every mesh node, from the
// position accessor bounds of each mesh and the node matrices. ok is false when
// no node carries a bounded mesh.
func WorldBounds(doc *gltf.Document) (lo, hi math.Vec3, ok bool) {
	for _, n := range doc.Nodes {
		if n.Mesh == nil || *n.Mesh >= len(doc.Meshes) || len(doc.Meshes[*n.Mesh].Primitives) == 0 {
			continue
		}
		pos, found := doc.Meshes[*n.Mesh].Primitives[0].Attributes[gltf.POSITION]
		if !found || pos >= len(doc.Accessors) {
			continue
		}
		a := doc.Accessors[pos]
		if len(a.Min) != 3 || len(a.Max) != 3 {
			continue
		}

		m := math.FromFloat64s(n.Matrix)
		for _, c := range boxCorners(a.Min, a.Max) {
			p := m.TransformVec3(c)
			if !ok {
				lo, hi, ok = p, p, true
				continue
			}
			lo, hi = lo.Min(p), hi.Max(p)
		}
	}
	return lo, hi, ok
}

func boxCorners(lo, hi []float64) [8]math.Vec3 {
	var out [8]math.Vec3
	for i := range out {
		pick := func(axis int) float32 {
			if i&(1<<axis) != 0 {
				return float32(hi[axis])
			}
			return float32(lo[axis])
		}
		out[i] = math.Vec3{X: pick(0), Y: pick(1), Z: pick(2)}
	}
	return out
}

// Open reads a scene file.
func Open(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

// Verify decodes every mesh of an exported document back out of its buffer
// and checks that index accessors stay within their mesh's vertex count.
func Verify(doc *gltf.Document) error {
	if len(doc.Buffers) != 1 {
		return fmt.Errorf("%w: %d buffers", ErrNotExported, len(doc.Buffers))
	}
	blob := doc.Buffers[0].Data

	for i, m := range doc.Meshes {
		if len(m.Primitives) != 1 || m.Primitives[0].Indices == nil {
			return fmt.Errorf("%w: mesh %d", ErrNotExported, i)
		}
		prim := m.Primitives[0]
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			return fmt.Errorf("%w: mesh %d has no positions", ErrNotExported, i)
		}

		faces, err := decodeFaces(doc, blob, *prim.Indices)
		if err != nil {
			return fmt.Errorf("mesh %d indices: %w", i, err)
		}
		verts, err := decodeVertices(doc, blob, posIdx)
		if err != nil {
			return fmt.Errorf("mesh %d positions: %w", i, err)
		}

		for j, f := range faces {
			for _, idx := range f {
				if int(idx) >= len(verts) {
					return fmt.Errorf("mesh %d face %d: index %d outside %d vertices", i, j, idx, len(verts))
				}
			}
		}
	}
	return nil
}

func accessorView(doc *gltf.Document, accessor int, kind layout.ViewKind) (layout.BufferView, *gltf.Accessor, error) {
	if accessor < 0 || accessor >= len(doc.Accessors) {
		return layout.BufferView{}, nil, fmt.Errorf("accessor %d out of range", accessor)
	}
	a := doc.Accessors[accessor]
	if a.BufferView == nil || *a.BufferView >= len(doc.BufferViews) || a.ByteOffset != 0 {
		return layout.BufferView{}, nil, fmt.Errorf("%w: accessor %d", ErrNotExported, accessor)
	}
	v := doc.BufferViews[*a.BufferView]
	return layout.BufferView{
		Buffer:     v.Buffer,
		ByteOffset: v.ByteOffset,
		ByteLength: v.ByteLength,
		Kind:       kind,
	}, a, nil
}

func decodeFaces(doc *gltf.Document, blob []byte, accessor int) ([][3]uint32, error) {
	view, a, err := accessorView(doc, accessor, layout.ViewIndex)
	if err != nil {
		return nil, err
	}
	if a.ComponentType != gltf.ComponentUint || a.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: index accessor %d is not u32 scalar", ErrNotExported, accessor)
	}
	faces, err := layout.DecodeFaces(blob, view)
	if err != nil {
		return nil, err
	}
	if 3*len(faces) != a.Count {
		return nil, fmt.Errorf("accessor %d counts %d indices, view holds %d", accessor, a.Count, 3*len(faces))
	}
	return faces, nil
}

func decodeVertices(doc *gltf.Document, blob []byte, accessor int) ([]math.Vec3, error) {
	view, a, err := accessorView(doc, accessor, layout.ViewVertex)
	if err != nil {
		return nil, err
	}
	if a.ComponentType != gltf.ComponentFloat || a.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("%w: position accessor %d is not f32 vec3", ErrNotExported, accessor)
	}
	verts, err := layout.DecodeVertices(blob, view)
	if err != nil {
		return nil, err
	}
	if len(verts) != a.Count {
		return nil, fmt.Errorf("accessor %d counts %d vertices, view holds %d", accessor, a.Count, len(verts))
	}
	return verts, nil
}
