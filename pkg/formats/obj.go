// Package formats provides parsers for mesh asset file formats.
package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/g3n/engine/loader/obj"

	"github.com/Faultbox/simscene/pkg/math"
)

// OBJ format errors.
var (
	ErrOBJSyntax      = errors.New("malformed record")
	ErrOBJUnsupported = errors.New("unsupported record")
	ErrOBJArity       = errors.New("face is not a triangle")
	ErrOBJIndex       = errors.New("vertex index out of range")
)

// OBJError reports geometry that cannot be used as a triangle mesh.
type OBJError struct {
	Object string // object name, empty when the decoder failed
	Face   int    // face index within the object, -1 when not face specific
	Err    error
}

func (e *OBJError) Error() string {
	if e.Face < 0 {
		return fmt.Sprintf("obj: %v", e.Err)
	}
	return fmt.Sprintf("obj object %q face %d: %v", e.Object, e.Face, e.Err)
}

func (e *OBJError) Unwrap() error {
	return e.Err
}

// OBJ holds the geometry of a Wavefront OBJ file.
// Indices is a flat triangle list with 0-based position indices, three per face.
type OBJ struct {
	Vertices []math.Vec3
	UVs      []math.Vec2
	Normals  []math.Vec3
	Indices  []uint32
}

// TriangleCount returns the number of faces.
func (o *OBJ) TriangleCount() int {
	return len(o.Indices) / 3
}

// LoadOBJ reads and parses an OBJ file from disk.
func LoadOBJ(path string) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOBJ(data)
}

// ParseOBJ decodes an OBJ file and flattens the faces of every object, in
// file order, into one triangle list. Materials are not read. Faces must be
// triangles; texture and normal references in face corners are dropped.
// Decoder warnings are treated as errors, and no partial result is returned.
func ParseOBJ(data []byte) (*OBJ, error) {
	dec, err := obj.DecodeReader(bytes.NewReader(data), strings.NewReader(""))
	if err != nil {
		return nil, &OBJError{Face: -1, Err: fmt.Errorf("%w: %v", ErrOBJSyntax, err)}
	}
	if len(dec.Warnings) > 0 {
		return nil, &OBJError{Face: -1, Err: fmt.Errorf("%w: %s", ErrOBJUnsupported, strings.Join(dec.Warnings, "; "))}
	}

	out := &OBJ{
		Vertices: vec3s(dec.Vertices),
		Normals:  vec3s(dec.Normals),
	}
	for i := 0; i+1 < len(dec.Uvs); i += 2 {
		out.UVs = append(out.UVs, math.Vec2{X: dec.Uvs[i], Y: dec.Uvs[i+1]})
	}

	for _, o := range dec.Objects {
		for fi, f := range o.Faces {
			if len(f.Vertices) != 3 {
				return nil, &OBJError{Object: o.Name, Face: fi, Err: fmt.Errorf("%w: %d corners", ErrOBJArity, len(f.Vertices))}
			}
			for _, idx := range f.Vertices {
				// Relative (negative) indices are already resolved by the decoder.
				if idx < 0 || idx >= len(out.Vertices) {
					return nil, &OBJError{Object: o.Name, Face: fi, Err: fmt.Errorf("%w: %d of %d", ErrOBJIndex, idx, len(out.Vertices))}
				}
				out.Indices = append(out.Indices, uint32(idx))
			}
		}
	}
	return out, nil
}

func vec3s(flat []float32) []math.Vec3 {
	out := make([]math.Vec3, 0, len(flat)/3)
	for i := 0; i+2 < len(flat); i += 3 {
		out = append(out, math.Vec3{X: flat[i], Y: flat[i+1], Z: flat[i+2]})
	}
	return out
}
