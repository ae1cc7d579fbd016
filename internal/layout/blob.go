package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/simscene/internal/pool"
	"github.com/Faultbox/simscene/pkg/math"
)

// Blob decoding errors.
var (
	ErrViewOutOfRange = errors.New("buffer view outside blob")
	ErrViewKind       = errors.New("wrong buffer view kind")
	ErrViewAlignment  = errors.New("buffer view length not a multiple of element size")
)

// EncodeBlob serializes the pool as all triangle indices (little-endian u32)
// followed by all vertices (little-endian f32).
func EncodeBlob(p *pool.Pool) []byte {
	faces := p.Faces()
	verts := p.Vertices()

	buf := make([]byte, BytesPerFace*len(faces)+BytesPerVertex*len(verts))
	off := 0
	for _, f := range faces {
		for _, idx := range f {
			binary.LittleEndian.PutUint32(buf[off:], idx)
			off += 4
		}
	}
	for _, v := range verts {
		for _, c := range v.Array() {
			binary.LittleEndian.PutUint32(buf[off:], stdmath.Float32bits(c))
			off += 4
		}
	}
	return buf
}

func viewBytes(blob []byte, v BufferView, kind ViewKind, elemSize int) ([]byte, error) {
	if v.Kind != kind {
		return nil, fmt.Errorf("%w: %s, want %s", ErrViewKind, v.Kind, kind)
	}
	if v.ByteOffset < 0 || v.ByteLength < 0 || v.End() > len(blob) {
		return nil, fmt.Errorf("%w: [%d, %d) in %d bytes", ErrViewOutOfRange, v.ByteOffset, v.End(), len(blob))
	}
	if v.ByteLength%elemSize != 0 {
		return nil, fmt.Errorf("%w: %d", ErrViewAlignment, v.ByteLength)
	}
	return blob[v.ByteOffset:v.End()], nil
}

// DecodeFaces reads the triangles addressed by an index view.
func DecodeFaces(blob []byte, v BufferView) ([][3]uint32, error) {
	data, err := viewBytes(blob, v, ViewIndex, BytesPerFace)
	if err != nil {
		return nil, err
	}
	faces := make([][3]uint32, len(data)/BytesPerFace)
	for i := range faces {
		for j := 0; j < 3; j++ {
			faces[i][j] = binary.LittleEndian.Uint32(data[i*BytesPerFace+4*j:])
		}
	}
	return faces, nil
}

// DecodeVertices reads the positions addressed by a vertex view.
func DecodeVertices(blob []byte, v BufferView) ([]math.Vec3, error) {
	data, err := viewBytes(blob, v, ViewVertex, BytesPerVertex)
	if err != nil {
		return nil, err
	}
	verts := make([]math.Vec3, len(data)/BytesPerVertex)
	for i := range verts {
		o := i * BytesPerVertex
		verts[i] = math.Vec3{
			X: stdmath.Float32frombits(binary.LittleEndian.Uint32(data[o:])),
			Y: stdmath.Float32frombits(binary.LittleEndian.Uint32(data[o+4:])),
			Z: stdmath.Float32frombits(binary.LittleEndian.Uint32(data[o+8:])),
		}
	}
	return verts, nil
}
