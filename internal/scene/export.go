package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/simscene/internal/layout"
	"github.com/Faultbox/simscene/internal/logger"
	"github.com/Faultbox/simscene/internal/placement"
	"github.com/Faultbox/simscene/internal/pool"
	"github.com/Faultbox/simscene/internal/primitive"
	"github.com/Faultbox/simscene/internal/sim"
)

// Options configures one export.
type Options struct {
	Output     string
	Generator  string
	Primitives primitive.Sources
	Layout     layout.Options
	Material   Material // DefaultMaterial when zero
	Writer     Writer // GLBWriter when nil
}

// Result describes a finished export.
type Result struct {
	Doc       *gltf.Document
	Output    string
	Meshes    int
	Nodes     int
	BlobBytes int
}

// Build runs the pipeline up to the finished document without writing it.
func Build(snap *sim.Snapshot, opts Options) (*gltf.Document, error) {
	poolDone := logger.StageTimer("pool")
	p, err := pool.New(snap.MeshVertices(), snap.Model.MeshFace, snap.Model.MeshVertAdr, snap.Model.MeshFaceAdr)
	if err != nil {
		return nil, fmt.Errorf("building mesh pool: %w", err)
	}

	slots, err := primitive.Register(p, opts.Primitives)
	if err != nil {
		return nil, err
	}
	p.Freeze()
	poolDone(
		zap.Int("meshes", p.Len()),
		zap.Int("vertices", p.VertexCount()),
		zap.Int("faces", p.FaceCount()),
	)

	layoutDone := logger.StageTimer("layout")
	l, err := layout.Build(p, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("laying out buffers: %w", err)
	}
	blob := layout.EncodeBlob(p)
	layoutDone(
		zap.Int("index_bytes", l.IndexBytes),
		zap.Int("vertex_bytes", l.VertexBytes),
	)

	placementDone := logger.StageTimer("placement")
	geoms, err := snap.Geoms()
	if err != nil {
		return nil, err
	}
	if len(geoms) == 0 {
		logger.Warn("snapshot has no geoms, scene will be empty")
	}
	nodes, err := placement.Build(geoms, slots, snap.NumMeshes())
	if err != nil {
		return nil, fmt.Errorf("placing geoms: %w", err)
	}
	placementDone(zap.Int("nodes", len(nodes)))

	mat := opts.Material
	if mat == (Material{}) {
		mat = DefaultMaterial()
	}
	return Assemble(l, blob, nodes, mat, opts.Generator)
}

// Export builds the scene for snap and writes it to opts.Output.
func Export(snap *sim.Snapshot, opts Options) (*Result, error) {
	doc, err := Build(snap, opts)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = GLBWriter{}
	}
	if err := w.Write(doc, opts.Output); err != nil {
		return nil, err
	}

	res := &Result{
		Doc:       doc,
		Output:    opts.Output,
		Meshes:    len(doc.Meshes),
		Nodes:     len(doc.Nodes),
		BlobBytes: doc.Buffers[0].ByteLength,
	}
	logger.Info("scene exported",
		zap.String("output", res.Output),
		zap.Int("meshes", res.Meshes),
		zap.Int("nodes", res.Nodes),
		zap.Int("bytes", res.BlobBytes),
	)
	return res, nil
}
