package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/simscene/internal/layout"
	"github.com/Faultbox/simscene/internal/placement"
	"github.com/Faultbox/simscene/internal/pool"
	"github.com/Faultbox/simscene/internal/primitive"
	"github.com/Faultbox/simscene/internal/sim"
	"github.com/Faultbox/simscene/pkg/math"
)

// Built-in primitive sizes.
const (
	planeVerts, planeFaces   = 4, 2
	sphereVerts, sphereFaces = 42, 80
)

var identity = [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// createTestSnapshot builds a model with one tetrahedron mesh (4 verts,
// 4 faces) and one geom of each supported kind at distinct positions.
func createTestSnapshot() *sim.Snapshot {
	return &sim.Snapshot{
		Model: sim.Model{
			MeshVert:    [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			MeshFace:    [][3]uint32{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
			MeshVertAdr: []int{0},
			MeshFaceAdr: []int{0},
			GeomType:    []int{sim.CodePlane, sim.CodeSphere, sim.CodeMesh},
			GeomDataID:  []int{-1, -1, 0},
		},
		State: sim.State{
			GeomXPos: [][3]float32{{0, 0, -0.5}, {0, 0, 2}, {1, 2, 3}},
			GeomXMat: [][3][3]float32{identity, identity, {{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}},
		},
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Output:    filepath.Join(t.TempDir(), "scene.glb"),
		Generator: "simscene-test",
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write(*gltf.Document, string) error { return w.err }

func TestBuild_Counts(t *testing.T) {
	doc, err := Build(createTestSnapshot(), testOptions(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	s := Summarize(doc)
	want := Summary{
		Buffers:     1,
		BufferViews: 6,
		Accessors:   6,
		Meshes:      3,
		Materials:   1,
		Nodes:       3,
		BlobBytes:   12*(planeFaces+sphereFaces+4) + 12*(planeVerts+sphereVerts+4),
	}
	if s != want {
		t.Errorf("Summarize() = %+v, want %+v", s, want)
	}

	if doc.Scene == nil || *doc.Scene != 0 || len(doc.Scenes) != 1 {
		t.Fatalf("expected one default scene")
	}
	if got := doc.Scenes[0].Nodes; len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("scene nodes: got %v", got)
	}
	if doc.Asset.Generator != "simscene-test" || doc.Asset.Version != "2.0" {
		t.Errorf("asset: %+v", doc.Asset)
	}
}

func TestBuild_NodesAndMeshes(t *testing.T) {
	doc, err := Build(createTestSnapshot(), testOptions(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if doc.Meshes[0].Name != "plane" || doc.Meshes[1].Name != "sphere" {
		t.Errorf("mesh order: %s, %s", doc.Meshes[0].Name, doc.Meshes[1].Name)
	}

	wantMesh := []int{0, 1, 2}
	for i, n := range doc.Nodes {
		if n.Mesh == nil || *n.Mesh != wantMesh[i] {
			t.Errorf("node %d: mesh %v, want %d", i, n.Mesh, wantMesh[i])
		}
		if len(n.Children) != 0 {
			t.Errorf("node %d has children", i)
		}
	}

	m := doc.Nodes[2].Matrix
	want := [16]float64{
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 1, 0,
		1, 2, 3, 1,
	}
	if m != want {
		t.Errorf("mesh node matrix: got %v, want %v", m, want)
	}

	for i, mesh := range doc.Meshes {
		prim := mesh.Primitives[0]
		if *prim.Indices != 2*i || prim.Attributes[gltf.POSITION] != 2*i+1 {
			t.Errorf("mesh %d: indices %d positions %d", i, *prim.Indices, prim.Attributes[gltf.POSITION])
		}
		if prim.Material == nil || *prim.Material != 0 {
			t.Errorf("mesh %d: expected shared material 0", i)
		}
	}
}

func TestBuild_ViewsAndAccessors(t *testing.T) {
	doc, err := Build(createTestSnapshot(), testOptions(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	totalFaces := planeFaces + sphereFaces + 4
	faceOffsets := []int{0, planeFaces, planeFaces + sphereFaces}
	vertOffsets := []int{0, planeVerts, planeVerts + sphereVerts}
	faceCounts := []int{planeFaces, sphereFaces, 4}
	vertCounts := []int{planeVerts, sphereVerts, 4}

	for i := 0; i < 3; i++ {
		iv, vv := doc.BufferViews[2*i], doc.BufferViews[2*i+1]
		if iv.Target != gltf.TargetElementArrayBuffer || vv.Target != gltf.TargetArrayBuffer {
			t.Errorf("mesh %d: targets %v, %v", i, iv.Target, vv.Target)
		}
		if iv.ByteOffset != 12*faceOffsets[i] || iv.ByteLength != 12*faceCounts[i] {
			t.Errorf("mesh %d: index view %+v", i, iv)
		}
		if vv.ByteOffset != 12*totalFaces+12*vertOffsets[i] || vv.ByteLength != 12*vertCounts[i] {
			t.Errorf("mesh %d: vertex view %+v", i, vv)
		}

		ia, va := doc.Accessors[2*i], doc.Accessors[2*i+1]
		if ia.ComponentType != gltf.ComponentUint || ia.Type != gltf.AccessorScalar || ia.Count != 3*faceCounts[i] {
			t.Errorf("mesh %d: index accessor %+v", i, ia)
		}
		if va.ComponentType != gltf.ComponentFloat || va.Type != gltf.AccessorVec3 || va.Count != vertCounts[i] {
			t.Errorf("mesh %d: position accessor %+v", i, va)
		}
		if len(va.Min) != 3 || len(va.Max) != 3 || len(ia.Min) != 1 {
			t.Errorf("mesh %d: bounds shapes %d/%d/%d", i, len(va.Min), len(va.Max), len(ia.Min))
		}
	}
}

func TestExport_EndToEnd(t *testing.T) {
	opts := testOptions(t)
	res, err := Export(createTestSnapshot(), opts)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Meshes != 3 || res.Nodes != 3 || res.Output != opts.Output {
		t.Errorf("result: %+v", res)
	}

	doc, err := Open(opts.Output)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	s := Summarize(doc)
	if s.Meshes != 3 || s.BufferViews != 6 || s.Accessors != 6 || s.Nodes != 3 {
		t.Errorf("reopened summary: %+v", s)
	}
	wantBytes := 12*(planeFaces+sphereFaces+4) + 12*(planeVerts+sphereVerts+4)
	if s.BlobBytes != wantBytes {
		t.Errorf("blob bytes: got %d, want %d", s.BlobBytes, wantBytes)
	}
	if len(doc.Buffers[0].Data) < wantBytes {
		t.Fatalf("buffer data: got %d bytes, want %d", len(doc.Buffers[0].Data), wantBytes)
	}

	if err := Verify(doc); err != nil {
		t.Errorf("Verify failed: %v", err)
	}

	// The simulator mesh decodes back to the snapshot arrays.
	blob := doc.Buffers[0].Data
	view := doc.BufferViews[5]
	verts, err := layout.DecodeVertices(blob, layout.BufferView{ByteOffset: view.ByteOffset, ByteLength: view.ByteLength, Kind: layout.ViewVertex})
	if err != nil {
		t.Fatalf("DecodeVertices failed: %v", err)
	}
	for i, v := range createTestSnapshot().Model.MeshVert {
		if verts[i] != (math.Vec3{X: v[0], Y: v[1], Z: v[2]}) {
			t.Errorf("vertex %d: got %v, want %v", i, verts[i], v)
		}
	}
	view = doc.BufferViews[4]
	faces, err := layout.DecodeFaces(blob, layout.BufferView{ByteOffset: view.ByteOffset, ByteLength: view.ByteLength, Kind: layout.ViewIndex})
	if err != nil {
		t.Fatalf("DecodeFaces failed: %v", err)
	}
	for i, f := range createTestSnapshot().Model.MeshFace {
		if faces[i] != f {
			t.Errorf("face %d: got %v, want %v", i, faces[i], f)
		}
	}

	if m := doc.Nodes[1].Matrix; m[12] != 0 || m[13] != 0 || m[14] != 2 || m[15] != 1 {
		t.Errorf("sphere node translation: got %v", m[12:])
	}

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(opts.Output))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the scene file, got %d entries", len(entries))
	}
}

func TestExport_UnsupportedGeometry(t *testing.T) {
	snap := createTestSnapshot()
	snap.Model.GeomType[1] = 5 // capsule

	opts := testOptions(t)
	_, err := Export(snap, opts)

	var unsupported *sim.UnsupportedGeometryError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedGeometryError, got %v", err)
	}
	if unsupported.Geom != 1 || unsupported.Code != 5 {
		t.Errorf("got geom %d code %d", unsupported.Geom, unsupported.Code)
	}
	if !errors.Is(err, sim.ErrUnknownGeometry) {
		t.Errorf("expected wrapped sim.ErrUnknownGeometry, got %v", err)
	}
	if _, err := os.Stat(opts.Output); !os.IsNotExist(err) {
		t.Error("expected no output file after failed export")
	}
}

func TestExport_BadPrimitive(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "plane.obj")
	if err := os.WriteFile(bad, []byte("v 0 0 0\nf 1 1\n"), 0644); err != nil {
		t.Fatalf("failed to write obj: %v", err)
	}

	opts := testOptions(t)
	opts.Primitives = primitive.Sources{Plane: bad}
	_, err := Export(createTestSnapshot(), opts)

	var loadErr *primitive.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *primitive.LoadError, got %v", err)
	}
	if loadErr.Kind != primitive.Plane {
		t.Errorf("expected plane, got %s", loadErr.Kind)
	}
}

func TestExport_BrokenMeshAddresses(t *testing.T) {
	snap := createTestSnapshot()
	snap.Model.MeshVertAdr = []int{1}

	_, err := Export(snap, testOptions(t))
	var invErr *pool.LayoutInvariantError
	if !errors.As(err, &invErr) {
		t.Errorf("expected *pool.LayoutInvariantError, got %v", err)
	}
}

func TestExport_EmptyMesh(t *testing.T) {
	snap := createTestSnapshot()
	snap.Model.MeshVertAdr = []int{0, 4}
	snap.Model.MeshFaceAdr = []int{0, 4}
	snap.Model.GeomType = append(snap.Model.GeomType, sim.CodeMesh)
	snap.Model.GeomDataID = append(snap.Model.GeomDataID, 1)
	snap.State.GeomXPos = append(snap.State.GeomXPos, [3]float32{0, 0, 0})
	snap.State.GeomXMat = append(snap.State.GeomXMat, identity)

	opts := testOptions(t)
	_, err := Export(snap, opts)

	var invErr *pool.LayoutInvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *pool.LayoutInvariantError, got %v", err)
	}
	if invErr.Asset != 3 {
		t.Errorf("expected pool asset 3, got %d", invErr.Asset)
	}
	if _, err := os.Stat(opts.Output); !os.IsNotExist(err) {
		t.Error("expected no output file for an empty mesh")
	}
}

func TestExport_WriterErrorPropagates(t *testing.T) {
	sentinel := errors.New("disk full")

	opts := testOptions(t)
	opts.Writer = failingWriter{err: sentinel}
	_, err := Export(createTestSnapshot(), opts)
	if err != sentinel {
		t.Errorf("expected writer error unchanged, got %v", err)
	}
}

func TestGLBWriter_Failure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write blocker: %v", err)
	}

	doc, err := Build(createTestSnapshot(), testOptions(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	path := filepath.Join(blocker, "scene.glb")
	err = GLBWriter{}.Write(doc, path)
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if writeErr.Path != path {
		t.Errorf("expected path %s, got %s", path, writeErr.Path)
	}
}

func TestAssemble_BlobMismatch(t *testing.T) {
	p, err := pool.New([]math.Vec3{{}, {X: 1}, {Y: 1}}, [][3]uint32{{0, 1, 2}}, []int{0}, []int{0})
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	l, err := layout.Build(p, layout.Options{})
	if err != nil {
		t.Fatalf("layout.Build failed: %v", err)
	}

	blob := layout.EncodeBlob(p)
	if _, err := Assemble(l, blob[:len(blob)-4], nil, DefaultMaterial(), "test"); err == nil {
		t.Error("expected error for truncated blob")
	}

	nodes := []placement.Node{{Mesh: 1, Transform: math.Identity()}}
	if _, err := Assemble(l, blob, nodes, DefaultMaterial(), "test"); err == nil {
		t.Error("expected error for node referencing a missing mesh")
	}

	doc, err := Assemble(l, blob, []placement.Node{{Mesh: 0, Transform: math.Translate(1, 2, 3)}}, DefaultMaterial(), "test")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	pbr := doc.Materials[0].PBRMetallicRoughness
	if *pbr.BaseColorFactor != [4]float64{1, 1, 1, 1} || *pbr.MetallicFactor != 0 || *pbr.RoughnessFactor != 1 {
		t.Errorf("material: %+v", pbr)
	}
}

func TestBuild_Material(t *testing.T) {
	opts := testOptions(t)
	doc, err := Build(createTestSnapshot(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	pbr := doc.Materials[0].PBRMetallicRoughness
	if *pbr.BaseColorFactor != DefaultMaterial().BaseColor || *pbr.RoughnessFactor != 1 {
		t.Errorf("expected default material for zero options, got %+v", pbr)
	}

	opts.Material = Material{BaseColor: [4]float64{0.2, 0.4, 0.6, 1}, Metallic: 0.5, Roughness: 0.25}
	doc, err = Build(createTestSnapshot(), opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	pbr = doc.Materials[0].PBRMetallicRoughness
	if *pbr.BaseColorFactor != opts.Material.BaseColor || *pbr.MetallicFactor != 0.5 || *pbr.RoughnessFactor != 0.25 {
		t.Errorf("expected configured material, got %+v", pbr)
	}
}

func TestWorldBounds(t *testing.T) {
	p, err := pool.New([]math.Vec3{{}, {X: 1}, {Y: 1}}, [][3]uint32{{0, 1, 2}}, []int{0}, []int{0})
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	l, err := layout.Build(p, layout.Options{})
	if err != nil {
		t.Fatalf("layout.Build failed: %v", err)
	}
	nodes := []placement.Node{
		{Mesh: 0, Transform: math.Translate(1, 2, 3)},
		{Mesh: 0, Transform: math.Identity()},
	}
	doc, err := Assemble(l, layout.EncodeBlob(p), nodes, DefaultMaterial(), "test")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	lo, hi, ok := WorldBounds(doc)
	if !ok {
		t.Fatal("expected bounds")
	}
	if lo != (math.Vec3{}) || hi != (math.Vec3{X: 2, Y: 3, Z: 3}) {
		t.Errorf("WorldBounds() = %v, %v; want (0,0,0), (2,3,3)", lo, hi)
	}

	doc.Nodes = nil
	if _, _, ok := WorldBounds(doc); ok {
		t.Error("expected no bounds without nodes")
	}
}

func TestVerify_RejectsForeignShape(t *testing.T) {
	doc, err := Build(createTestSnapshot(), testOptions(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})

	if err := Verify(doc); !errors.Is(err, ErrNotExported) {
		t.Errorf("expected ErrNotExported, got %v", err)
	}
}

func TestVerify_DetectsBadIndex(t *testing.T) {
	doc, err := Build(createTestSnapshot(), testOptions(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	// Point the plane's positions at a 1-vertex slice of its own view.
	doc.BufferViews[1].ByteLength = 12
	doc.Accessors[1].Count = 1

	if err := Verify(doc); err == nil {
		t.Error("expected out-of-range index error")
	}
}
