// Package scene assembles the exported glTF document and drives the export pipeline.
package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/simscene/internal/layout"
	"github.com/Faultbox/simscene/internal/placement"
	"github.com/Faultbox/simscene/internal/pool"
)

// Material is the single flat material shared by every mesh.
type Material struct {
	BaseColor [4]float64
	Metallic  float64
	Roughness float64
}

// DefaultMaterial returns an untextured white, fully rough, non-metallic material.
func DefaultMaterial() Material {
	return Material{
		BaseColor: [4]float64{1, 1, 1, 1},
		Metallic:  0,
		Roughness: 1,
	}
}

var viewTargets = map[layout.ViewKind]gltf.Target{
	layout.ViewIndex:  gltf.TargetElementArrayBuffer,
	layout.ViewVertex: gltf.TargetArrayBuffer,
}

var componentTypes = map[layout.ComponentType]gltf.ComponentType{
	layout.ComponentUint32:  gltf.ComponentUint,
	layout.ComponentFloat32: gltf.ComponentFloat,
}

var accessorTypes = map[layout.Shape]gltf.AccessorType{
	layout.ShapeScalar: gltf.AccessorScalar,
	layout.ShapeVec3:   gltf.AccessorVec3,
}

// Assemble builds the glTF document for a laid-out pool and its placed nodes.
// blob must be the payload the layout describes: every index byte, then every vertex byte.
func Assemble(l *layout.Layout, blob []byte, nodes []placement.Node, mat Material, generator string) (*gltf.Document, error) {
	if len(blob) != l.BlobLength() {
		return nil, &pool.LayoutInvariantError{Asset: -1, Reason: fmt.Sprintf(
			"blob holds %d bytes, layout describes %d", len(blob), l.BlobLength())}
	}

	doc := &gltf.Document{
		Asset: gltf.Asset{
			Version:   "2.0",
			Generator: generator,
		},
		Buffers: []*gltf.Buffer{{
			ByteLength: len(blob),
			Data:       blob,
		}},
		Materials: []*gltf.Material{{
			Name: "default",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &mat.BaseColor,
				MetallicFactor:  gltf.Float(mat.Metallic),
				RoughnessFactor: gltf.Float(mat.Roughness),
			},
			AlphaMode: gltf.AlphaOpaque,
		}},
		Scene: gltf.Index(0),
	}

	for _, v := range l.Views {
		doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
			Buffer:     v.Buffer,
			ByteOffset: v.ByteOffset,
			ByteLength: v.ByteLength,
			Target:     viewTargets[v.Kind],
		})
	}

	for _, a := range l.Accessors {
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    gltf.Index(a.View),
			ComponentType: componentTypes[a.ComponentType],
			Count:         a.Count,
			Type:          accessorTypes[a.Shape],
			Min:           a.Min,
			Max:           a.Max,
		})
	}

	for _, m := range l.Meshes {
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name: m.Name,
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{gltf.POSITION: m.Positions},
				Indices:    gltf.Index(m.Indices),
				Material:   gltf.Index(0),
			}},
		})
	}

	root := &gltf.Scene{Name: "root"}
	for i, n := range nodes {
		if n.Mesh < 0 || n.Mesh >= len(doc.Meshes) {
			return nil, fmt.Errorf("node %d references mesh %d of %d", i, n.Mesh, len(doc.Meshes))
		}
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Mesh:   gltf.Index(n.Mesh),
			Matrix: n.Transform.Float64s(),
		})
		root.Nodes = append(root.Nodes, i)
	}
	doc.Scenes = []*gltf.Scene{root}

	return doc, nil
}
