package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codedhead/webrtx/bvh"
	"github.com/codedhead/webrtx/staging"
)

// sceneFile is the YAML scene description consumed by "webrtxc blas" and
// "webrtxc tlas". Buffers are staged by name; geometries reference them for
// a BLAS build, instances stand alone for a TLAS build.
type sceneFile struct {
	Buffers    []sceneBuffer   `yaml:"buffers,omitempty"`
	Geometries []sceneGeometry `yaml:"geometries,omitempty"`
	Instances  []sceneInstance `yaml:"instances,omitempty"`
}

type sceneBuffer struct {
	Name   string    `yaml:"name"`
	Floats []float32 `yaml:"floats,omitempty"`
	Ints   []int32   `yaml:"ints,omitempty"`
}

type sceneGeometry struct {
	Type             string `yaml:"type"` // "triangles" or "aabbs"
	NumPrimitives    int32  `yaml:"num_primitives"`
	VertexBuffer     string `yaml:"vertex_buffer"`
	VertexByteOffset int32  `yaml:"vertex_byte_offset,omitempty"`
	IndexBuffer      string `yaml:"index_buffer,omitempty"`
	IndexByteOffset  int32  `yaml:"index_byte_offset,omitempty"`
}

type sceneInstance struct {
	Mask             uint32    `yaml:"mask"`
	Flags            uint32    `yaml:"flags,omitempty"`
	InstanceID       uint32    `yaml:"instance_id"`
	SbtOffset        uint32    `yaml:"sbt_instance_offset,omitempty"`
	CustomIndex      int32     `yaml:"instance_custom_index,omitempty"`
	BlasEntryIndex   uint32    `yaml:"blas_entry_index"`
	GeometryIDOffset uint32    `yaml:"blas_geometry_id_offset,omitempty"`
	Aabb             []float32 `yaml:"blas_aabb"`
	Transform        []float32 `yaml:"transform_to_world,omitempty"`
}

func runBuild(scenePath, outPath string, topLevel bool) error {
	raw, err := os.ReadFile(scenePath)
	if err != nil {
		return err
	}
	var scene sceneFile
	if err := yaml.Unmarshal(raw, &scene); err != nil {
		return fmt.Errorf("decoding %s: %w", scenePath, err)
	}

	st := staging.NewStore()
	var built bvh.Built
	if topLevel {
		desc, err := stageTlasDescriptor(st, scene.Instances)
		if err != nil {
			return err
		}
		built = bvh.BuildTLAS(st, desc)
	} else {
		desc, err := stageBlasDescriptor(st, &scene)
		if err != nil {
			return err
		}
		built = bvh.BuildBLAS(st, desc)
	}
	if err := os.WriteFile(outPath, st.Bytes(built.Buffer), 0o644); err != nil {
		return err
	}
	fmt.Printf("%s: %d nodes, %d bytes\n", outPath, built.NumNodes, st.Len(built.Buffer))
	return nil
}

func stageBuffers(st *staging.Store, buffers []sceneBuffer) (map[string]uint32, error) {
	ids := make(map[string]uint32, len(buffers))
	for _, b := range buffers {
		if b.Name == "" {
			return nil, fmt.Errorf("buffer without name")
		}
		if _, dup := ids[b.Name]; dup {
			return nil, fmt.Errorf("duplicate buffer %q", b.Name)
		}
		if len(b.Floats) > 0 && len(b.Ints) > 0 {
			return nil, fmt.Errorf("buffer %q mixes floats and ints", b.Name)
		}
		n := len(b.Floats) + len(b.Ints)
		id := st.Alloc(4 * n)
		v := staging.View(st.Bytes(id))
		for i, f := range b.Floats {
			v.PutF32(i, f)
		}
		for i, w := range b.Ints {
			v.PutI32(i, w)
		}
		ids[b.Name] = id
	}
	return ids, nil
}

func stageBlasDescriptor(st *staging.Store, scene *sceneFile) (uint32, error) {
	ids, err := stageBuffers(st, scene.Buffers)
	if err != nil {
		return 0, err
	}
	if len(scene.Geometries) == 0 {
		return 0, fmt.Errorf("scene declares no geometries")
	}
	total := int32(0)
	words := []int32{int32(len(scene.Geometries)), 0}
	for _, g := range scene.Geometries {
		var typ int32
		switch g.Type {
		case "triangles":
			typ = 0
		case "aabbs":
			typ = 1
		default:
			return 0, fmt.Errorf("unknown geometry type %q", g.Type)
		}
		vb, ok := ids[g.VertexBuffer]
		if !ok {
			return 0, fmt.Errorf("unknown vertex buffer %q", g.VertexBuffer)
		}
		ib := int32(-1)
		if g.IndexBuffer != "" {
			ibID, ok := ids[g.IndexBuffer]
			if !ok {
				return 0, fmt.Errorf("unknown index buffer %q", g.IndexBuffer)
			}
			ib = int32(ibID)
		}
		total += g.NumPrimitives
		words = append(words, typ, g.NumPrimitives, int32(vb), g.VertexByteOffset, ib, g.IndexByteOffset)
	}
	words[1] = total
	id := st.Alloc(4 * len(words))
	v := staging.View(st.Bytes(id))
	for i, w := range words {
		v.PutI32(i, w)
	}
	return id, nil
}

func stageTlasDescriptor(st *staging.Store, instances []sceneInstance) (uint32, error) {
	if len(instances) == 0 {
		return 0, fmt.Errorf("scene declares no instances")
	}
	const recordWords = 25
	id := st.Alloc(4 * (1 + recordWords*len(instances)))
	v := staging.View(st.Bytes(id))
	v.PutI32(0, int32(len(instances)))
	identity := []float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}
	for i, inst := range instances {
		if len(inst.Aabb) != 6 {
			return 0, fmt.Errorf("instance %d: blas_aabb needs 6 floats, got %d", i, len(inst.Aabb))
		}
		xf := inst.Transform
		if xf == nil {
			xf = identity
		}
		if len(xf) != 12 {
			return 0, fmt.Errorf("instance %d: transform_to_world needs 12 floats, got %d", i, len(xf))
		}
		rec := 1 + i*recordWords
		v.PutU32(rec+0, inst.Mask)
		v.PutU32(rec+1, inst.Flags)
		v.PutU32(rec+2, inst.InstanceID)
		v.PutU32(rec+3, inst.SbtOffset)
		v.PutI32(rec+4, inst.CustomIndex)
		v.PutU32(rec+5, inst.BlasEntryIndex)
		v.PutU32(rec+6, inst.GeometryIDOffset)
		for c, f := range inst.Aabb {
			v.PutF32(rec+7+c, f)
		}
		for c, f := range xf {
			v.PutF32(rec+13+c, f)
		}
	}
	return id, nil
}
