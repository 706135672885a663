package bvh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/codedhead/webrtx/math/ms3"
	"github.com/codedhead/webrtx/staging"
)

func stageF32(t *testing.T, st *staging.Store, vals ...float32) uint32 {
	t.Helper()
	id := st.Alloc(4 * len(vals))
	v := staging.View(st.Bytes(id))
	for i, f := range vals {
		v.PutF32(i, f)
	}
	return id
}

func stageI32(t *testing.T, st *staging.Store, vals ...int32) uint32 {
	t.Helper()
	id := st.Alloc(4 * len(vals))
	v := staging.View(st.Bytes(id))
	for i, w := range vals {
		v.PutI32(i, w)
	}
	return id
}

// blasNode mirrors the serialized BLAS node layout.
type blasNode struct {
	min, max [3]float32
	entry    uint32
	exit     uint32
	geom     int32
}

func readBlasNodes(t *testing.T, st *staging.Store, b Built) []blasNode {
	t.Helper()
	stride := blasNodeStride()
	buf := st.Bytes(b.Buffer)
	if len(buf) != int(b.NumNodes)*stride {
		t.Fatalf("output length %d, want num_nodes*stride = %d", len(buf), int(b.NumNodes)*stride)
	}
	nodes := make([]blasNode, b.NumNodes)
	for i := range nodes {
		v := staging.View(buf[i*stride:])
		n := &nodes[i]
		n.min = [3]float32{v.F32(0), v.F32(1), v.F32(2)}
		n.max = [3]float32{v.F32(4), v.F32(5), v.F32(6)}
		n.entry = v.U32(8)
		n.exit = v.U32(9)
		n.geom = v.I32(10)
	}
	return nodes
}

// tlasNode mirrors the serialized TLAS node layout.
type tlasNode struct {
	min, max           [3]float32
	entry, exit        uint32
	isLeaf             uint32
	mask, flags        uint32
	instanceID         uint32
	sbtInstanceOffset  uint32
	customIndex        int32
	toWorld, toObject  [12]float32
	blasGeometryOffset uint32
}

func readTlasNodes(t *testing.T, st *staging.Store, b Built) []tlasNode {
	t.Helper()
	stride := tlasNodeStride()
	buf := st.Bytes(b.Buffer)
	if len(buf) != int(b.NumNodes)*stride {
		t.Fatalf("output length %d, want num_nodes*stride = %d", len(buf), int(b.NumNodes)*stride)
	}
	nodes := make([]tlasNode, b.NumNodes)
	for i := range nodes {
		v := staging.View(buf[i*stride:])
		n := &nodes[i]
		n.min = [3]float32{v.F32(0), v.F32(1), v.F32(2)}
		n.max = [3]float32{v.F32(4), v.F32(5), v.F32(6)}
		n.entry = v.U32(8)
		n.exit = v.U32(9)
		n.isLeaf = v.U32(10)
		n.mask = v.U32(11)
		n.flags = v.U32(12)
		n.instanceID = v.U32(13)
		n.sbtInstanceOffset = v.U32(14)
		n.customIndex = v.I32(15)
		for c := 0; c < 12; c++ {
			n.toWorld[c] = v.F32(16 + c)
			n.toObject[c] = v.F32(28 + c)
		}
		n.blasGeometryOffset = v.U32(40)
	}
	return nodes
}

func TestBuildBLASSingleTriangle(t *testing.T) {
	st := staging.NewStore()
	vb := stageF32(t, st,
		0, 0, 0,
		1, 0, 0,
		0, 1, 0)
	desc := stageI32(t, st, 1, 1, 0, 1, int32(vb), 0, -1, 0)
	built := BuildBLAS(st, desc)
	if built.NumNodes != 1 {
		t.Fatalf("num nodes = %d, want 1", built.NumNodes)
	}
	n := readBlasNodes(t, st, built)[0]
	if n.min != [3]float32{0, 0, 0} || n.max != [3]float32{1, 1, 0} {
		t.Errorf("leaf box = %v..%v, want (0,0,0)..(1,1,0)", n.min, n.max)
	}
	if n.entry != 0 || n.exit != Sentinel || n.geom != 0 {
		t.Errorf("leaf fields = (%d,%#x,%d), want (0, sentinel, 0)", n.entry, n.exit, n.geom)
	}
}

func TestBuildBLASIndexedTriangle(t *testing.T) {
	st := staging.NewStore()
	vb := stageF32(t, st,
		9, 9, 9, // unused vertex 0
		0, 0, 0,
		2, 0, 0,
		0, 2, 2)
	ib := stageI32(t, st, 1, 2, 3)
	desc := stageI32(t, st, 1, 1, 0, 1, int32(vb), 0, int32(ib), 0)
	built := BuildBLAS(st, desc)
	n := readBlasNodes(t, st, built)[0]
	if n.min != [3]float32{0, 0, 0} || n.max != [3]float32{2, 2, 2} {
		t.Errorf("indexed leaf box = %v..%v, want (0,0,0)..(2,2,2)", n.min, n.max)
	}
}

func TestBuildBLASTwoAabbs(t *testing.T) {
	st := staging.NewStore()
	vb0 := stageF32(t, st, 0, 0, 0, 1, 1, 1)
	vb1 := stageF32(t, st, 2, 2, 2, 3, 3, 3)
	desc := stageI32(t, st, 2, 2,
		1, 1, int32(vb0), 0, -1, 0,
		1, 1, int32(vb1), 0, -1, 0)
	built := BuildBLAS(st, desc)
	if built.NumNodes != 3 {
		t.Fatalf("num nodes = %d, want 3", built.NumNodes)
	}
	nodes := readBlasNodes(t, st, built)
	root := nodes[0]
	if root.geom != InteriorGeometryID {
		t.Fatalf("root geometry id = %d, want -1", root.geom)
	}
	if root.min != [3]float32{0, 0, 0} || root.max != [3]float32{3, 3, 3} {
		t.Errorf("root box = %v..%v, want (0,0,0)..(3,3,3)", root.min, root.max)
	}
	if root.entry != 1 {
		t.Errorf("root entry = %d, want 1", root.entry)
	}
	if root.exit != Sentinel {
		t.Errorf("root exit = %#x, want sentinel", root.exit)
	}
	// Leaves in preorder: nearer box first, each primitive 0 of its geometry.
	left, right := nodes[1], nodes[2]
	if left.entry != 0 || right.entry != 0 {
		t.Errorf("leaf primitive ids = %d, %d, want 0, 0", left.entry, right.entry)
	}
	if left.geom != 0 || right.geom != 1 {
		t.Errorf("leaf geometry ids = %d, %d, want 0, 1", left.geom, right.geom)
	}
	if left.exit != 2 {
		t.Errorf("left leaf exit = %d, want 2 (the sibling leaf)", left.exit)
	}
	if right.exit != Sentinel {
		t.Errorf("right leaf exit = %#x, want sentinel", right.exit)
	}
}

// walkBlasLeaves follows the stackless encoding visiting every node as if each
// box were hit, collecting leaves in visit order.
func walkBlasLeaves(t *testing.T, nodes []blasNode) []blasNode {
	t.Helper()
	var leaves []blasNode
	visited := make(map[uint32]bool)
	i := uint32(0)
	for i != Sentinel {
		if int(i) >= len(nodes) {
			t.Fatalf("traversal escaped node array at %d", i)
		}
		if visited[i] {
			t.Fatalf("node %d visited twice", i)
		}
		visited[i] = true
		n := nodes[i]
		if n.geom != InteriorGeometryID {
			leaves = append(leaves, n)
			i = n.exit
		} else {
			i = n.entry
		}
	}
	return leaves
}

func TestBlasTraversalProperties(t *testing.T) {
	st := staging.NewStore()
	// Three geometries: an indexed strip of triangles, plain triangles, aabbs.
	vb := stageF32(t, st,
		0, 0, 0, 1, 0, 0, 0, 1, 0,
		2, 0, 0, 3, 0, 0, 2, 1, 0,
		0, 0, 5, 1, 0, 5, 0, 1, 5,
		7, 7, 7, 8, 8, 8)
	ib := stageI32(t, st, 0, 1, 2, 3, 4, 5)
	aabb := stageF32(t, st, -4, -4, -4, -3, -3, -3)
	desc := stageI32(t, st, 3, 4,
		0, 2, int32(vb), 0, int32(ib), 0,
		0, 1, int32(vb), 6*4*3, -1, 0,
		1, 1, int32(aabb), 0, -1, 0)
	built := BuildBLAS(st, desc)
	if built.NumNodes != 2*4-1 {
		t.Fatalf("num nodes = %d, want %d", built.NumNodes, 2*4-1)
	}
	nodes := readBlasNodes(t, st, built)

	// Sentinel normalization: nothing points at or past num_nodes.
	for i, n := range nodes {
		if n.exit != Sentinel && n.exit >= built.NumNodes {
			t.Errorf("node %d exit %d not normalized", i, n.exit)
		}
	}

	// Containment: interior boxes hold their children's boxes.
	for i, n := range nodes {
		if n.geom != InteriorGeometryID {
			continue
		}
		for _, ci := range []uint32{n.entry, nodes[n.entry].exit} {
			if ci == Sentinel || int(ci) >= len(nodes) {
				continue
			}
			c := nodes[ci]
			parent := ms3.Box{
				Min: ms3.Vec{X: n.min[0], Y: n.min[1], Z: n.min[2]},
				Max: ms3.Vec{X: n.max[0], Y: n.max[1], Z: n.max[2]},
			}
			child := ms3.Box{
				Min: ms3.Vec{X: c.min[0], Y: c.min[1], Z: c.min[2]},
				Max: ms3.Vec{X: c.max[0], Y: c.max[1], Z: c.max[2]},
			}
			if !parent.ContainsBox(child) {
				t.Errorf("node %d box does not contain child %d", i, ci)
			}
		}
	}

	// Coverage: one leaf per primitive; (geometry, primitive) ids exactly
	// cover the declared geometry.
	leaves := walkBlasLeaves(t, nodes)
	if len(leaves) != 4 {
		t.Fatalf("visited %d leaves, want 4", len(leaves))
	}
	seen := make(map[[2]int32]int)
	for _, l := range leaves {
		seen[[2]int32{l.geom, int32(l.entry)}]++
	}
	for _, want := range [][2]int32{{0, 0}, {0, 1}, {1, 0}, {2, 0}} {
		if seen[want] != 1 {
			t.Errorf("leaf %v seen %d times, want once", want, seen[want])
		}
	}
}

func stageTlasDescriptor(t *testing.T, st *staging.Store, insts []instanceRecord) uint32 {
	t.Helper()
	id := st.Alloc(4 * (1 + instanceRecordWords*len(insts)))
	v := staging.View(st.Bytes(id))
	v.PutI32(0, int32(len(insts)))
	for i, in := range insts {
		rec := 1 + i*instanceRecordWords
		v.PutU32(rec+0, in.mask)
		v.PutU32(rec+1, in.flags)
		v.PutU32(rec+2, in.instanceID)
		v.PutU32(rec+3, in.sbtOffset)
		v.PutI32(rec+4, in.customIndex)
		v.PutU32(rec+5, in.blasEntry)
		v.PutU32(rec+6, in.geomOffset)
		for c, f := range in.aabb {
			v.PutF32(rec+7+c, f)
		}
		for c, f := range in.transform {
			v.PutF32(rec+13+c, f)
		}
	}
	return id
}

type instanceRecord struct {
	mask, flags, instanceID, sbtOffset uint32
	customIndex                        int32
	blasEntry, geomOffset              uint32
	aabb                               [6]float32
	transform                          [12]float32
}

var identityCols = [12]float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}

func TestBuildTLASSingleIdentityInstance(t *testing.T) {
	st := staging.NewStore()
	desc := stageTlasDescriptor(t, st, []instanceRecord{{
		mask:        0xff,
		flags:       2,
		instanceID:  11,
		sbtOffset:   3,
		customIndex: -7,
		blasEntry:   0,
		geomOffset:  5,
		aabb:        [6]float32{0, 0, 0, 1, 1, 1},
		transform:   identityCols,
	}})
	built := BuildTLAS(st, desc)
	if built.NumNodes != 1 {
		t.Fatalf("num nodes = %d, want 1", built.NumNodes)
	}
	n := readTlasNodes(t, st, built)[0]
	if n.isLeaf != 1 {
		t.Fatalf("is_leaf = %d, want 1", n.isLeaf)
	}
	if n.min != [3]float32{0, 0, 0} || n.max != [3]float32{1, 1, 1} {
		t.Errorf("world box = %v..%v, want unit cube", n.min, n.max)
	}
	if n.entry != 0 || n.exit != Sentinel {
		t.Errorf("entry/exit = %d/%#x, want 0/sentinel", n.entry, n.exit)
	}
	if n.mask != 0xff || n.flags != 2 || n.instanceID != 11 || n.sbtInstanceOffset != 3 ||
		n.customIndex != -7 || n.blasGeometryOffset != 5 {
		t.Errorf("instance payload not carried verbatim: %+v", n)
	}
	if n.toWorld != identityCols || n.toObject != identityCols {
		t.Errorf("transforms not identity: world %v object %v", n.toWorld, n.toObject)
	}
}

func TestBuildTLASTransforms(t *testing.T) {
	st := staging.NewStore()
	// Scale by 2 and translate by (10, 0, -1).
	xf := [12]float32{2, 0, 0, 0, 2, 0, 0, 0, 2, 10, 0, -1}
	far := [12]float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 100, 100, 100}
	desc := stageTlasDescriptor(t, st, []instanceRecord{
		{mask: 1, instanceID: 0, blasEntry: 4, aabb: [6]float32{0, 0, 0, 1, 1, 1}, transform: xf},
		{mask: 1, instanceID: 1, blasEntry: 9, aabb: [6]float32{0, 0, 0, 1, 1, 1}, transform: far},
	})
	built := BuildTLAS(st, desc)
	if built.NumNodes != 3 {
		t.Fatalf("num nodes = %d, want 3", built.NumNodes)
	}
	nodes := readTlasNodes(t, st, built)
	if nodes[0].isLeaf != 0 {
		t.Fatalf("root marked leaf")
	}
	// Interior leaf-only fields are zeroed.
	if nodes[0].mask != 0 || nodes[0].instanceID != 0 || nodes[0].toWorld != ([12]float32{}) {
		t.Errorf("interior leaf fields not zeroed: %+v", nodes[0])
	}
	var scaled *tlasNode
	for i := range nodes {
		if nodes[i].isLeaf == 1 && nodes[i].instanceID == 0 {
			scaled = &nodes[i]
		}
	}
	if scaled == nil {
		t.Fatal("scaled instance leaf not found")
	}
	if scaled.min != [3]float32{10, 0, -1} || scaled.max != [3]float32{12, 2, 1} {
		t.Errorf("world box = %v..%v, want (10,0,-1)..(12,2,1)", scaled.min, scaled.max)
	}
	if scaled.entry != 4 {
		t.Errorf("leaf entry = %d, want blas entry 4", scaled.entry)
	}
	// inv(M)*M = I within tolerance.
	m := ms3.Mat4x3FromCols(scaled.toWorld)
	inv := ms3.Mat4x3FromCols(scaled.toObject)
	prod := ms3.Mul(inv, m)
	id := ms3.IdentityMat4x3().Cols()
	for c, f := range prod.Cols() {
		if diff := float64(f - id[c]); math.Abs(diff) > 1e-4 {
			t.Errorf("inv*M element %d = %g, want %g", c, f, id[c])
		}
	}
}

func TestBuildBLASRejectsMalformedDescriptors(t *testing.T) {
	cases := []struct {
		name string
		desc []int32
	}{
		{"zero geometries", []int32{0, 1}},
		{"zero primitives", []int32{1, 0, 0, 1, 0, 0, -1, 0}},
		{"short record", []int32{1, 1, 0, 1, 0}},
		{"bad geometry type", []int32{1, 1, 7, 1, 0, 0, -1, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := staging.NewStore()
			stageF32(t, st, 0, 0, 0, 1, 0, 0, 0, 1, 0) // id 0
			desc := stageI32(t, st, tc.desc...)
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			BuildBLAS(st, desc)
		})
	}
}

func TestFlattenDeterministic(t *testing.T) {
	boxes := []ms3.Box{
		ms3.NewBox(0, 0, 0, 1, 1, 1),
		ms3.NewBox(5, 0, 0, 6, 1, 1),
		ms3.NewBox(2, 0, 0, 3, 1, 1),
		ms3.NewBox(9, 0, 0, 10, 1, 1),
		ms3.NewBox(7, 0, 0, 8, 1, 1),
	}
	a := buildTree(boxes).flatten()
	b := buildTree(boxes).flatten()
	if len(a) != len(b) || len(a) != 2*len(boxes)-1 {
		t.Fatalf("node counts %d, %d, want %d", len(a), len(b), 2*len(boxes)-1)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("flatten not deterministic at node %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNodeStrides(t *testing.T) {
	if got := blasNodeStride(); got != 48 {
		t.Errorf("BLAS node stride = %d, want 48", got)
	}
	if got := tlasNodeStride(); got != 176 {
		t.Errorf("TLAS node stride = %d, want 176", got)
	}
	// Serialized buffers are little-endian: spot-check the sentinel bytes.
	st := staging.NewStore()
	vb := stageF32(t, st, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	desc := stageI32(t, st, 1, 1, 0, 1, int32(vb), 0, -1, 0)
	built := BuildBLAS(st, desc)
	buf := st.Bytes(built.Buffer)
	if got := binary.LittleEndian.Uint32(buf[36:]); got != Sentinel {
		t.Errorf("exit word = %#x, want sentinel", got)
	}
}
