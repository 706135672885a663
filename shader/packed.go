package shader

import (
	"fmt"

	"github.com/codedhead/webrtx/glsl"
)

// Fixed text identifiers of the rewritten interface. These are part of the
// contract with the runtime's generated glue code and must stay stable.
const (
	// ParamHitAttributes names the flat word buffer hit attributes are
	// packed into and unpacked from.
	ParamHitAttributes = "_crt_hattrs"
	// ParamShaderRecordWordOffset is the SBT word offset parameter appended
	// to every rewritten entry point.
	ParamShaderRecordWordOffset = "_crt_sr_wd_offset"
	// InoutParamHitReport is the any-hit stage's hit report parameter.
	InoutParamHitReport = "_crt_hit_report"
	// OutParamPotentialHit is the intersection stage's candidate-t parameter.
	OutParamPotentialHit = "_crt_potential_hit_t"
	// SBTBufferName is the word-addressable shader binding table buffer.
	SBTBufferName = "_crt_sbt_buf"
	// StructPrefix prefixes struct types synthesized from named blocks.
	StructPrefix = "_crt_struct_"
	// BuiltinPrefix replaces "gl_" on rewritten built-in references.
	BuiltinPrefix = "_crt_"
	// AccelerationStructureBlockName names the interface block an
	// accelerationStructureEXT variable is lowered into.
	AccelerationStructureBlockName = "_crt_AccelerationStructureEXT"

	shaderRecordLayoutID = "shaderRecordEXT"
)

func payloadCanonicalName(location int64) string {
	return fmt.Sprintf("%sray_payload_loc_%d", BuiltinPrefix, location)
}

// packedVariable is one variable of a packed-data set: a scalar, vector or
// matrix possibly arrayed over literal extents.
type packedVariable struct {
	typ  string
	name string
	dims []int64
}

// packedData is either the hit-attribute set or the shader-record set of a
// translation unit: a single variable, or the fields of a block. Blocks
// with an instance identifier get a synthesized struct type.
type packedData struct {
	structName string // empty unless the source block was identified
	blockIdent string
	vars       []packedVariable
}

// scalar word counts per packable GLSL type.
var typeWords = map[string]uint32{
	"bool": 1, "int": 1, "uint": 1, "float": 1,
	"vec2": 2, "ivec2": 2, "uvec2": 2,
	"vec3": 3, "ivec3": 3, "uvec3": 3,
	"vec4": 4, "ivec4": 4, "uvec4": 4,
	"mat4": 16,
}

// pack/unpack macro name components; narrower than typeWords on purpose —
// the runtime only generates buffer accessors for these.
var packTypeNames = map[string]string{
	"uint": "UINT", "float": "FLOAT",
	"vec2": "VEC2", "vec3": "VEC3", "vec4": "VEC4",
	"mat4": "MAT4",
}

func (v *packedVariable) numWords() (uint32, error) {
	w, ok := typeWords[v.typ]
	if !ok {
		return 0, fmt.Errorf("shader: unsupported type for packing: %s", v.typ)
	}
	for _, d := range v.dims {
		w *= uint32(d)
	}
	return w, nil
}

func (d *packedData) totalWords() (uint32, error) {
	var total uint32
	for i := range d.vars {
		w, err := d.vars[i].numWords()
		if err != nil {
			return 0, err
		}
		total += w
	}
	return total, nil
}

// literalDims converts parsed array dimensions, rejecting the shapes the
// packer cannot lay out.
func literalDims(dims []glsl.ArrayDim) ([]int64, error) {
	out := make([]int64, 0, len(dims))
	for _, d := range dims {
		if !d.Sized {
			if d.Raw == "" {
				return nil, fmt.Errorf("shader: unsupported unsized array dimension")
			}
			return nil, fmt.Errorf("shader: unsupported array index expression %q", d.Raw)
		}
		out = append(out, d.N)
	}
	return out, nil
}

// blockPackedData converts an interface block into packed data, merging
// type-level and declarator-level array dimensions per field variable.
func blockPackedData(b *glsl.BlockDecl) (*packedData, error) {
	d := &packedData{}
	if b.Instance != "" {
		d.structName = StructPrefix + b.Instance
		d.blockIdent = b.Instance
	}
	for fi := range b.Fields {
		f := &b.Fields[fi]
		typeDims, err := literalDims(f.Type.Dims)
		if err != nil {
			return nil, err
		}
		for di := range f.Decls {
			dims, err := literalDims(f.Decls[di].Dims)
			if err != nil {
				return nil, err
			}
			d.vars = append(d.vars, packedVariable{
				typ:  f.Type.Name,
				name: f.Decls[di].Name,
				dims: append(append([]int64{}, typeDims...), dims...),
			})
		}
	}
	return d, nil
}
