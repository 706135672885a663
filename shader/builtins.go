package shader

// BuiltIn tags a ray-tracing built-in global that the rewriter turns into an
// entry-point parameter. Tag values are part of the host interface and are
// stable.
type BuiltIn uint32

const (
	GlPrimitiveID BuiltIn = iota
	GlInstanceID
	GlInstanceCustomIndexEXT
	GlGeometryIndexEXT
	GlWorldRayOriginEXT
	GlWorldRayDirectionEXT
	GlObjectRayOriginEXT
	GlObjectRayDirectionEXT
	GlRayTminEXT
	GlRayTmaxEXT
	GlIncomingRayFlagsEXT
	GlHitTEXT
	GlHitKindEXT
	GlObjectToWorldEXT
	GlWorldToObjectEXT
	GlWorldToObject3x4EXT
	GlObjectToWorld3x4EXT

	numBuiltIns
)

var builtinNames = [numBuiltIns]string{
	GlPrimitiveID:            "gl_PrimitiveID",
	GlInstanceID:             "gl_InstanceID",
	GlInstanceCustomIndexEXT: "gl_InstanceCustomIndexEXT",
	GlGeometryIndexEXT:       "gl_GeometryIndexEXT",
	GlWorldRayOriginEXT:      "gl_WorldRayOriginEXT",
	GlWorldRayDirectionEXT:   "gl_WorldRayDirectionEXT",
	GlObjectRayOriginEXT:     "gl_ObjectRayOriginEXT",
	GlObjectRayDirectionEXT:  "gl_ObjectRayDirectionEXT",
	GlRayTminEXT:             "gl_RayTminEXT",
	GlRayTmaxEXT:             "gl_RayTmaxEXT",
	GlIncomingRayFlagsEXT:    "gl_IncomingRayFlagsEXT",
	GlHitTEXT:                "gl_HitTEXT",
	GlHitKindEXT:             "gl_HitKindEXT",
	GlObjectToWorldEXT:       "gl_ObjectToWorldEXT",
	GlWorldToObjectEXT:       "gl_WorldToObjectEXT",
	GlWorldToObject3x4EXT:    "gl_WorldToObject3x4EXT",
	GlObjectToWorld3x4EXT:    "gl_ObjectToWorld3x4EXT",
}

var builtinByName = func() map[string]BuiltIn {
	m := make(map[string]BuiltIn, numBuiltIns)
	for b, name := range builtinNames {
		m[name] = BuiltIn(b)
	}
	return m
}()

// Name returns the GLSL source spelling, e.g. "gl_PrimitiveID".
func (b BuiltIn) Name() string { return builtinNames[b] }

// ParamName returns the spelling used as an entry-point parameter:
// the gl_ prefix replaced by the project prefix.
func (b BuiltIn) ParamName() string {
	return BuiltinPrefix + builtinNames[b][len("gl_"):]
}

// GLSLType returns the parameter type the built-in is passed as.
func (b BuiltIn) GLSLType() string {
	switch b {
	case GlPrimitiveID, GlInstanceID, GlInstanceCustomIndexEXT, GlGeometryIndexEXT:
		return "int"
	case GlWorldRayOriginEXT, GlWorldRayDirectionEXT, GlObjectRayOriginEXT, GlObjectRayDirectionEXT:
		return "vec3"
	case GlRayTminEXT, GlRayTmaxEXT, GlHitTEXT:
		return "float"
	case GlIncomingRayFlagsEXT, GlHitKindEXT:
		return "uint"
	case GlObjectToWorldEXT, GlWorldToObjectEXT:
		return "mat4x3"
	case GlWorldToObject3x4EXT, GlObjectToWorld3x4EXT:
		return "mat3x4"
	}
	panic("shader: unknown built-in")
}
