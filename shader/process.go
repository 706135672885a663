// Package shader rewrites ray-tracing GLSL shaders for a runtime without
// hardware ray-tracing primitives. Extension-specific declarations — hit
// attributes, shader-record blocks, ray payloads, acceleration-structure
// descriptors and built-in ray globals — are lowered to ordinary uniforms,
// struct types and entry-point parameters, and the rewriter emits the text
// fragments the runtime's generated glue needs to pack and unpack the
// lowered data through flat word buffers.
package shader

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codedhead/webrtx/glsl"
)

// ErrEntryPointNotFound reports that the named entry function has no
// definition in the translation unit.
var ErrEntryPointNotFound = errors.New("entry point not found")

// Info is the result of rewriting one translation unit.
type Info struct {
	// ProcessedShader is the rewritten translation unit.
	ProcessedShader string
	// EntryPointPrototype is the rewritten entry prototype, without body.
	EntryPointPrototype string
	// ForwardTypeDecls holds struct declarations synthesized from named
	// hit-attribute blocks, for inclusion ahead of the generated glue.
	ForwardTypeDecls string
	// UnpackingCode initializes the lowered locals from the flat buffers
	// (declaration-only for the intersection stage).
	UnpackingCode string
	// InvocationCode calls the rewritten entry, forwarding each parameter
	// by name.
	InvocationCode string
	// PackingCode mirrors UnpackingCode for the intersection stage.
	PackingCode string
	// GlobalVariables lists the referenced ray-tracing built-ins in
	// first-reference order.
	GlobalVariables []BuiltIn
	// HitAttributesNumWords is the flat word count of the hit-attribute
	// data, zero when the shader declares none.
	HitAttributesNumWords uint32
	// NeedShaderRecordData reports whether a shader-record block was seen.
	NeedShaderRecordData bool
	// MaxBindSetNumber is the highest layout(set = N) seen, -1 when none.
	MaxBindSetNumber int
}

// Process rewrites a ray-tracing shader. shaderStage is the stage name the
// pipeline compiles the shader as ("rchit", "rahit", "rint", "rmiss", ...);
// the entry function entryPointName is renamed to newEntryPointName and
// gains the lowered data as parameters.
//
// Parse failures and unsupported constructs are reported as errors with no
// partial output. Duplicate hit-attribute or shader-record declarations are
// programming errors and panic.
func Process(code, shaderStage, entryPointName, newEntryPointName string) (*Info, error) {
	unit, err := glsl.Parse(code)
	if err != nil {
		return nil, err
	}
	a := newAnalyzer(shaderStage, entryPointName, newEntryPointName)

	for _, d := range unit.Decls {
		if err := a.classify(d); err != nil {
			return nil, err
		}
	}

	var entry *glsl.ExternalDecl
	for _, d := range unit.Decls {
		if d.Kind != glsl.DeclFunc {
			continue
		}
		a.renamePayloads(d)
		if d.Func.Name == a.entryName && d.Func.BodyStart >= 0 {
			entry = d
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("shader: %w: %q", ErrEntryPointNotFound, entryPointName)
	}
	if err := a.rewriteEntry(entry); err != nil {
		return nil, err
	}

	info := &Info{
		ProcessedShader:      unit.String(),
		EntryPointPrototype:  a.prototype,
		ForwardTypeDecls:     strings.Join(a.forwardDecls, "\n"),
		InvocationCode:       a.invocation,
		GlobalVariables:      a.builtins,
		NeedShaderRecordData: a.shaderRecord != nil,
		MaxBindSetNumber:     a.maxBindSet,
	}
	if h := a.hitAttributes; h != nil {
		info.HitAttributesNumWords, err = h.totalWords()
		if err != nil {
			return nil, err
		}
		if shaderStage == "rint" {
			info.UnpackingCode = declareFragment(h)
			info.PackingCode, err = packFragment(h, ParamHitAttributes, intoFloatBuffer)
		} else {
			info.UnpackingCode, err = unpackFragment(h, ParamHitAttributes, fromFloatBuffer)
		}
		if err != nil {
			return nil, err
		}
	}
	slog.Debug("shader: processed translation unit",
		"stage", shaderStage,
		"entry", entryPointName,
		"builtins", len(info.GlobalVariables),
		"hit_attribute_words", info.HitAttributesNumWords,
		"shader_record", info.NeedShaderRecordData)
	return info, nil
}
