package shader

import (
	"fmt"
	"strings"

	"github.com/codedhead/webrtx/glsl"
)

// analyzer accumulates everything the rewrite of one translation unit
// discovers: packed-data sets, payload locations, referenced built-ins in
// first-reference order, and the highest bind set number seen.
type analyzer struct {
	stage        string
	entryName    string
	newEntryName string

	hitAttributes *packedData
	shaderRecord  *packedData
	payloadLoc    map[string]int64
	builtins      []BuiltIn
	builtinSeen   [numBuiltIns]bool
	maxBindSet    int
	forwardDecls  []string
	prototype     string
	invocation    string
}

func newAnalyzer(stage, entryName, newEntryName string) *analyzer {
	return &analyzer{
		stage:        stage,
		entryName:    entryName,
		newEntryName: newEntryName,
		payloadLoc:   make(map[string]int64),
		maxBindSet:   -1,
	}
}

// classify inspects one top-level declaration and applies the declaration-
// level rewrite: removal, replacement, or tracking only.
func (a *analyzer) classify(d *glsl.ExternalDecl) error {
	switch d.Kind {
	case glsl.DeclPreproc:
		a.classifyPreproc(d)
	case glsl.DeclVar:
		return a.classifyVar(d)
	case glsl.DeclBlock:
		return a.classifyBlock(d)
	}
	return nil
}

func (a *analyzer) classifyPreproc(d *glsl.ExternalDecl) {
	p := d.Preproc
	switch p.Directive {
	case "version":
		d.Removed = true
	case "extension":
		if strings.HasPrefix(p.Rest, "GL_EXT_ray_tracing") {
			d.Removed = true
		}
	case "pragma":
		if strings.Contains(p.Rest, "shader_stage(") {
			d.Removed = true
		}
	}
}

func (a *analyzer) classifyVar(d *glsl.ExternalDecl) error {
	v := d.Var
	if err := a.trackBindSet(&v.Qual); err != nil {
		return err
	}

	if v.Qual.HasStorage("hitAttributeEXT") {
		if a.hitAttributes != nil {
			panic("shader: duplicate hit attribute declaration")
		}
		if len(v.Decls) != 1 {
			return fmt.Errorf("shader: hit attribute must declare exactly one variable")
		}
		dims, err := literalDims(append(append([]glsl.ArrayDim{}, v.Type.Dims...), v.Decls[0].Dims...))
		if err != nil {
			return err
		}
		a.hitAttributes = &packedData{vars: []packedVariable{{
			typ:  v.Type.Name,
			name: v.Decls[0].Name,
			dims: dims,
		}}}
		d.Removed = true
		return nil
	}

	if v.Type.Name == "accelerationStructureEXT" {
		if len(v.Decls) != 1 {
			return fmt.Errorf("shader: acceleration structure must declare exactly one variable")
		}
		// Lower into an interface block with the same qualifier holding a
		// single uvec2 named after the original variable.
		qual := glsl.Text(d.Tokens[:v.Qual.End])
		d.Replacement = fmt.Sprintf("%s %s { uvec2 %s; };",
			qual, AccelerationStructureBlockName, v.Decls[0].Name)
		return nil
	}

	switch {
	case v.Qual.HasStorage("rayPayloadInEXT"):
		loc, ok := v.Qual.LayoutInt("location")
		if !ok {
			return fmt.Errorf("shader: ray payload %q has no location", declName(v))
		}
		if len(v.Decls) != 1 {
			return fmt.Errorf("shader: ray payload must declare exactly one variable")
		}
		a.payloadLoc[v.Decls[0].Name] = loc
		d.Removed = true
	case v.Qual.HasStorage("rayPayloadEXT"):
		loc, ok := v.Qual.LayoutInt("location")
		if !ok {
			return fmt.Errorf("shader: ray payload %q has no location", declName(v))
		}
		if len(v.Decls) != 1 {
			return fmt.Errorf("shader: ray payload must declare exactly one variable")
		}
		a.payloadLoc[v.Decls[0].Name] = loc
		// Keep the declaration under its canonical name with the
		// ray-tracing qualifier stripped.
		d.Tokens[v.Decls[0].NameTok].Text = payloadCanonicalName(loc)
		rest := glsl.Text(d.Tokens[v.Qual.End:])
		d.Replacement = d.LeadingTrivia() + strings.TrimLeft(rest, " \t")
	}
	return nil
}

func (a *analyzer) classifyBlock(d *glsl.ExternalDecl) error {
	b := d.Block
	if err := a.trackBindSet(&b.Qual); err != nil {
		return err
	}
	fieldsText := glsl.Text(d.Tokens[b.LBrace : b.RBrace+1])

	if b.Qual.HasLayout(shaderRecordLayoutID) {
		if a.shaderRecord != nil {
			panic("shader: duplicate shader record declaration")
		}
		packed, err := blockPackedData(b)
		if err != nil {
			return err
		}
		a.shaderRecord = packed
		if packed.structName != "" {
			// The struct type replaces the block right where it stood.
			d.Replacement = fmt.Sprintf("%sstruct %s%s;", d.LeadingTrivia(), packed.structName, fieldsText)
		} else {
			d.Removed = true
		}
		return nil
	}

	if b.Qual.HasStorage("hitAttributeEXT") {
		if a.hitAttributes != nil {
			panic("shader: duplicate hit attribute declaration")
		}
		packed, err := blockPackedData(b)
		if err != nil {
			return err
		}
		a.hitAttributes = packed
		if packed.structName != "" {
			a.forwardDecls = append(a.forwardDecls,
				fmt.Sprintf("struct %s%s;", packed.structName, fieldsText))
		}
		d.Removed = true
	}
	return nil
}

func (a *analyzer) trackBindSet(q *glsl.Qualifier) error {
	if !q.HasLayout("set") {
		return nil
	}
	set, ok := q.LayoutInt("set")
	if !ok {
		return fmt.Errorf("shader: unsupported bind set number expression")
	}
	if int(set) > a.maxBindSet {
		a.maxBindSet = int(set)
	}
	return nil
}

// renamePayloads rewrites recorded ray-payload identifiers to their
// canonical names throughout a function body.
func (a *analyzer) renamePayloads(d *glsl.ExternalDecl) {
	glsl.VisitIdents(d.Body(), func(name string) (string, bool) {
		loc, ok := a.payloadLoc[name]
		if !ok {
			return "", false
		}
		return payloadCanonicalName(loc), true
	})
}

func (a *analyzer) addBuiltin(b BuiltIn) {
	if a.builtinSeen[b] {
		return
	}
	a.builtinSeen[b] = true
	a.builtins = append(a.builtins, b)
}

// rewriteEntry renames the entry function, collects and rewrites built-in
// references in its body, appends the lowered parameters, and splices the
// shader-record unpacking block ahead of the original statements.
func (a *analyzer) rewriteEntry(d *glsl.ExternalDecl) error {
	f := d.Func
	if len(f.Params) != 0 {
		return fmt.Errorf("shader: entry point %q must not declare parameters", f.Name)
	}
	body := d.Body()

	checkSingleReportIntersection(body)

	glsl.VisitIdents(body, func(name string) (string, bool) {
		b, ok := builtinByName[name]
		if !ok {
			return "", false
		}
		a.addBuiltin(b)
		return b.ParamName(), true
	})
	if a.stage == "rint" {
		// t-min/t-max may hide behind macro expansion; pass them regardless.
		a.addBuiltin(GlRayTminEXT)
		a.addBuiltin(GlRayTmaxEXT)
	}

	params := a.entryParams()
	a.prototype = prototypeText(f.RetType.Name, a.newEntryName, params)
	a.invocation = invocationText(a.newEntryName, params)

	var sbtUnpack string
	if a.shaderRecord != nil {
		frag, err := unpackFragment(a.shaderRecord, SBTBufferName, fromSBTBuffer)
		if err != nil {
			return err
		}
		sbtUnpack = "\n" + frag
	}
	d.Replacement = d.LeadingTrivia() + a.prototype +
		body[0].Trivia + "{" + sbtUnpack + glsl.Text(body[1:])
	return nil
}

// entryParams assembles the appended parameter list: hit attributes, the
// SBT word offset, referenced built-ins in first-reference order, then the
// stage-specific extras.
func (a *analyzer) entryParams() []param {
	var params []param
	if h := a.hitAttributes; h != nil {
		qual := ""
		if a.stage == "rint" {
			qual = "out"
		}
		if h.blockIdent != "" {
			params = append(params, param{qual: qual, typ: h.structName, name: h.blockIdent})
		} else {
			for i := range h.vars {
				v := &h.vars[i]
				params = append(params, param{qual: qual, typ: v.typ, name: v.name, dims: v.dims})
			}
		}
	}
	// The record offset is always forwarded: an intersection shader may
	// invoke an any-hit stage that does need its shader record.
	params = append(params, param{typ: "uint", name: ParamShaderRecordWordOffset})
	for _, b := range a.builtins {
		params = append(params, param{typ: b.GLSLType(), name: b.ParamName()})
	}
	if a.stage == "rahit" {
		params = append(params, param{qual: "inout", typ: "uint", name: InoutParamHitReport})
	}
	if a.stage == "rint" {
		params = append(params, param{qual: "out", typ: "float", name: OutParamPotentialHit})
	}
	return params
}

// checkSingleReportIntersection enforces the single-call-per-statement
// contract on reportIntersectionEXT.
func checkSingleReportIntersection(body []glsl.Token) {
	calls := 0
	for _, t := range body {
		switch {
		case t.Kind == glsl.Ident && t.Text == "reportIntersectionEXT":
			calls++
			if calls > 1 {
				panic("shader: only a single reportIntersectionEXT call per statement is supported")
			}
		case t.Kind == glsl.Punct && (t.Text == ";" || t.Text == "{" || t.Text == "}"):
			calls = 0
		}
	}
}

func declName(v *glsl.VarDecl) string {
	if len(v.Decls) > 0 {
		return v.Decls[0].Name
	}
	return "<anonymous>"
}
