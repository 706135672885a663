package shader

import (
	"fmt"
	"strings"
)

// buffer-kind suffixes of the pack/unpack accessor macros.
const (
	fromFloatBuffer = "_FROM_FLOAT_BUFFER"
	intoFloatBuffer = "_INTO_FLOAT_BUFFER"
	fromSBTBuffer   = "_FROM_SBT_BUFFER"
)

// dimsSuffix renders array dimensions as a declarator suffix, "[2][3]".
func dimsSuffix(dims []int64) string {
	var sb strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&sb, "[%d]", d)
	}
	return sb.String()
}

// unpackFragment emits one local declaration per packed variable, each
// initialized from UNPACK_<TYPE><suffix>(buf, word_offset) calls. Word
// offsets advance by element word count; arrays expand element-wise in
// row-major index order. Identified blocks collapse into a single
// struct-typed local with a brace initializer over the same call sequence.
func unpackFragment(d *packedData, bufName, suffix string) (string, error) {
	offset := uint32(0)
	var stmts []string
	var blockInits []string
	for i := range d.vars {
		v := &d.vars[i]
		typeName, ok := packTypeNames[v.typ]
		if !ok {
			return "", fmt.Errorf("shader: unsupported type for packing: %s", v.typ)
		}
		words := typeWords[v.typ]
		init := initializerList(v.dims, func() string {
			call := fmt.Sprintf("UNPACK_%s%s(%s, %du)", typeName, suffix, bufName, offset)
			offset += words
			return call
		})
		if d.blockIdent != "" {
			blockInits = append(blockInits, init)
		} else {
			stmts = append(stmts, fmt.Sprintf("%s %s%s = %s;", v.typ, v.name, dimsSuffix(v.dims), init))
		}
	}
	if d.blockIdent != "" {
		return fmt.Sprintf("%s %s = { %s };", d.structName, d.blockIdent, strings.Join(blockInits, ", ")), nil
	}
	return strings.Join(stmts, "\n"), nil
}

// declareFragment emits the packed variables as plain local declarations
// with no initializer; the intersection stage fills them before packing.
func declareFragment(d *packedData) string {
	if d.blockIdent != "" {
		return fmt.Sprintf("%s %s;", d.structName, d.blockIdent)
	}
	stmts := make([]string, 0, len(d.vars))
	for i := range d.vars {
		v := &d.vars[i]
		stmts = append(stmts, fmt.Sprintf("%s %s%s;", v.typ, v.name, dimsSuffix(v.dims)))
	}
	return strings.Join(stmts, "\n")
}

// packFragment mirrors unpackFragment: one PACK_<TYPE><suffix>(buf,
// word_offset, value) statement per element, in the identical element and
// word-offset order, dereferencing through the block identifier when the
// data came from an identified block.
func packFragment(d *packedData, bufName, suffix string) (string, error) {
	offset := uint32(0)
	deref := ""
	if d.blockIdent != "" {
		deref = d.blockIdent + "."
	}
	var stmts []string
	for i := range d.vars {
		v := &d.vars[i]
		typeName, ok := packTypeNames[v.typ]
		if !ok {
			return "", fmt.Errorf("shader: unsupported type for packing: %s", v.typ)
		}
		words := typeWords[v.typ]
		eachElement(v.dims, func(indices []int64) {
			var idx strings.Builder
			for _, ix := range indices {
				fmt.Fprintf(&idx, "[%d]", ix)
			}
			stmts = append(stmts, fmt.Sprintf("PACK_%s%s(%s, %du, %s%s%s);",
				typeName, suffix, bufName, offset, deref, v.name, idx.String()))
			offset += words
		})
	}
	return strings.Join(stmts, "\n"), nil
}

// initializerList builds the nested brace initializer for the given array
// shape, calling element once per scalar element in row-major order.
func initializerList(dims []int64, element func() string) string {
	if len(dims) == 0 {
		return element()
	}
	parts := make([]string, 0, dims[0])
	for i := int64(0); i < dims[0]; i++ {
		parts = append(parts, initializerList(dims[1:], element))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// eachElement walks the array shape in row-major index order.
func eachElement(dims []int64, visit func(indices []int64)) {
	var walk func(prefix []int64, rest []int64)
	walk = func(prefix, rest []int64) {
		if len(rest) == 0 {
			visit(prefix)
			return
		}
		for i := int64(0); i < rest[0]; i++ {
			walk(append(prefix, i), rest[1:])
		}
	}
	walk(nil, dims)
}

// param is one synthesized entry-point parameter.
type param struct {
	qual string // "", "out" or "inout"
	typ  string
	name string
	dims []int64
}

func (p *param) decl() string {
	var sb strings.Builder
	if p.qual != "" {
		sb.WriteString(p.qual)
		sb.WriteByte(' ')
	}
	sb.WriteString(p.typ)
	sb.WriteByte(' ')
	sb.WriteString(p.name)
	sb.WriteString(dimsSuffix(p.dims))
	return sb.String()
}

// prototypeText serializes the rewritten entry-point prototype.
func prototypeText(retType, name string, params []param) string {
	decls := make([]string, len(params))
	for i := range params {
		decls[i] = params[i].decl()
	}
	return fmt.Sprintf("%s %s(%s)", retType, name, strings.Join(decls, ", "))
}

// invocationText builds the matching call statement, forwarding every
// parameter by name in declaration order.
func invocationText(name string, params []param) string {
	names := make([]string, len(params))
	for i := range params {
		names[i] = params[i].name
	}
	return fmt.Sprintf("%s(%s);", name, strings.Join(names, ", "))
}
