package glsl

// TranslationUnit is a parsed shader: top-level declarations in source
// order plus the trivia after the final token.
type TranslationUnit struct {
	Decls    []*ExternalDecl
	Trailing string
}

// DeclKind discriminates ExternalDecl.
type DeclKind uint8

const (
	// DeclOther is a declaration the rewriter never inspects (struct
	// definitions, precision statements, lone semicolons); its span is
	// carried verbatim.
	DeclOther DeclKind = iota
	// DeclPreproc is a preprocessor line.
	DeclPreproc
	// DeclVar is an init-declarator list.
	DeclVar
	// DeclBlock is an interface block.
	DeclBlock
	// DeclFunc is a function definition or prototype.
	DeclFunc
)

// ExternalDecl is one top-level declaration. Tokens is the original span;
// all structured token indices below are relative to it. Setting Removed
// drops the declaration from output; a non-empty Replacement prints instead
// of the span (transformers include any desired leading whitespace).
type ExternalDecl struct {
	Kind        DeclKind
	Tokens      []Token
	Removed     bool
	Replacement string

	Preproc *Preproc
	Var     *VarDecl
	Block   *BlockDecl
	Func    *FuncDecl
}

// LeadingTrivia returns the whitespace and comments preceding the
// declaration's first token.
func (d *ExternalDecl) LeadingTrivia() string {
	if len(d.Tokens) == 0 {
		return ""
	}
	return d.Tokens[0].Trivia
}

// Preproc describes a preprocessor line. Directive is the word following
// '#' ("version", "extension", "pragma", ...); Rest is the remainder of the
// line with surrounding space trimmed.
type Preproc struct {
	Directive string
	Rest      string
}

// LayoutItem is one entry of a layout(...) qualifier.
type LayoutItem struct {
	Name     string
	HasValue bool
	// Known reports whether Value holds the item's integer constant;
	// non-literal values leave it false.
	Known bool
	Value int64
}

// Qualifier is the full qualifier sequence preceding a type or block name.
type Qualifier struct {
	Layout  []LayoutItem
	Storage []string
	// End is the index of the first token after the qualifier sequence.
	End int
}

// HasStorage reports whether the qualifier carries the given storage word.
func (q *Qualifier) HasStorage(name string) bool {
	for _, s := range q.Storage {
		if s == name {
			return true
		}
	}
	return false
}

// HasLayout reports whether a layout item with the given name is present.
func (q *Qualifier) HasLayout(name string) bool {
	for i := range q.Layout {
		if q.Layout[i].Name == name {
			return true
		}
	}
	return false
}

// LayoutInt returns the integer value of the named layout item.
func (q *Qualifier) LayoutInt(name string) (int64, bool) {
	for i := range q.Layout {
		if q.Layout[i].Name == name && q.Layout[i].Known {
			return q.Layout[i].Value, true
		}
	}
	return 0, false
}

// ArrayDim is one array dimension. Sized is false for unsized dimensions
// and for extents that are not integer literals; Raw preserves the extent
// text for diagnostics.
type ArrayDim struct {
	Sized bool
	N     int64
	Raw   string
}

// TypeSpec is a type name with any array dimensions attached to the type
// itself (`float[2] x` style).
type TypeSpec struct {
	Name string
	Dims []ArrayDim
}

// Declarator is one declared name: `name[dims] = init`.
type Declarator struct {
	Name    string
	NameTok int
	Dims    []ArrayDim
	HasInit bool
}

// VarDecl is an init-declarator list declaration.
type VarDecl struct {
	Qual Qualifier
	Type TypeSpec
	// TypeEnd is the index of the first token after the type specifier.
	TypeEnd int
	Decls   []Declarator
}

// Field is one member declaration of an interface block.
type Field struct {
	Type  TypeSpec
	Decls []Declarator
}

// BlockDecl is an interface block: `qualifier Name { fields } [instance];`.
type BlockDecl struct {
	Qual   Qualifier
	Name   string
	Fields []Field
	// LBrace and RBrace index the braces delimiting the field list.
	LBrace, RBrace int
	Instance       string
	// InstanceTok is -1 when the block has no instance name.
	InstanceTok int
}

// Param is one function parameter.
type Param struct {
	Qual []string
	Type TypeSpec
	Name string
	Dims []ArrayDim
}

// FuncDecl is a function definition or prototype.
type FuncDecl struct {
	RetType TypeSpec
	Name    string
	NameTok int
	Params  []Param
	// BodyStart and BodyEnd index the braces of the definition body,
	// inclusive. BodyStart is -1 for a bare prototype.
	BodyStart, BodyEnd int
}

// Body returns the body token span including both braces, or nil for a
// prototype.
func (d *ExternalDecl) Body() []Token {
	f := d.Func
	if f == nil || f.BodyStart < 0 {
		return nil
	}
	return d.Tokens[f.BodyStart : f.BodyEnd+1]
}
