package cnext

import "fmt"

// SymbolKind classifies what kind of declaration a Symbol stands for.
type SymbolKind int

const (
	SymScope SymbolKind = iota
	SymStruct
	SymEnum
	SymBitmap
	SymRegister
	SymRegisterMember
	SymVariable
	SymField
	SymConst
	SymFunction
	SymMethod
	SymEnumMember
	SymBitmapField
)

func (k SymbolKind) String() string {
	switch k {
	case SymScope:
		return "scope"
	case SymStruct:
		return "struct"
	case SymEnum:
		return "enum"
	case SymBitmap:
		return "bitmap"
	case SymRegister:
		return "register"
	case SymRegisterMember:
		return "register_member"
	case SymVariable:
		return "variable"
	case SymField:
		return "field"
	case SymConst:
		return "const"
	case SymFunction:
		return "function"
	case SymMethod:
		return "method"
	case SymEnumMember:
		return "enum_member"
	case SymBitmapField:
		return "bitmap_field"
	default:
		return "unknown"
	}
}

// Symbol is one entry in a SymbolTable. FQN is the mangled name the
// emitter writes out verbatim (Scope_member, Outer_Inner, and so on);
// Name is the unqualified source name.
type Symbol struct {
	ID         int
	Name       string
	FQN        string
	Kind       SymbolKind
	ParentFQN  string
	Type             Type
	Access           AccessModifier
	Overflow         OverflowPolicy
	OverflowExplicit bool
	IsAtomic         bool
	IsParam          bool
	SourceFile       string
	Line             int
}

// SymbolTable is the per-file result of symbol collection: every
// declared name reachable from the file, keyed by its fully-qualified
// (mangled) name, plus an index by bare name for unqualified lookups
// within a lexical scope.
type SymbolTable struct {
	ByFQN  map[string]*Symbol
	byName map[string][]*Symbol
	Order  []*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		ByFQN:  make(map[string]*Symbol),
		byName: make(map[string][]*Symbol),
	}
}

func (t *SymbolTable) Lookup(fqn string) (*Symbol, bool) {
	s, ok := t.ByFQN[fqn]
	return s, ok
}

// LookupByName returns every symbol sharing the given bare name,
// across all parents — callers resolve the applicable one with
// knowledge of the current lexical scope (the Semantic Analyser).
func (t *SymbolTable) LookupByName(name string) []*Symbol {
	return t.byName[name]
}

func (t *SymbolTable) add(sym *Symbol) {
	t.ByFQN[sym.FQN] = sym
	t.byName[sym.Name] = append(t.byName[sym.Name], sym)
	t.Order = append(t.Order, sym)
}

// RebuildIndex recomputes the by-name index from Order. Needed after a
// SymbolTable round-trips through the cache's gob encoding, since
// byName is unexported (and therefore skipped by gob) on purpose — it
// is a derived index, not independent state.
func (t *SymbolTable) RebuildIndex() {
	t.byName = make(map[string][]*Symbol, len(t.Order))
	for _, sym := range t.Order {
		t.byName[sym.Name] = append(t.byName[sym.Name], sym)
	}
}

// mangle joins a parent FQN and a child name with the underscore
// convention the emitter uses for every nested name (Scope_member,
// RegisterName_field, Outer_Inner).
func mangle(parentFQN, name string) string {
	if parentFQN == "" {
		return name
	}
	return parentFQN + "_" + name
}

// SymbolCollector walks one file's AST (plus whatever included ASTs
// the caller has already resolved and wants folded in) and builds its
// SymbolTable, reporting duplicate-name-within-parent as hard errors.
type SymbolCollector struct {
	filePath    string
	table       *SymbolTable
	diagnostics []Diagnostic
	nextID      int
}

func NewSymbolCollector(filePath string) *SymbolCollector {
	return &SymbolCollector{filePath: filePath, table: NewSymbolTable()}
}

func (c *SymbolCollector) Diagnostics() []Diagnostic { return c.diagnostics }

func (c *SymbolCollector) Collect(f *File) *SymbolTable {
	c.collectDecls(f.Decls, "")
	return c.table
}

func (c *SymbolCollector) errorAt(sp Span, line int, format string, args ...any) {
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Kind:     KindSymbolDuplicate,
		Severity: DiagnosticError,
		Message:  fmt.Sprintf(format, args...),
		Code:     "E-SYM-001",
		Span:     sp,
		FilePath: c.filePath,
	})
}

func (c *SymbolCollector) define(name, parentFQN string, kind SymbolKind, ty Type, access AccessModifier, sp Span) *Symbol {
	fqn := mangle(parentFQN, name)
	if existing, ok := c.table.Lookup(fqn); ok {
		c.errorAt(sp, sp.Start.Line, "duplicate declaration of %q (previously declared as %s)", name, existing.Kind)
	}
	c.nextID++
	sym := &Symbol{
		ID: c.nextID, Name: name, FQN: fqn, Kind: kind, ParentFQN: parentFQN,
		Type: ty, Access: access, SourceFile: c.filePath, Line: sp.Start.Line,
	}
	c.table.add(sym)
	return sym
}

func (c *SymbolCollector) collectDecls(decls []Decl, parentFQN string) {
	for _, d := range decls {
		c.collectDecl(d, parentFQN)
	}
}

func (c *SymbolCollector) collectDecl(d Decl, parentFQN string) {
	switch n := d.(type) {
	case *IncludeDirective:
		// resolved separately by the Include Resolver; nothing to define.
	case *ScopeDecl:
		sym := c.define(n.Name, parentFQN, SymScope, Type{}, AccessRW, n.Sp)
		c.collectDecls(n.Body, sym.FQN)
	case *StructDecl:
		sym := c.define(n.Name, parentFQN, SymStruct, NamedType(n.Name), AccessRW, n.Sp)
		for _, f := range n.Fields {
			c.define(f.Name, sym.FQN, SymField, f.Type, AccessRW, f.Sp)
		}
	case *EnumDecl:
		sym := c.define(n.Name, parentFQN, SymEnum, NamedType(n.Name), AccessRW, n.Sp)
		for _, m := range n.Members {
			c.define(m.Name, sym.FQN, SymEnumMember, n.Backing, AccessRW, m.Sp)
		}
	case *BitmapDecl:
		sym := c.define(n.Name, parentFQN, SymBitmap, BitmapType(n.Backing), AccessRW, n.Sp)
		offset := 0
		for i := range n.Fields {
			f := &n.Fields[i]
			f.Offset = offset
			c.define(f.Name, sym.FQN, SymBitmapField, PrimType(n.Backing), AccessRW, f.Sp)
			offset += f.Width
		}
	case *RegisterDecl:
		sym := c.define(n.Name, parentFQN, SymRegister, NamedType(n.Name), AccessRW, n.Sp)
		for _, m := range n.Members {
			c.define(m.Name, sym.FQN, SymRegisterMember, m.Type, m.Access, m.Sp)
		}
	case *ConstDecl:
		c.define(n.Name, parentFQN, SymConst, n.Type, AccessRW, n.Sp)
	case *VarDecl:
		sym := c.define(n.Name, parentFQN, SymVariable, n.Type, AccessRW, n.Sp)
		sym.Overflow = n.Overflow
		sym.OverflowExplicit = n.OverflowExplicit
		sym.IsAtomic = n.IsAtomic
	case *FuncDecl:
		sym := c.define(n.Name, parentFQN, SymFunction, n.ReturnType, AccessRW, n.Sp)
		for _, p := range n.Params {
			c.define(p.Name, sym.FQN, SymVariable, p.Type, AccessRW, p.Sp).IsParam = true
		}
		c.collectLocals(n.Body, sym.FQN)
	case *MethodDecl:
		ownerFQN := mangle(parentFQN, n.ReceiverType)
		sym := c.define(n.Name, ownerFQN, SymMethod, n.ReturnType, AccessRW, n.Sp)
		for _, p := range n.Params {
			c.define(p.Name, sym.FQN, SymVariable, p.Type, AccessRW, p.Sp).IsParam = true
		}
		c.collectLocals(n.Body, sym.FQN)
	}
}

// collectLocals records every variable/const declared anywhere inside a
// function body under the function's own FQN, so unqualified references
// to locals resolve during semantic analysis. Shadowing across sibling
// blocks of the same function is reported as a duplicate, the same rule
// the language applies to every other same-parent name pair.
func (c *SymbolCollector) collectLocals(body *Block, ownerFQN string) {
	if body == nil {
		return
	}
	Inspect(body, func(n Node) bool {
		ds, ok := n.(*DeclStmt)
		if !ok {
			return true
		}
		switch d := ds.Decl.(type) {
		case *VarDecl:
			sym := c.define(d.Name, ownerFQN, SymVariable, d.Type, AccessRW, d.Sp)
			sym.Overflow = d.Overflow
			sym.OverflowExplicit = d.OverflowExplicit
			sym.IsAtomic = d.IsAtomic
		case *ConstDecl:
			c.define(d.Name, ownerFQN, SymConst, d.Type, AccessRW, d.Sp)
		}
		return true
	})
}
