package cnext

import (
	"fmt"
	"sort"
	"strings"
)

// Emitter walks an analysed IR and produces C99 or C++14 source text
// through the shared outputWriter formatter. Both backends share this
// type; emit_cpp.go supplies the reference-parameter rendering, and
// Emit adds the extern "C" wrapper to the header only in C mode.
// Declaration writer methods each own one kind of node and delegate
// to sub-writers for nested shapes.
type Emitter struct {
	ir       *IR
	mode     EmissionMode
	consts   *ConstInference
	profile  TargetProfile
	outHdr   *outputWriter
	outImpl  *outputWriter
	diags    []Diagnostic
	baseName string

	clampHelpers       map[string]clampHelperKey
	needsStringRuntime bool
}

func NewEmitter(ir *IR, baseName string) *Emitter {
	return &Emitter{
		ir: ir, mode: ir.Mode, consts: ir.Consts, profile: *ir.Profile,
		outHdr: newOutputWriter(100), outImpl: newOutputWriter(100),
		baseName: baseName,
	}
}

func (e *Emitter) Diagnostics() []Diagnostic { return e.diags }

func (e *Emitter) internalError(n Node, format string, args ...any) {
	e.diags = append(e.diags, Diagnostic{
		Kind: KindInternalCompilerError, Severity: DiagnosticError,
		Message: fmt.Sprintf(format, args...), Code: "E-ICE-001",
		Span: n.Span(), FilePath: e.ir.Root.Path,
	})
}

// Emit produces (header, implementation) source text for ir.Root.
func (e *Emitter) Emit() (header string, impl string) {
	ext := ".h"
	if e.mode == EmitCpp {
		ext = ".hpp"
	}
	guard := headerGuard(e.baseName + ext)

	e.outHdr.writel(fmt.Sprintf("#ifndef %s", guard))
	e.outHdr.writel(fmt.Sprintf("#define %s", guard))
	e.outHdr.writel("")
	e.outHdr.writel(`#include <stdint.h>`)
	e.outHdr.writel(`#include <stdbool.h>`)
	e.outHdr.writel(`#include <stddef.h>`)
	e.outHdr.writel("")

	wrapExternC := e.mode == EmitC
	if wrapExternC {
		e.outHdr.writel(`#ifdef __cplusplus`)
		e.outHdr.writel(`extern "C" {`)
		e.outHdr.writel(`#endif`)
		e.outHdr.writel("")
	}

	e.outImpl.writel(fmt.Sprintf(`#include "%s%s"`, e.baseName, ext))
	e.outImpl.writel("")

	for _, d := range e.ir.Root.Directives {
		e.outImpl.writel(d.Lexeme)
	}
	if len(e.ir.Root.Directives) > 0 {
		e.outImpl.writel("")
	}

	for _, inc := range e.ir.Includes {
		for _, d := range inc.Decls {
			e.emitIncludedDecl(d, "")
		}
	}

	// Clamp-policy arithmetic needs saturating helpers whose names
	// depend on the operators and types actually used, which isn't
	// known until the decl walk below runs. Buffer the body separately
	// so the helpers it discovers it needs can be written ahead of it.
	body := newOutputWriter(100)
	prevImpl := e.outImpl
	e.outImpl = body
	for _, d := range e.ir.Root.Decls {
		e.emitTopDecl(d, "")
	}
	e.outImpl = prevImpl

	e.emitClampHelpers()
	e.emitStringRuntime()
	e.outImpl.write(body.String())

	if wrapExternC {
		e.outHdr.writel("")
		e.outHdr.writel(`#ifdef __cplusplus`)
		e.outHdr.writel(`}`)
		e.outHdr.writel(`#endif`)
	}
	e.outHdr.writel("")
	e.outHdr.writel(fmt.Sprintf("#endif /* %s */", guard))

	return e.outHdr.String(), e.outImpl.String()
}

func (e *Emitter) emitTopDecl(d Decl, enclosingFQN string) {
	switch n := d.(type) {
	case *IncludeDirective:
		// .cnx includes are flattened into this unit's header by Emit;
		// only native headers pass through as #include lines.
		if classifyInclude(n.Path) == IncludeCnext {
			return
		}
		if n.IsSystem {
			e.outHdr.writel(fmt.Sprintf("#include <%s>", n.Path))
		} else {
			e.outHdr.writel(fmt.Sprintf("#include %q", n.Path))
		}
	case *ScopeDecl:
		fqn := mangle(enclosingFQN, n.Name)
		for _, child := range n.Body {
			e.emitTopDecl(child, fqn)
		}
	case *StructDecl:
		e.emitStruct(n)
	case *EnumDecl:
		e.emitEnum(n)
	case *BitmapDecl:
		e.emitBitmap(n)
	case *RegisterDecl:
		e.emitRegister(n)
	case *ConstDecl:
		e.emitConst(n, enclosingFQN)
	case *VarDecl:
		e.emitVar(n, enclosingFQN)
	case *FuncDecl:
		e.emitFunc(n, enclosingFQN)
	case *MethodDecl:
		e.emitMethod(n)
	default:
		e.internalError(d, "unhandled top-level declaration %T", d)
	}
}

// emitIncludedDecl renders an included file's declaration into this
// unit's header: full type declarations, extern variables and bare
// prototypes, never definitions, so the dependency's own translation
// unit stays the single home of its code.
func (e *Emitter) emitIncludedDecl(d Decl, enclosingFQN string) {
	switch n := d.(type) {
	case *ScopeDecl:
		fqn := mangle(enclosingFQN, n.Name)
		for _, child := range n.Body {
			e.emitIncludedDecl(child, fqn)
		}
	case *StructDecl:
		e.emitStruct(n)
	case *EnumDecl:
		e.emitEnum(n)
	case *BitmapDecl:
		e.emitBitmap(n)
	case *RegisterDecl:
		e.emitRegister(n)
	case *ConstDecl:
		e.emitConst(n, enclosingFQN)
	case *VarDecl:
		name := mangle(enclosingFQN, n.Name)
		decl := e.cDecl(n.Type, name)
		if n.IsAtomic {
			decl = "volatile " + decl
		}
		e.outHdr.writel(fmt.Sprintf("extern %s;", decl))
	case *FuncDecl:
		name := mangle(enclosingFQN, n.Name)
		e.outHdr.writel(e.funcSignature(name, n.ReturnType, n.Params, "") + ";")
	case *MethodDecl:
		name := mangle(n.ReceiverType, n.Name)
		e.outHdr.writel(e.funcSignature(name, n.ReturnType, n.Params, n.ReceiverType) + ";")
	}
}

func (e *Emitter) emitStruct(n *StructDecl) {
	name := sanitizeCIdent(n.Name)
	e.outHdr.writel(fmt.Sprintf("typedef struct %s {", name))
	e.outHdr.indent()
	for _, f := range n.Fields {
		e.outHdr.writeil(e.cDecl(f.Type, f.Name) + ";")
	}
	e.outHdr.unindent()
	e.outHdr.writel(fmt.Sprintf("} %s;", name))
	e.outHdr.writel("")
}

func (e *Emitter) emitEnum(n *EnumDecl) {
	enumName := sanitizeCIdent(n.Name)
	e.outHdr.writel(fmt.Sprintf("typedef enum %s {", enumName))
	e.outHdr.indent()
	for _, m := range n.Members {
		name := sanitizeCIdent(mangle(n.Name, m.Name))
		if m.Value != nil {
			e.outHdr.writeil(fmt.Sprintf("%s = %s,", name, e.expr(m.Value)))
		} else {
			e.outHdr.writeil(fmt.Sprintf("%s,", name))
		}
	}
	e.outHdr.unindent()
	e.outHdr.writel(fmt.Sprintf("} %s;", enumName))
	e.outHdr.writel("")
}

func (e *Emitter) emitBitmap(n *BitmapDecl) {
	backing := PrimType(n.Backing).String()
	e.outHdr.writel(fmt.Sprintf("/* bitmap %s, backed by %s */", n.Name, backing))
	offset := 0
	for _, f := range n.Fields {
		end := offset + f.Width - 1
		e.outHdr.writel(fmt.Sprintf("/* bits %d-%d (%d): %s */", offset, end, f.Width, f.Name))
		offset += f.Width
	}
	name := sanitizeCIdent(n.Name)
	cb := cPrimName(n.Backing)
	e.outHdr.writel(fmt.Sprintf("typedef %s %s;", cb, name))
	offset = 0
	for _, f := range n.Fields {
		mask := bitmapMask(f.Width, offset)
		fname := sanitizeCIdent(f.Name)
		e.writeAccessor(fmt.Sprintf("static inline %s %s_get_%s(%s v) {", cb, name, fname, name),
			fmt.Sprintf("return (%s)((v & %#xULL) >> %d);", cb, mask, offset))
		e.writeAccessor(fmt.Sprintf("static inline void %s_set_%s(%s *v, %s x) {", name, fname, name, cb),
			fmt.Sprintf("*v = (%s)((*v & ~%#xULL) | (((%s)x << %d) & %#xULL));", name, mask, cb, offset, mask))
		offset += f.Width
	}
	e.outHdr.writel("")
}

func bitmapMask(width, offset int) uint64 {
	var mask uint64
	for i := 0; i < width; i++ {
		mask |= 1 << uint(offset+i)
	}
	return mask
}

func (e *Emitter) emitRegister(n *RegisterDecl) {
	name := sanitizeCIdent(n.Name)
	e.outHdr.writel(fmt.Sprintf("#define %s (*(volatile uint32_t *)%#xUL)", name, n.Address))
	for _, m := range n.Members {
		fqn := sanitizeCIdent(mangle(n.Name, m.Name))
		ct := e.cType(m.Type)
		switch m.Access {
		case AccessRO:
			e.writeAccessor(fmt.Sprintf("static inline %s %s_read(void) {", ct, fqn),
				fmt.Sprintf("return %s;", name))
		case AccessWO:
			e.writeAccessor(fmt.Sprintf("static inline void %s_write(%s value) {", fqn, ct),
				fmt.Sprintf("%s = value;", name))
		case AccessW1C:
			e.writeAccessor(fmt.Sprintf("static inline void %s_clear(%s mask, %s value) {", fqn, ct, ct),
				fmt.Sprintf("%s = (%s & ~mask) | (mask & value);", name, name))
		case AccessW1S:
			e.writeAccessor(fmt.Sprintf("static inline void %s_set(%s mask, %s value) {", fqn, ct, ct),
				fmt.Sprintf("%s |= (mask & value);", name))
		default:
			e.writeAccessor(fmt.Sprintf("static inline %s %s_read(void) {", ct, fqn),
				fmt.Sprintf("return %s;", name))
			e.writeAccessor(fmt.Sprintf("static inline void %s_write(%s value) {", fqn, ct),
				fmt.Sprintf("%s = value;", name))
		}
	}
	e.outHdr.writel("")
}

// writeAccessor writes a one-statement static inline helper.
func (e *Emitter) writeAccessor(sig, body string) {
	e.outImpl.writel(sig)
	e.outImpl.writel("    " + body)
	e.outImpl.writel("}")
}

func (e *Emitter) emitConst(n *ConstDecl, enclosingFQN string) {
	name := sanitizeCIdent(mangle(enclosingFQN, n.Name))
	e.outHdr.writel(fmt.Sprintf("#define %s (%s)", name, e.expr(n.Value)))
}

func (e *Emitter) emitVar(n *VarDecl, enclosingFQN string) {
	name := mangle(enclosingFQN, n.Name)
	decl := e.cDecl(n.Type, name)
	if n.IsAtomic {
		decl = "volatile " + decl
	}
	e.outHdr.writel(fmt.Sprintf("extern %s;", decl))
	if n.Init != nil {
		e.outImpl.writel(fmt.Sprintf("%s = %s;", decl, e.expr(n.Init)))
	} else {
		e.outImpl.writel(decl + ";")
	}
}

func (e *Emitter) emitFunc(n *FuncDecl, enclosingFQN string) {
	name := mangle(enclosingFQN, n.Name)
	sig := e.funcSignature(name, n.ReturnType, n.Params, "")
	e.outHdr.writel(sig + ";")
	e.outImpl.writel(sig + " {")
	e.emitBlockBody(n.Body)
	e.outImpl.writel("}")
	e.outImpl.writel("")
}

func (e *Emitter) emitMethod(n *MethodDecl) {
	name := mangle(n.ReceiverType, n.Name)
	sig := e.funcSignature(name, n.ReturnType, n.Params, n.ReceiverType)
	e.outHdr.writel(sig + ";")
	e.outImpl.writel(sig + " {")
	e.emitBlockBody(n.Body)
	e.outImpl.writel("}")
	e.outImpl.writel("")
}

func (e *Emitter) funcSignature(name string, ret Type, params []Param, methodOwnerFQN string) string {
	name = sanitizeCIdent(name)
	var parts []string
	if methodOwnerFQN != "" {
		owner := sanitizeCIdent(methodOwnerFQN)
		if e.mode == EmitCpp {
			parts = append(parts, fmt.Sprintf("%s &self", owner))
		} else {
			parts = append(parts, fmt.Sprintf("%s *self", owner))
		}
	}
	for _, p := range params {
		if e.mode == EmitCpp {
			parts = append(parts, e.paramDeclCpp(name, p))
		} else {
			parts = append(parts, e.paramDecl(name, p))
		}
	}
	return fmt.Sprintf("%s %s(%s)", e.cType(ret), name, strings.Join(parts, ", "))
}

// paramDecl renders one parameter for the C backend: user-defined
// types pass by pointer since C has no references. emit_cpp.go's
// paramDeclCpp is the C++ counterpart, driven by const_inference.go.
func (e *Emitter) paramDecl(funcFQN string, p Param) string {
	if p.Type.Tag == TypeNamed {
		return fmt.Sprintf("%s *%s", sanitizeCIdent(p.Type.Name), sanitizeCIdent(p.Name))
	}
	return e.cDecl(p.Type, p.Name)
}

func (e *Emitter) emitBlockBody(b *Block) {
	e.outImpl.indent()
	if b != nil {
		for _, s := range b.Stmts {
			e.stmt(s)
		}
	}
	e.outImpl.unindent()
}

func (e *Emitter) stmt(s Stmt) {
	switch n := s.(type) {
	case *Block:
		e.outImpl.writeil("{")
		e.emitBlockBody(n)
		e.outImpl.writeil("}")
	case *IfStmt:
		e.outImpl.writeil(fmt.Sprintf("if (%s) {", e.expr(n.Cond)))
		e.emitBlockBody(n.Then)
		if n.Else != nil {
			e.outImpl.writeil("} else {")
			switch els := n.Else.(type) {
			case *Block:
				e.emitBlockBody(els)
			default:
				e.outImpl.indent()
				e.stmt(els)
				e.outImpl.unindent()
			}
		}
		e.outImpl.writeil("}")
	case *WhileStmt:
		e.outImpl.writeil(fmt.Sprintf("while (%s) {", e.expr(n.Cond)))
		e.emitBlockBody(n.Body)
		e.outImpl.writeil("}")
	case *DoWhileStmt:
		e.outImpl.writeil("do {")
		e.emitBlockBody(n.Body)
		e.outImpl.writeil(fmt.Sprintf("} while (%s);", e.expr(n.Cond)))
	case *ForStmt:
		init, cond, step := "", "", ""
		if n.Init != nil {
			init = strings.TrimSuffix(e.stmtInline(n.Init), ";")
		}
		if n.Cond != nil {
			cond = e.expr(n.Cond)
		}
		if n.Step != nil {
			step = strings.TrimSuffix(e.stmtInline(n.Step), ";")
		}
		e.outImpl.writeil(fmt.Sprintf("for (%s; %s; %s) {", init, cond, step))
		e.emitBlockBody(n.Body)
		e.outImpl.writeil("}")
	case *SwitchStmt:
		e.outImpl.writeil(fmt.Sprintf("switch (%s) {", e.expr(n.Subject)))
		e.outImpl.indent()
		for _, c := range n.Cases {
			if c.IsDefault {
				e.outImpl.writeil("default: {")
			} else {
				labels := make([]string, len(c.Values))
				for i, v := range c.Values {
					labels[i] = e.expr(v)
				}
				for _, l := range labels {
					e.outImpl.writeil(fmt.Sprintf("case %s:", l))
				}
				e.outImpl.writeil("{")
			}
			e.emitBlockBody(c.Body)
			e.outImpl.writeil("break;")
			e.outImpl.writeil("}")
		}
		e.outImpl.unindent()
		e.outImpl.writeil("}")
	case *ReturnStmt:
		if n.Value != nil {
			e.outImpl.writeil(fmt.Sprintf("return %s;", e.expr(n.Value)))
		} else {
			e.outImpl.writeil("return;")
		}
	case *ExprStmt:
		if ca, ok := n.X.(*CompoundAssignExpr); ok && atomicAssignTarget(ca) != nil {
			e.emitAtomicAssign(ca)
		} else {
			e.outImpl.writeil(e.expr(n.X) + ";")
		}
	case *DeclStmt:
		e.localDecl(n.Decl)
	case *AtomicStmt:
		e.emitAtomic(n.Body)
	case *CriticalStmt:
		e.emitCriticalSection(n.Body)
	default:
		e.internalError(s, "unhandled statement %T", s)
	}
}

// stmtInline renders a statement as a single bare expression string,
// for use inside a for(;;) clause.
func (e *Emitter) stmtInline(s Stmt) string {
	switch n := s.(type) {
	case *ExprStmt:
		return e.expr(n.X) + ";"
	case *DeclStmt:
		if v, ok := n.Decl.(*VarDecl); ok {
			if v.Init != nil {
				return fmt.Sprintf("%s = %s;", e.cDecl(v.Type, v.Name), e.expr(v.Init))
			}
			return e.cDecl(v.Type, v.Name) + ";"
		}
	}
	return ""
}

func (e *Emitter) localDecl(d Decl) {
	switch n := d.(type) {
	case *VarDecl:
		decl := e.cDecl(n.Type, n.Name)
		if n.IsAtomic {
			decl = "volatile " + decl
		}
		if n.Init != nil {
			e.outImpl.writeil(fmt.Sprintf("%s = %s;", decl, e.expr(n.Init)))
		} else {
			e.outImpl.writeil(decl + ";")
		}
	case *ConstDecl:
		e.outImpl.writeil(fmt.Sprintf("const %s = %s;", e.cDecl(n.Type, n.Name), e.expr(n.Value)))
	}
}

// emitAtomic lowers an atomic { ... } block. A block holding exactly
// one assignment to an exclusive-monitor-sized integer takes the
// LDREX/STREX retry path on profiles that have the monitor; everything
// else runs under masked interrupts, since the monitor can only guard
// one word at a time.
func (e *Emitter) emitAtomic(b *Block) {
	if e.profile.Strategy == AtomicLdrexStrex && len(b.Stmts) == 1 {
		if es, ok := b.Stmts[0].(*ExprStmt); ok {
			if ca, ok := es.X.(*CompoundAssignExpr); ok {
				t := ca.Target.Type()
				if t.Tag == TypePrim && t.Prim.IsInteger() && t.Prim.Width() <= 32 {
					e.emitAtomicAssign(ca)
					return
				}
			}
		}
	}
	e.emitCriticalSection(b)
}

// atomicAssignTarget returns the atomic variable symbol behind n's
// target, or nil when the assignment needs no atomic lowering.
func atomicAssignTarget(n *CompoundAssignExpr) *Symbol {
	var sym *Symbol
	switch t := n.Target.(type) {
	case *Identifier:
		sym = t.Sym
	case *QualifiedAccess:
		sym = t.Sym
	}
	if sym == nil || !sym.IsAtomic {
		return nil
	}
	return sym
}

// emitAtomicAssign lowers an assignment to an atomic variable. On
// profiles with an exclusive monitor the update runs in an LDREX/STREX
// retry loop over the variable's own address; everywhere else
// interrupts are masked around a plain store.
func (e *Emitter) emitAtomicAssign(n *CompoundAssignExpr) {
	t := n.Target.Type()
	if e.profile.Strategy == AtomicLdrexStrex && t.Tag == TypePrim && t.Prim.IsInteger() && t.Prim.Width() <= 32 {
		target := e.expr(n.Target)
		e.outImpl.writeil("{")
		e.outImpl.indent()
		e.outImpl.writeil("uint32_t __cnext_old;")
		e.outImpl.writeil(fmt.Sprintf("%s __cnext_new;", cPrimName(t.Prim)))
		e.outImpl.writeil("do {")
		e.outImpl.indent()
		e.outImpl.writeil(fmt.Sprintf("__cnext_old = __LDREXW((volatile uint32_t *)&%s);", target))
		e.outImpl.writeil(fmt.Sprintf("__cnext_new = %s;", e.atomicNewValue(n, t.Prim)))
		e.outImpl.unindent()
		e.outImpl.writeil(fmt.Sprintf("} while (__STREXW((uint32_t)__cnext_new, (volatile uint32_t *)&%s) != 0);", target))
		e.outImpl.unindent()
		e.outImpl.writeil("}")
		return
	}
	e.outImpl.writeil("{")
	e.outImpl.indent()
	e.outImpl.writeil("uint32_t __cnext_primask = __get_PRIMASK();")
	e.outImpl.writeil("__disable_irq();")
	e.outImpl.writeil(e.expr(n) + ";")
	e.outImpl.writeil("__set_PRIMASK(__cnext_primask);")
	e.outImpl.unindent()
	e.outImpl.writeil("}")
}

// atomicNewValue renders the updated value over the loaded __cnext_old
// word instead of re-reading the variable mid-loop.
func (e *Emitter) atomicNewValue(n *CompoundAssignExpr, prim PrimKind) string {
	if n.Op == TokenAssign || n.Op == TokenArrow {
		return e.expr(n.Value)
	}
	old := fmt.Sprintf("(%s)__cnext_old", cPrimName(prim))
	plain, _ := arrowBinOp(n.Op)
	if n.Overflow == Clamp && isClampableOp(plain) {
		name := e.requireClampHelper(plain, prim)
		return fmt.Sprintf("%s(%s, %s)", name, old, e.expr(n.Value))
	}
	return fmt.Sprintf("(%s)(%s %s %s)", cPrimName(prim), old, arrowToPlainOp(n.Op), e.expr(n.Value))
}

// emitCriticalSection lowers critical { ... } and the PRIMASK fallback
// for atomic { ... }.
func (e *Emitter) emitCriticalSection(b *Block) {
	e.outImpl.writeil("{")
	e.outImpl.indent()
	e.outImpl.writeil("uint32_t __cnext_primask = __get_PRIMASK();")
	e.outImpl.writeil("__disable_irq();")
	for _, s := range b.Stmts {
		e.stmt(s)
	}
	e.outImpl.writeil("__set_PRIMASK(__cnext_primask);")
	e.outImpl.unindent()
	e.outImpl.writeil("}")
}

// ---- expressions ----

func (e *Emitter) expr(x Expr) string {
	switch n := x.(type) {
	case *IntLiteral:
		return fmt.Sprintf("%d", n.Value)
	case *FloatLiteral:
		return fmt.Sprintf("%g", n.Value)
	case *StringLiteral:
		return "\"" + escapeLiteral(n.Value) + "\""
	case *CharLiteral:
		return fmt.Sprintf("%q", n.Value)
	case *BoolLiteral:
		if n.Value {
			return "true"
		}
		return "false"
	case *Identifier:
		return e.identName(n)
	case *QualifiedAccess:
		return e.qualifiedAccess(n)
	case *CallExpr:
		if qa, ok := n.Callee.(*QualifiedAccess); ok && qa.Field == "append" && len(n.Args) == 1 && isBoundedString(qa.Base.Type()) {
			return e.stringAppendCall(qa.Base, n.Args[0])
		}
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = e.callArg(a)
		}
		return fmt.Sprintf("%s(%s)", e.expr(n.Callee), strings.Join(args, ", "))
	case *IndexExpr:
		return fmt.Sprintf("%s[%s]", e.expr(n.Base), e.expr(n.Index))
	case *UnaryExpr:
		return n.Op.String() + e.expr(n.Operand)
	case *BinaryExpr:
		return e.binaryExpr(n)
	case *CastExpr:
		return fmt.Sprintf("(%s)(%s)", e.cType(n.Target), e.expr(n.Operand))
	case *SizeofExpr:
		if n.TargetType != nil {
			return fmt.Sprintf("sizeof(%s)", e.cType(*n.TargetType))
		}
		return fmt.Sprintf("sizeof(%s)", e.expr(n.TargetExpr))
	case *TernaryExpr:
		return fmt.Sprintf("(%s ? %s : %s)", e.expr(n.Cond), e.expr(n.Then), e.expr(n.Else))
	case *CompoundAssignExpr:
		return e.compoundAssign(n)
	default:
		e.internalError(x, "unhandled expression %T", x)
		return "/* error */"
	}
}

// identName renders a bare identifier: locals and parameters keep
// their source name, everything declared at scope/file level uses its
// mangled FQN.
func (e *Emitter) identName(n *Identifier) string {
	sym := n.Sym
	if sym == nil || sym.FQN == sym.Name {
		return sanitizeCIdent(n.Name)
	}
	if parent, ok := e.ir.Table.Lookup(sym.ParentFQN); ok {
		switch parent.Kind {
		case SymFunction, SymMethod:
			return sanitizeCIdent(n.Name)
		}
	}
	return sanitizeCIdent(sym.FQN)
}

// callArg renders one call argument. The C backend passes user-defined
// types by pointer, so a struct value takes its address at the call
// site while a forwarded parameter (already a pointer) passes through.
func (e *Emitter) callArg(a Expr) string {
	s := e.expr(a)
	if e.mode != EmitC || a.Type().Tag != TypeNamed {
		return s
	}
	if id, ok := a.(*Identifier); ok && id.Sym != nil && id.Sym.IsParam {
		return s
	}
	return "&" + s
}

func (e *Emitter) qualifiedAccess(n *QualifiedAccess) string {
	if n.Sym != nil {
		switch n.Sym.Kind {
		case SymRegisterMember, SymEnumMember, SymConst, SymFunction, SymMethod:
			return sanitizeCIdent(n.Sym.FQN)
		case SymVariable:
			if parent, ok := e.ir.Table.Lookup(n.Sym.ParentFQN); ok && parent.Kind == SymScope {
				return sanitizeCIdent(n.Sym.FQN)
			}
		}
	}
	field := sanitizeCIdent(n.Field)
	if ident, ok := n.Base.(*Identifier); ok {
		if ident.Name == "this" {
			if e.mode == EmitCpp {
				return "self." + field
			}
			return "self->" + field
		}
		if e.mode == EmitC && ident.Type().Tag == TypeNamed && ident.Sym != nil && ident.Sym.IsParam {
			return sanitizeCIdent(ident.Name) + "->" + field
		}
	}
	return e.expr(n.Base) + "." + field
}

func (e *Emitter) binaryExpr(n *BinaryExpr) string {
	left, right := e.expr(n.Left), e.expr(n.Right)
	resultType := widerNumeric(n.Left.Type(), n.Right.Type())
	if isClampableOp(n.Op) && resultType.Tag == TypePrim && resultType.Prim.IsInteger() {
		if n.Overflow == Clamp {
			name := e.requireClampHelper(n.Op, resultType.Prim)
			return fmt.Sprintf("%s(%s, %s)", name, left, right)
		}
		// Wrap: plain C, but integer promotion would widen sub-int
		// operands, so narrow the result back to the operand width.
		if resultType.Prim.Width() < 32 {
			return fmt.Sprintf("(%s)(%s %s %s)", cPrimName(resultType.Prim), left, n.Op, right)
		}
	}
	return fmt.Sprintf("(%s %s %s)", left, n.Op, right)
}

// isClampableOp reports which arithmetic operators the clamp overflow
// policy range-checks. Modulo has no saturating interpretation (its
// result is always within the divisor's range) and is left as plain C.
func isClampableOp(op TokenKind) bool {
	switch op {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash:
		return true
	default:
		return false
	}
}

// clampHelperKey names one saturating-arithmetic helper function: an
// operator over one primitive integer type.
type clampHelperKey struct {
	op   TokenKind
	prim PrimKind
}

// requireClampHelper records that a clamp helper for op/prim must be
// defined and returns its stable call name.
func (e *Emitter) requireClampHelper(op TokenKind, prim PrimKind) string {
	if e.clampHelpers == nil {
		e.clampHelpers = make(map[string]clampHelperKey)
	}
	name := fmt.Sprintf("cnext_clamp_%s_%s", clampOpName(op), prim)
	e.clampHelpers[name] = clampHelperKey{op: op, prim: prim}
	return name
}

func clampOpName(op TokenKind) string {
	switch op {
	case TokenPlus:
		return "add"
	case TokenMinus:
		return "sub"
	case TokenStar:
		return "mul"
	case TokenSlash:
		return "div"
	default:
		return "op"
	}
}

// emitClampHelpers writes one static inline saturating-arithmetic
// function per (operator, type) pair the decl walk actually used, in
// name order so output is deterministic. Each performs its own
// overflow test ahead of the operation instead of computing it first
// and clamping after, since the plain-width computation may already
// have wrapped or invoked undefined behaviour by then.
func (e *Emitter) emitClampHelpers() {
	if len(e.clampHelpers) == 0 {
		return
	}
	names := make([]string, 0, len(e.clampHelpers))
	for name := range e.clampHelpers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, line := range clampHelperDef(name, e.clampHelpers[name]) {
			e.outImpl.writel(line)
		}
		e.outImpl.writel("")
	}
}

// clampHelperDef renders one saturating helper as formatted source
// lines. Each helper tests for overflow ahead of the operation instead
// of clamping after it, since the plain-width computation may already
// have wrapped or invoked undefined behaviour by then.
func clampHelperDef(name string, k clampHelperKey) []string {
	t := cPrimName(k.prim)
	min, max := primMinMax(k.prim)
	var body []string
	if k.prim.IsSigned() {
		body = signedClampBody(t, min, max, k.op)
	} else {
		body = unsignedClampBody(t, max, k.op)
	}
	lines := []string{fmt.Sprintf("static inline %s %s(%s a, %s b) {", t, name, t, t)}
	lines = append(lines, body...)
	return append(lines, "}")
}

func primMinMax(prim PrimKind) (min, max string) {
	w := prim.Width()
	if prim.IsSigned() {
		return fmt.Sprintf("INT%d_MIN", w), fmt.Sprintf("INT%d_MAX", w)
	}
	return "0", fmt.Sprintf("UINT%d_MAX", w)
}

func unsignedClampBody(t, max string, op TokenKind) []string {
	switch op {
	case TokenPlus:
		return []string{
			fmt.Sprintf("    %s r = (%s)(a + b);", t, t),
			fmt.Sprintf("    return r < a ? %s : r;", max),
		}
	case TokenMinus:
		return []string{fmt.Sprintf("    return b > a ? 0 : (%s)(a - b);", t)}
	case TokenStar:
		return []string{
			fmt.Sprintf("    if (a != 0 && b > %s / a) {", max),
			fmt.Sprintf("        return %s;", max),
			"    }",
			fmt.Sprintf("    return (%s)(a * b);", t),
		}
	default: // TokenSlash
		return []string{
			"    if (b == 0) {",
			"        return 0;",
			"    }",
			fmt.Sprintf("    return (%s)(a / b);", t),
		}
	}
}

func signedClampBody(t, min, max string, op TokenKind) []string {
	switch op {
	case TokenPlus:
		return []string{
			fmt.Sprintf("    if (b > 0 && a > %s - b) {", max),
			fmt.Sprintf("        return %s;", max),
			"    }",
			fmt.Sprintf("    if (b < 0 && a < %s - b) {", min),
			fmt.Sprintf("        return %s;", min),
			"    }",
			fmt.Sprintf("    return (%s)(a + b);", t),
		}
	case TokenMinus:
		return []string{
			fmt.Sprintf("    if (b < 0 && a > %s + b) {", max),
			fmt.Sprintf("        return %s;", max),
			"    }",
			fmt.Sprintf("    if (b > 0 && a < %s + b) {", min),
			fmt.Sprintf("        return %s;", min),
			"    }",
			fmt.Sprintf("    return (%s)(a - b);", t),
		}
	case TokenStar:
		return []string{
			fmt.Sprintf("    if (a > 0 && b > 0 && a > %s / b) {", max),
			fmt.Sprintf("        return %s;", max),
			"    }",
			fmt.Sprintf("    if (a > 0 && b < 0 && b < %s / a) {", min),
			fmt.Sprintf("        return %s;", min),
			"    }",
			fmt.Sprintf("    if (a < 0 && b > 0 && a < %s / b) {", min),
			fmt.Sprintf("        return %s;", min),
			"    }",
			fmt.Sprintf("    if (a < 0 && b < 0 && b < %s / a) {", max),
			fmt.Sprintf("        return %s;", max),
			"    }",
			fmt.Sprintf("    return (%s)(a * b);", t),
		}
	default: // TokenSlash
		return []string{
			"    if (b == 0) {",
			"        return 0;",
			"    }",
			fmt.Sprintf("    if (a == %s && b == -1) {", min),
			fmt.Sprintf("        return %s;", max),
			"    }",
			fmt.Sprintf("    return (%s)(a / b);", t),
		}
	}
}

func (e *Emitter) compoundAssign(n *CompoundAssignExpr) string {
	target := e.expr(n.Target)
	if n.Op == TokenAssign || n.Op == TokenArrow {
		if bin, ok := n.Value.(*BinaryExpr); ok && bin.Op == TokenPlus && isBoundedString(bin.Left.Type()) && isBoundedString(bin.Right.Type()) {
			return e.stringConcatCall(n.Target, bin)
		}
		return fmt.Sprintf("%s = %s", target, e.expr(n.Value))
	}
	plain, _ := arrowBinOp(n.Op)
	tt := n.Target.Type()
	if tt.Tag == TypePrim && tt.Prim.IsInteger() {
		if n.Overflow == Clamp && isClampableOp(plain) {
			name := e.requireClampHelper(plain, tt.Prim)
			return fmt.Sprintf("%s = %s(%s, %s)", target, name, target, e.expr(n.Value))
		}
		if tt.Prim.Width() < 32 {
			return fmt.Sprintf("%s = (%s)(%s %s %s)", target, cPrimName(tt.Prim), target, arrowToPlainOp(n.Op), e.expr(n.Value))
		}
	}
	return fmt.Sprintf("%s = %s %s %s", target, target, arrowToPlainOp(n.Op), e.expr(n.Value))
}

// arrowBinOp maps a compound-assign arrow to its underlying binary
// operator; ok is false for the plain `<-` and `=` forms.
func arrowBinOp(k TokenKind) (TokenKind, bool) {
	switch k {
	case TokenPlusArrow:
		return TokenPlus, true
	case TokenMinusArrow:
		return TokenMinus, true
	case TokenStarArrow:
		return TokenStar, true
	case TokenSlashArrow:
		return TokenSlash, true
	case TokenPercArrow:
		return TokenPercent, true
	case TokenAmpArrow:
		return TokenAmp, true
	case TokenPipeArrow:
		return TokenPipe, true
	case TokenCaretArrow:
		return TokenCaret, true
	case TokenShlArrow:
		return TokenShl, true
	case TokenShrArrow:
		return TokenShr, true
	default:
		return k, false
	}
}

func isBoundedString(t Type) bool { return t.Tag == TypeBoundedString }

// stringConcatCall lowers `target = a + b;` for string<N> operands to
// a statement-shaped call into the bounded-string runtime helper,
// since C has no value semantics for fixed-size char buffers.
func (e *Emitter) stringConcatCall(target Expr, bin *BinaryExpr) string {
	e.needsStringRuntime = true
	t := e.expr(target)
	return fmt.Sprintf("cnext_string_concat(%s, sizeof(%s), %s, %s)", t, t, e.expr(bin.Left), e.expr(bin.Right))
}

// stringAppendCall lowers the buf.append(value) builtin the same way.
func (e *Emitter) stringAppendCall(base, value Expr) string {
	e.needsStringRuntime = true
	b := e.expr(base)
	return fmt.Sprintf("cnext_string_append(%s, sizeof(%s), %s)", b, b, e.expr(value))
}

// emitStringRuntime writes the clamp-truncating bounded-string
// concat/append helpers into the implementation file, once, only if
// some statement actually needed them.
func (e *Emitter) emitStringRuntime() {
	if !e.needsStringRuntime {
		return
	}
	e.outImpl.writel("static inline void cnext_string_concat(char *dst, size_t cap, const char *a, const char *b) {")
	e.outImpl.writel("    size_t i = 0;")
	e.outImpl.writel("    for (; a[i] != '\\0' && i < cap - 1; i++) {")
	e.outImpl.writel("        dst[i] = a[i];")
	e.outImpl.writel("    }")
	e.outImpl.writel("    for (size_t j = 0; b[j] != '\\0' && i < cap - 1; i++, j++) {")
	e.outImpl.writel("        dst[i] = b[j];")
	e.outImpl.writel("    }")
	e.outImpl.writel("    dst[i] = '\\0';")
	e.outImpl.writel("}")
	e.outImpl.writel("static inline void cnext_string_append(char *dst, size_t cap, const char *src) {")
	e.outImpl.writel("    size_t i = 0;")
	e.outImpl.writel("    while (dst[i] != '\\0' && i < cap - 1) {")
	e.outImpl.writel("        i++;")
	e.outImpl.writel("    }")
	e.outImpl.writel("    for (size_t j = 0; src[j] != '\\0' && i < cap - 1; i++, j++) {")
	e.outImpl.writel("        dst[i] = src[j];")
	e.outImpl.writel("    }")
	e.outImpl.writel("    dst[i] = '\\0';")
	e.outImpl.writel("}")
	e.outImpl.writel("")
}

func arrowToPlainOp(k TokenKind) string {
	switch k {
	case TokenPlusArrow:
		return "+"
	case TokenMinusArrow:
		return "-"
	case TokenStarArrow:
		return "*"
	case TokenSlashArrow:
		return "/"
	case TokenPercArrow:
		return "%"
	case TokenAmpArrow:
		return "&"
	case TokenPipeArrow:
		return "|"
	case TokenCaretArrow:
		return "^"
	case TokenShlArrow:
		return "<<"
	case TokenShrArrow:
		return ">>"
	default:
		return "="
	}
}

// ---- type rendering ----

func cPrimName(p PrimKind) string {
	switch p {
	case PrimU8:
		return "uint8_t"
	case PrimU16:
		return "uint16_t"
	case PrimU32:
		return "uint32_t"
	case PrimU64:
		return "uint64_t"
	case PrimI8:
		return "int8_t"
	case PrimI16:
		return "int16_t"
	case PrimI32:
		return "int32_t"
	case PrimI64:
		return "int64_t"
	case PrimF32:
		return "float"
	case PrimF64:
		return "double"
	case PrimBool:
		return "bool"
	case PrimVoid:
		return "void"
	case PrimISR:
		return "void"
	default:
		return "void"
	}
}

// cDecl renders a type/name pair in C declarator form, which matters
// for array-shaped types: string<N> declares as char name[N+1] and
// T[n] as T name[n], with the name inside the declarator.
func (e *Emitter) cDecl(t Type, name string) string {
	name = sanitizeCIdent(name)
	switch t.Tag {
	case TypeBoundedString:
		return fmt.Sprintf("char %s[%d]", name, t.StringCap+1)
	case TypeArray:
		if t.ArrayLenSet {
			return fmt.Sprintf("%s %s[%d]", e.cType(*t.Elem), name, t.ArrayLen)
		}
		return fmt.Sprintf("%s %s[]", e.cType(*t.Elem), name)
	default:
		return fmt.Sprintf("%s %s", e.cType(t), name)
	}
}

func (e *Emitter) cType(t Type) string {
	switch t.Tag {
	case TypePrim:
		return cPrimName(t.Prim)
	case TypeBoundedString:
		return "char *"
	case TypeNamed:
		return sanitizeCIdent(t.Name)
	case TypePtr:
		return e.cType(*t.Elem) + " *"
	case TypeArray:
		return e.cType(*t.Elem)
	case TypeRef:
		return e.cType(*t.Elem) + " *"
	case TypeBitmap:
		return cPrimName(t.Elem.Prim)
	default:
		return "void"
	}
}

