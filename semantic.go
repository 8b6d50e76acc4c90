package cnext

import (
	"fmt"
	"strings"
)

// Analyser is the whole-program Semantic Analyser: type checking,
// overflow inference, access-modifier validation, and C++-requirement
// detection. It runs after every file in the compilation unit has a
// SymbolTable, so qualified references can resolve across file
// boundaries.
type Analyser struct {
	table       *SymbolTable
	diagnostics []Diagnostic
	filePath    string

	overflowDefault OverflowPolicy
	cppRequired     bool
	cppReasons      []string
}

func NewAnalyser(filePath string, table *SymbolTable, overflowDefault OverflowPolicy) *Analyser {
	return &Analyser{filePath: filePath, table: table, overflowDefault: overflowDefault}
}

func (a *Analyser) Diagnostics() []Diagnostic { return a.diagnostics }
func (a *Analyser) CppRequired() bool         { return a.cppRequired }
func (a *Analyser) CppReasons() []string      { return a.cppReasons }

func (a *Analyser) errorAt(kind DiagnosticKind, code string, sp Span, format string, args ...any) {
	a.diagnostics = append(a.diagnostics, Diagnostic{
		Kind: kind, Severity: DiagnosticError, Message: fmt.Sprintf(format, args...),
		Code: code, Span: sp, FilePath: a.filePath,
	})
}

// AnalyseFile type-checks and overflow-infers every declaration in f,
// then runs C++-requirement detection against f's own directives and
// AST plus the raw text of any included native headers.
func (a *Analyser) AnalyseFile(f *File, nativeHeaderText []string) {
	for _, d := range f.Directives {
		lower := strings.ToLower(d.Lexeme)
		if strings.Contains(lower, "test-cpp-only") || strings.Contains(lower, "test-cpp-mode") {
			a.markCpp(d.Span, "source carries a cpp-mode directive")
		}
	}
	for _, d := range f.Decls {
		a.analyseDecl(d, "")
	}
	a.detectCppInAST(f)
	for _, text := range nativeHeaderText {
		a.detectCppInText(text)
	}
}

func (a *Analyser) markCpp(sp Span, reason string) {
	a.cppRequired = true
	a.cppReasons = append(a.cppReasons, reason)
	a.diagnostics = append(a.diagnostics, Diagnostic{
		Kind: KindCppRequirementMismatch, Severity: DiagnosticNote,
		Message: "C++ emission required: " + reason, Code: "N-CPP-001",
		Span: sp, FilePath: a.filePath, Reason: reason,
	})
}

// ---- declarations ----

func (a *Analyser) analyseDecl(d Decl, enclosingFQN string) {
	switch n := d.(type) {
	case *ScopeDecl:
		for _, child := range n.Body {
			a.analyseDecl(child, mangle(enclosingFQN, n.Name))
		}
	case *ConstDecl:
		valType := a.typeExpr(n.Value, false)
		if isNarrowing(valType, n.Type) {
			a.errorAt(KindTypeMismatch, "E-TYPE-001", n.Sp,
				"initializer of const %q narrows %s to %s without an explicit cast", n.Name, valType, n.Type)
		}
	case *VarDecl:
		if n.Init != nil {
			valType := a.typeExpr(n.Init, false)
			if isNarrowing(valType, n.Type) {
				a.errorAt(KindTypeMismatch, "E-TYPE-002", n.Sp,
					"initializer of %q narrows %s to %s without an explicit cast", n.Name, valType, n.Type)
			}
		}
	case *FuncDecl:
		a.analyseBlock(n.Body)
	case *MethodDecl:
		a.analyseBlock(n.Body)
	}
}

func (a *Analyser) analyseBlock(b *Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		a.analyseStmt(s)
	}
}

func (a *Analyser) analyseStmt(s Stmt) {
	switch n := s.(type) {
	case *Block:
		a.analyseBlock(n)
	case *IfStmt:
		a.typeExpr(n.Cond, false)
		a.analyseBlock(n.Then)
		if n.Else != nil {
			a.analyseStmt(n.Else)
		}
	case *WhileStmt:
		a.typeExpr(n.Cond, false)
		a.analyseBlock(n.Body)
	case *DoWhileStmt:
		a.analyseBlock(n.Body)
		a.typeExpr(n.Cond, false)
	case *ForStmt:
		if n.Init != nil {
			a.analyseStmt(n.Init)
		}
		if n.Cond != nil {
			a.typeExpr(n.Cond, false)
		}
		if n.Step != nil {
			a.analyseStmt(n.Step)
		}
		a.analyseBlock(n.Body)
	case *SwitchStmt:
		a.typeExpr(n.Subject, false)
		for _, c := range n.Cases {
			for _, v := range c.Values {
				a.typeExpr(v, false)
			}
			a.analyseBlock(c.Body)
		}
	case *ReturnStmt:
		if n.Value != nil {
			a.typeExpr(n.Value, false)
		}
	case *ExprStmt:
		a.typeExpr(n.X, false)
	case *DeclStmt:
		a.analyseDecl(n.Decl, "")
	case *AtomicStmt:
		a.analyseBlock(n.Body)
	case *CriticalStmt:
		a.analyseBlock(n.Body)
	}
}

// ---- expression typing ----

// typeExpr types e bottom-up, records its resolved Type on the node,
// and (when write is true) validates e as an assignment target's
// access modifier.
func (a *Analyser) typeExpr(e Expr, write bool) Type {
	if e == nil {
		return UnknownType()
	}
	var t Type
	switch n := e.(type) {
	case *IntLiteral:
		t = literalIntType(n.Suffix)
	case *FloatLiteral:
		t = literalFloatType(n.Suffix)
	case *StringLiteral:
		t = BoundedStringType(len(n.Value))
	case *CharLiteral:
		t = PrimType(PrimU8)
	case *BoolLiteral:
		t = BoolType()
	case *Identifier:
		t = a.resolveIdentifier(n, write)
	case *QualifiedAccess:
		t = a.resolveQualified(n, write)
	case *CallExpr:
		if qa, ok := n.Callee.(*QualifiedAccess); ok && qa.Field == "append" {
			t = a.typeStringAppend(qa, n)
		} else {
			a.typeExpr(n.Callee, false)
			for _, arg := range n.Args {
				a.typeExpr(arg, false)
			}
			t = UnknownType()
		}
	case *IndexExpr:
		baseT := a.typeExpr(n.Base, write)
		a.typeExpr(n.Index, false)
		if baseT.Tag == TypePtr || baseT.Tag == TypeArray {
			t = *baseT.Elem
		} else {
			t = UnknownType()
		}
	case *UnaryExpr:
		t = a.typeExpr(n.Operand, n.Op == TokenAmp && write)
	case *BinaryExpr:
		t = a.typeBinary(n)
	case *CastExpr:
		a.typeExpr(n.Operand, false)
		t = n.Target
	case *SizeofExpr:
		if n.TargetExpr != nil {
			a.typeExpr(n.TargetExpr, false)
		}
		t = PrimType(PrimU32)
	case *TernaryExpr:
		a.typeExpr(n.Cond, false)
		thenT := a.typeExpr(n.Then, false)
		a.typeExpr(n.Else, false)
		t = thenT
	case *CompoundAssignExpr:
		targetT := a.typeExpr(n.Target, true)
		valT := a.typeExpr(n.Value, false)
		if isNarrowing(valT, targetT) {
			a.errorAt(KindTypeMismatch, "E-TYPE-003", n.Sp,
				"assignment narrows %s to %s without an explicit cast", valT, targetT)
		}
		a.checkW1Write(n)
		n.Overflow = a.inferOverflow(n.OverflowExplicit, n.Overflow, n.Target, n.Value)
		t = targetT
	default:
		t = UnknownType()
	}
	e.SetType(t)
	return t
}

func (a *Analyser) typeBinary(n *BinaryExpr) Type {
	leftT := a.typeExpr(n.Left, false)
	rightT := a.typeExpr(n.Right, false)

	switch n.Op {
	case TokenAndAnd, TokenOrOr:
		return BoolType()
	case TokenEq, TokenNe, TokenLt, TokenGt, TokenLe, TokenGe:
		if leftT.Tag == TypePrim && rightT.Tag == TypePrim && leftT.Prim.IsInteger() && rightT.Prim.IsInteger() {
			if leftT.Prim.IsSigned() != rightT.Prim.IsSigned() && leftT.Prim != rightT.Prim {
				a.errorAt(KindTypeMismatch, "E-TYPE-004", n.Sp,
					"comparison between %s and %s requires an explicit cast", leftT, rightT)
			}
		}
		return BoolType()
	case TokenPlus:
		if leftT.Tag == TypeBoundedString || rightT.Tag == TypeBoundedString {
			return a.typeStringConcat(n, leftT, rightT)
		}
		result := widerNumeric(leftT, rightT)
		n.Overflow = a.inferOverflow(n.OverflowExplicit, n.Overflow, n.Left, n.Right)
		return result
	default:
		result := widerNumeric(leftT, rightT)
		n.Overflow = a.inferOverflow(n.OverflowExplicit, n.Overflow, n.Left, n.Right)
		return result
	}
}

// typeStringConcat types a string<N> + string<M> expression. Both
// sides must be bounded strings; the result is a bounded string whose
// capacity is the sum of the two (the worst case length of the
// concatenation), so assigning it into a smaller-capacity destination
// is caught as an ordinary narrowing TypeMismatch at the assignment or
// declaration site, the same way numeric narrowing already is.
func (a *Analyser) typeStringConcat(n *BinaryExpr, leftT, rightT Type) Type {
	if leftT.Tag != TypeBoundedString || rightT.Tag != TypeBoundedString {
		a.errorAt(KindTypeMismatch, "E-TYPE-005", n.Sp,
			"cannot concatenate %s with %s", leftT, rightT)
		return UnknownType()
	}
	return BoundedStringType(leftT.StringCap + rightT.StringCap)
}

// typeStringAppend types buf.append(value), the builtin bounded-string
// mutator. append is not a table symbol (no struct/scope declares it),
// so it is recognised here by name rather than going through the
// generic qualified-member resolution that resolveQualified performs.
func (a *Analyser) typeStringAppend(qa *QualifiedAccess, call *CallExpr) Type {
	baseT := a.typeExpr(qa.Base, true)
	for _, arg := range call.Args {
		a.typeExpr(arg, false)
	}
	if baseT.Tag != TypeBoundedString {
		a.errorAt(KindTypeMismatch, "E-TYPE-006", call.Sp,
			"append is only defined on string<N> values, got %s", baseT)
		return UnknownType()
	}
	policy := a.overflowDefault
	if ident, ok := qa.Base.(*Identifier); ok && ident.Sym != nil && ident.Sym.OverflowExplicit {
		policy = ident.Sym.Overflow
	}
	if policy == Wrap {
		a.errorAt(KindOverflowPolicyConflict, "E-OVF-001", call.Sp,
			"append on %q is meaningless under the wrap overflow policy", qa.Base.String())
	}
	return BoolType()
}

// operandPolicy returns an overflow policy stated explicitly by e
// itself: a w/c suffix on a numeric literal, or a reference to a
// variable declared with a clamp/wrap modifier.
func operandPolicy(e Expr) (OverflowPolicy, bool) {
	switch n := e.(type) {
	case *IntLiteral:
		if n.Suffix.HasOverflow {
			return n.Suffix.Overflow, true
		}
	case *FloatLiteral:
		if n.Suffix.HasOverflow {
			return n.Suffix.Overflow, true
		}
	case *Identifier:
		if n.Sym != nil && n.Sym.OverflowExplicit {
			return n.Sym.Overflow, true
		}
	case *QualifiedAccess:
		if n.Sym != nil && n.Sym.OverflowExplicit {
			return n.Sym.Overflow, true
		}
	}
	return Clamp, false
}

// inferOverflow implements the "explicit wins, else a w/c literal
// suffix on any operand, else a clamp/wrap-declared operand variable
// (the assignment target first), else the default" rule. Declared
// variables are consulted in the order given, so callers pass the
// write target ahead of the value.
func (a *Analyser) inferOverflow(explicit bool, current OverflowPolicy, operands ...Expr) OverflowPolicy {
	if explicit {
		return current
	}
	for _, op := range operands {
		switch op.(type) {
		case *IntLiteral, *FloatLiteral:
			if p, ok := operandPolicy(op); ok {
				return p
			}
		}
	}
	for _, op := range operands {
		if p, ok := operandPolicy(op); ok {
			return p
		}
	}
	return a.overflowDefault
}

func (a *Analyser) resolveIdentifier(id *Identifier, write bool) Type {
	candidates := a.table.LookupByName(id.Name)
	if len(candidates) == 0 {
		a.errorAt(KindUnresolvedReference, "E-REF-001", id.Sp, "unresolved reference %q", id.Name)
		return UnknownType()
	}
	sym := candidates[0]
	id.Sym = sym
	a.checkAccess(sym, write, id.Sp)
	return sym.Type
}

func (a *Analyser) resolveQualified(qa *QualifiedAccess, write bool) Type {
	a.typeExpr(qa.Base, false)
	baseName := ""
	if ident, ok := qa.Base.(*Identifier); ok {
		baseName = ident.Name
	} else if inner, ok := qa.Base.(*QualifiedAccess); ok {
		baseName = inner.Field
	}
	fqn := mangle(baseName, qa.Field)
	if sym, ok := a.table.Lookup(fqn); ok {
		qa.Sym = sym
		a.checkAccess(sym, write, qa.Sp)
		return sym.Type
	}
	for _, sym := range a.table.LookupByName(qa.Field) {
		qa.Sym = sym
		a.checkAccess(sym, write, qa.Sp)
		return sym.Type
	}
	a.errorAt(KindUnresolvedReference, "E-REF-002", qa.Sp, "unresolved member %q", qa.Field)
	return UnknownType()
}

// checkAccess enforces the wo/ro halves of register-member access
// validation: wo is write-only, ro is read-only. The w1c/w1s
// "non-1-valued write is an error" rule needs the RHS of the
// assignment in scope, so it's checked separately by checkW1Write at
// the CompoundAssignExpr that has both target and value.
func (a *Analyser) checkAccess(sym *Symbol, write bool, sp Span) {
	if sym.Kind != SymRegisterMember {
		return
	}
	switch sym.Access {
	case AccessWO:
		if !write {
			a.errorAt(KindAccessModifierViolation, "E-ACC-001", sp, "read of write-only register member %q", sym.Name)
		}
	case AccessRO:
		if write {
			a.errorAt(KindAccessModifierViolation, "E-ACC-002", sp, "write to read-only register member %q", sym.Name)
		}
	}
}

// registerMemberSymbol returns the resolved Symbol behind e if e is a
// register-member reference (bare or qualified), else nil.
func registerMemberSymbol(e Expr) *Symbol {
	var sym *Symbol
	switch n := e.(type) {
	case *Identifier:
		sym = n.Sym
	case *QualifiedAccess:
		sym = n.Sym
	}
	if sym == nil || sym.Kind != SymRegisterMember {
		return nil
	}
	return sym
}

// isLiteralOne reports whether e is the integer literal 1, unwrapping
// an explicit cast around it.
func isLiteralOne(e Expr) bool {
	if c, ok := e.(*CastExpr); ok {
		e = c.Operand
	}
	lit, ok := e.(*IntLiteral)
	return ok && lit.Value == 1
}

// checkW1Write enforces that an assignment into a w1c/w1s register
// member writes the literal 1, per the access-modifier validation
// rule: any other written value is rejected outright, since w1c/w1s
// hardware registers only define behaviour for a 1 in the written bit
// position.
func (a *Analyser) checkW1Write(n *CompoundAssignExpr) {
	sym := registerMemberSymbol(n.Target)
	if sym == nil || (sym.Access != AccessW1C && sym.Access != AccessW1S) {
		return
	}
	if !isLiteralOne(n.Value) {
		a.errorAt(KindAccessModifierViolation, "E-ACC-003", n.Sp,
			"write to %s register member %q must write the literal 1, got %s", sym.Access, sym.Name, n.Value.String())
	}
}

// ---- type-check helpers ----

func literalIntType(s NumericSuffix) Type {
	if s.HasWidth {
		if prim, ok := primTypeTokens[s.Width]; ok {
			return PrimType(prim)
		}
	}
	return PrimType(PrimI32)
}

func literalFloatType(s NumericSuffix) Type {
	if s.HasWidth && s.Width == TokenF32 {
		return PrimType(PrimF32)
	}
	return PrimType(PrimF64)
}

// isNarrowing reports whether assigning a `from` value to a `to`
// target loses information without an explicit cast: a smaller
// integer width, float-to-integer, or a signed/unsigned change at
// equal width.
func isNarrowing(from, to Type) bool {
	if from.Tag == TypeBoundedString && to.Tag == TypeBoundedString {
		return to.StringCap < from.StringCap
	}
	if from.Tag != TypePrim || to.Tag != TypePrim {
		return false
	}
	if from.Prim == to.Prim {
		return false
	}
	if from.Prim.IsFloat() && to.Prim.IsInteger() {
		return true
	}
	if from.Prim.IsInteger() && to.Prim.IsInteger() {
		if to.Prim.Width() < from.Prim.Width() {
			return true
		}
		if to.Prim.Width() == from.Prim.Width() && to.Prim.IsSigned() != from.Prim.IsSigned() {
			return true
		}
	}
	return false
}

// widerNumeric returns the result type of a binary arithmetic op:
// the operand with the greater width, preferring float over integer
// and signed over unsigned at equal width (usual arithmetic
// conversions, restricted to C-Next's closed primitive set).
func widerNumeric(a, b Type) Type {
	if a.Tag != TypePrim || b.Tag != TypePrim {
		return UnknownType()
	}
	if a.Prim.IsFloat() != b.Prim.IsFloat() {
		if a.Prim.IsFloat() {
			return a
		}
		return b
	}
	if a.Prim.Width() != b.Prim.Width() {
		if a.Prim.Width() > b.Prim.Width() {
			return a
		}
		return b
	}
	if a.Prim.IsSigned() {
		return a
	}
	return b
}

// ---- C++-requirement detection ----

func (a *Analyser) detectCppInAST(f *File) {
	Inspect(f, func(n Node) bool {
		switch v := n.(type) {
		case *Identifier:
			if v.Name == "class" || v.Name == "namespace" || v.Name == "template" {
				a.markCpp(v.Sp, "source uses a C++ keyword: "+v.Name)
			}
		case *QualifiedAccess:
			// A::B style is not representable in this grammar (the
			// parser only ever emits '.' access), so a QualifiedAccess
			// can never itself signal scope-resolution syntax; this
			// case exists for completeness of the walk.
		}
		return true
	})
}

var cppMarkers = []string{
	"class ", "namespace ", "template<", "template ",
	"static_cast<", "reinterpret_cast<", "const_cast<", "dynamic_cast<",
	"::",
}

// detectCppInText scans a native header's raw bytes for syntax that
// only a C++ compiler accepts. This is a lexical approximation (the
// resolver never parses native headers as C-Next), matching the
// original tool's documented heuristic rather than a full C++ parse.
func (a *Analyser) detectCppInText(text string) {
	for _, marker := range cppMarkers {
		if strings.Contains(text, marker) {
			a.markCpp(Span{}, "included native header contains C++ syntax: "+strings.TrimSpace(marker))
			return
		}
	}
	if looksLikeReferenceParam(text) {
		a.markCpp(Span{}, "included native header declares a reference parameter")
	}
}

// looksLikeReferenceParam approximates "T&" in a parameter position,
// disambiguated from "x & y" bitwise-and by requiring both sides of
// '&' to be identifier-like and the next non-space rune to be ',' or
// ')'.
func looksLikeReferenceParam(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] != '&' {
			continue
		}
		if i == 0 || i+1 >= len(text) {
			continue
		}
		left := text[i-1]
		if !(isIdentCont(rune(left)) || left == ' ') {
			continue
		}
		j := i + 1
		for j < len(text) && text[j] == ' ' {
			j++
		}
		k := j
		for k < len(text) && isIdentCont(rune(text[k])) {
			k++
		}
		if k == j {
			continue
		}
		m := k
		for m < len(text) && text[m] == ' ' {
			m++
		}
		if m < len(text) && (text[m] == ',' || text[m] == ')') {
			return true
		}
	}
	return false
}
