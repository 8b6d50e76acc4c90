package cnext

import "fmt"

// ---- Expressions ----

type IntLiteral struct {
	exprBase
	Value  uint64
	Suffix NumericSuffix
}

func (e *IntLiteral) String() string { return fmt.Sprintf("%d", e.Value) }
func (e *IntLiteral) Accept(v Visitor) error { return v.VisitIntLiteral(e) }

type FloatLiteral struct {
	exprBase
	Value  float64
	Suffix NumericSuffix
}

func (e *FloatLiteral) String() string { return fmt.Sprintf("%g", e.Value) }
func (e *FloatLiteral) Accept(v Visitor) error { return v.VisitFloatLiteral(e) }

type StringLiteral struct {
	exprBase
	Value string
	Raw   bool // triple-quoted
}

func (e *StringLiteral) String() string { return fmt.Sprintf("%q", e.Value) }
func (e *StringLiteral) Accept(v Visitor) error { return v.VisitStringLiteral(e) }

type CharLiteral struct {
	exprBase
	Value rune
}

func (e *CharLiteral) String() string { return fmt.Sprintf("%q", e.Value) }
func (e *CharLiteral) Accept(v Visitor) error { return v.VisitCharLiteral(e) }

type BoolLiteral struct {
	exprBase
	Value bool
}

func (e *BoolLiteral) String() string { return fmt.Sprintf("%v", e.Value) }
func (e *BoolLiteral) Accept(v Visitor) error { return v.VisitBoolLiteral(e) }

// Identifier is a bare name reference, resolved to a Symbol by the
// Semantic Analyser.
type Identifier struct {
	exprBase
	Name string
	Sym  *Symbol // resolved by the analyser; nil until then
}

func (e *Identifier) String() string { return e.Name }
func (e *Identifier) Accept(v Visitor) error { return v.VisitIdentifier(e) }

// QualifiedAccess is this.X / global.X / A.B.C member access.
type QualifiedAccess struct {
	exprBase
	Base  Expr
	Field string
	Sym   *Symbol
}

func (e *QualifiedAccess) String() string { return e.Base.String() + "." + e.Field }
func (e *QualifiedAccess) Accept(v Visitor) error { return v.VisitQualifiedAccess(e) }

type CallExpr struct {
	exprBase
	Callee Expr
	Args   []Expr
}

func (e *CallExpr) String() string { return e.Callee.String() + "(...)" }
func (e *CallExpr) Accept(v Visitor) error { return v.VisitCallExpr(e) }

type IndexExpr struct {
	exprBase
	Base  Expr
	Index Expr
}

func (e *IndexExpr) String() string { return e.Base.String() + "[...]" }
func (e *IndexExpr) Accept(v Visitor) error { return v.VisitIndexExpr(e) }

type UnaryExpr struct {
	exprBase
	Op      TokenKind
	Operand Expr
}

func (e *UnaryExpr) String() string { return e.Op.String() + e.Operand.String() }
func (e *UnaryExpr) Accept(v Visitor) error { return v.VisitUnaryExpr(e) }

// BinaryExpr carries its own computed OverflowPolicy once the
// analyser has run overflow inference.
type BinaryExpr struct {
	exprBase
	Op               TokenKind
	Left, Right      Expr
	Overflow         OverflowPolicy
	OverflowExplicit bool
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op.String(), e.Right.String())
}
func (e *BinaryExpr) Accept(v Visitor) error { return v.VisitBinaryExpr(e) }

type CastExpr struct {
	exprBase
	Target   Type
	Operand  Expr
}

func (e *CastExpr) String() string { return fmt.Sprintf("(%s)%s", e.Target, e.Operand.String()) }
func (e *CastExpr) Accept(v Visitor) error { return v.VisitCastExpr(e) }

// SizeofExpr is a compile-time constant. Exactly one of
// TargetType/TargetExpr is set.
type SizeofExpr struct {
	exprBase
	TargetType *Type
	TargetExpr Expr
}

func (e *SizeofExpr) String() string { return "sizeof(...)" }
func (e *SizeofExpr) Accept(v Visitor) error { return v.VisitSizeofExpr(e) }

type TernaryExpr struct {
	exprBase
	Cond, Then, Else Expr
}

func (e *TernaryExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Cond.String(), e.Then.String(), e.Else.String())
}
func (e *TernaryExpr) Accept(v Visitor) error { return v.VisitTernaryExpr(e) }

// CompoundAssignExpr covers both plain "=" and the wrap/clamp arrow
// operators (+<-, -<-, <-, ...).
type CompoundAssignExpr struct {
	exprBase
	Target           Expr
	Op               TokenKind
	Value            Expr
	Overflow         OverflowPolicy
	OverflowExplicit bool
}

func (e *CompoundAssignExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.Target.String(), e.Op.String(), e.Value.String())
}
func (e *CompoundAssignExpr) Accept(v Visitor) error { return v.VisitCompoundAssignExpr(e) }
