package cnext

// Visitor is the exhaustive double-dispatch interface over every Node
// variant.
type Visitor interface {
	VisitFile(*File) error
	VisitScopeDecl(*ScopeDecl) error
	VisitStructDecl(*StructDecl) error
	VisitEnumDecl(*EnumDecl) error
	VisitBitmapDecl(*BitmapDecl) error
	VisitRegisterDecl(*RegisterDecl) error
	VisitConstDecl(*ConstDecl) error
	VisitVarDecl(*VarDecl) error
	VisitFuncDecl(*FuncDecl) error
	VisitMethodDecl(*MethodDecl) error
	VisitIncludeDirective(*IncludeDirective) error

	VisitBlock(*Block) error
	VisitIfStmt(*IfStmt) error
	VisitWhileStmt(*WhileStmt) error
	VisitDoWhileStmt(*DoWhileStmt) error
	VisitForStmt(*ForStmt) error
	VisitSwitchStmt(*SwitchStmt) error
	VisitReturnStmt(*ReturnStmt) error
	VisitExprStmt(*ExprStmt) error
	VisitDeclStmt(*DeclStmt) error
	VisitAtomicStmt(*AtomicStmt) error
	VisitCriticalStmt(*CriticalStmt) error

	VisitIntLiteral(*IntLiteral) error
	VisitFloatLiteral(*FloatLiteral) error
	VisitStringLiteral(*StringLiteral) error
	VisitCharLiteral(*CharLiteral) error
	VisitBoolLiteral(*BoolLiteral) error
	VisitIdentifier(*Identifier) error
	VisitQualifiedAccess(*QualifiedAccess) error
	VisitCallExpr(*CallExpr) error
	VisitIndexExpr(*IndexExpr) error
	VisitUnaryExpr(*UnaryExpr) error
	VisitBinaryExpr(*BinaryExpr) error
	VisitCastExpr(*CastExpr) error
	VisitSizeofExpr(*SizeofExpr) error
	VisitTernaryExpr(*TernaryExpr) error
	VisitCompoundAssignExpr(*CompoundAssignExpr) error
}

// BaseVisitor implements every Visitor method as a no-op, so callers
// that only care about a handful of node kinds can embed it and
// override selectively.
type BaseVisitor struct{}

func (BaseVisitor) VisitFile(*File) error                               { return nil }
func (BaseVisitor) VisitScopeDecl(*ScopeDecl) error                     { return nil }
func (BaseVisitor) VisitStructDecl(*StructDecl) error                   { return nil }
func (BaseVisitor) VisitEnumDecl(*EnumDecl) error                       { return nil }
func (BaseVisitor) VisitBitmapDecl(*BitmapDecl) error                   { return nil }
func (BaseVisitor) VisitRegisterDecl(*RegisterDecl) error               { return nil }
func (BaseVisitor) VisitConstDecl(*ConstDecl) error                     { return nil }
func (BaseVisitor) VisitVarDecl(*VarDecl) error                         { return nil }
func (BaseVisitor) VisitFuncDecl(*FuncDecl) error                       { return nil }
func (BaseVisitor) VisitMethodDecl(*MethodDecl) error                   { return nil }
func (BaseVisitor) VisitIncludeDirective(*IncludeDirective) error       { return nil }
func (BaseVisitor) VisitBlock(*Block) error                             { return nil }
func (BaseVisitor) VisitIfStmt(*IfStmt) error                           { return nil }
func (BaseVisitor) VisitWhileStmt(*WhileStmt) error                     { return nil }
func (BaseVisitor) VisitDoWhileStmt(*DoWhileStmt) error                 { return nil }
func (BaseVisitor) VisitForStmt(*ForStmt) error                         { return nil }
func (BaseVisitor) VisitSwitchStmt(*SwitchStmt) error                   { return nil }
func (BaseVisitor) VisitReturnStmt(*ReturnStmt) error                   { return nil }
func (BaseVisitor) VisitExprStmt(*ExprStmt) error                       { return nil }
func (BaseVisitor) VisitDeclStmt(*DeclStmt) error                       { return nil }
func (BaseVisitor) VisitAtomicStmt(*AtomicStmt) error                   { return nil }
func (BaseVisitor) VisitCriticalStmt(*CriticalStmt) error               { return nil }
func (BaseVisitor) VisitIntLiteral(*IntLiteral) error                   { return nil }
func (BaseVisitor) VisitFloatLiteral(*FloatLiteral) error               { return nil }
func (BaseVisitor) VisitStringLiteral(*StringLiteral) error             { return nil }
func (BaseVisitor) VisitCharLiteral(*CharLiteral) error                 { return nil }
func (BaseVisitor) VisitBoolLiteral(*BoolLiteral) error                 { return nil }
func (BaseVisitor) VisitIdentifier(*Identifier) error                   { return nil }
func (BaseVisitor) VisitQualifiedAccess(*QualifiedAccess) error         { return nil }
func (BaseVisitor) VisitCallExpr(*CallExpr) error                       { return nil }
func (BaseVisitor) VisitIndexExpr(*IndexExpr) error                     { return nil }
func (BaseVisitor) VisitUnaryExpr(*UnaryExpr) error                     { return nil }
func (BaseVisitor) VisitBinaryExpr(*BinaryExpr) error                   { return nil }
func (BaseVisitor) VisitCastExpr(*CastExpr) error                       { return nil }
func (BaseVisitor) VisitSizeofExpr(*SizeofExpr) error                   { return nil }
func (BaseVisitor) VisitTernaryExpr(*TernaryExpr) error                 { return nil }
func (BaseVisitor) VisitCompoundAssignExpr(*CompoundAssignExpr) error   { return nil }

// Inspect walks node in depth-first order, calling f on every node
// reached. If f returns false the node's children are skipped. Exists
// so callers that need to find one or two node kinds (e.g. the call-graph
// builder) don't have to implement the full Visitor interface.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	switch n := node.(type) {
	case *File:
		for _, d := range n.Decls {
			Inspect(d, f)
		}
	case *ScopeDecl:
		for _, d := range n.Body {
			Inspect(d, f)
		}
	case *StructDecl, *EnumDecl, *BitmapDecl, *RegisterDecl, *IncludeDirective:
		// leaf declarations w.r.t. this walk
	case *ConstDecl:
		Inspect(n.Value, f)
	case *VarDecl:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
	case *FuncDecl:
		Inspect(n.Body, f)
	case *MethodDecl:
		Inspect(n.Body, f)
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *IfStmt:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *WhileStmt:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *DoWhileStmt:
		Inspect(n.Body, f)
		Inspect(n.Cond, f)
	case *ForStmt:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
		if n.Cond != nil {
			Inspect(n.Cond, f)
		}
		if n.Step != nil {
			Inspect(n.Step, f)
		}
		Inspect(n.Body, f)
	case *SwitchStmt:
		Inspect(n.Subject, f)
		for _, c := range n.Cases {
			for _, v := range c.Values {
				Inspect(v, f)
			}
			Inspect(c.Body, f)
		}
	case *ReturnStmt:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *ExprStmt:
		Inspect(n.X, f)
	case *DeclStmt:
		Inspect(n.Decl, f)
	case *AtomicStmt:
		Inspect(n.Body, f)
	case *CriticalStmt:
		Inspect(n.Body, f)
	case *QualifiedAccess:
		Inspect(n.Base, f)
	case *CallExpr:
		Inspect(n.Callee, f)
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *IndexExpr:
		Inspect(n.Base, f)
		Inspect(n.Index, f)
	case *UnaryExpr:
		Inspect(n.Operand, f)
	case *BinaryExpr:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *CastExpr:
		Inspect(n.Operand, f)
	case *SizeofExpr:
		if n.TargetExpr != nil {
			Inspect(n.TargetExpr, f)
		}
	case *TernaryExpr:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *CompoundAssignExpr:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	}
}
