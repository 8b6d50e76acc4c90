package cnext

import "fmt"

// CallGraphData is the whole-program call graph: Callees[f] is every
// function/method f's body calls (by FQN); Callers[f] is the reverse
// edge.
type CallGraphData struct {
	Callers map[string][]string
	Callees map[string][]string
}

// BuildCallGraph walks every FuncDecl/MethodDecl body in the program
// and records each call whose callee resolves to a known function or
// method symbol.
func BuildCallGraph(table *SymbolTable, files []*File) *CallGraphData {
	g := &CallGraphData{Callers: map[string][]string{}, Callees: map[string][]string{}}
	for _, f := range files {
		walkCallGraphDecls(f.Decls, "", table, g)
	}
	return g
}

func walkCallGraphDecls(decls []Decl, enclosingFQN string, table *SymbolTable, g *CallGraphData) {
	for _, d := range decls {
		switch n := d.(type) {
		case *ScopeDecl:
			walkCallGraphDecls(n.Body, mangle(enclosingFQN, n.Name), table, g)
		case *FuncDecl:
			fqn := mangle(enclosingFQN, n.Name)
			recordCalls(fqn, n.Body, table, g)
		case *MethodDecl:
			fqn := mangle(n.ReceiverType, n.Name)
			recordCalls(fqn, n.Body, table, g)
		}
	}
}

func recordCalls(callerFQN string, body *Block, table *SymbolTable, g *CallGraphData) {
	if _, ok := g.Callees[callerFQN]; !ok {
		g.Callees[callerFQN] = nil
	}
	Inspect(body, func(n Node) bool {
		call, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		calleeFQN, ok := resolveCalleeFQN(call.Callee, table)
		if !ok {
			return true
		}
		g.Callees[callerFQN] = append(g.Callees[callerFQN], calleeFQN)
		g.Callers[calleeFQN] = append(g.Callers[calleeFQN], callerFQN)
		return true
	})
}

func resolveCalleeFQN(callee Expr, table *SymbolTable) (string, bool) {
	switch n := callee.(type) {
	case *Identifier:
		for _, sym := range table.LookupByName(n.Name) {
			if sym.Kind == SymFunction {
				return sym.FQN, true
			}
		}
	case *QualifiedAccess:
		if base, ok := n.Base.(*Identifier); ok {
			fqn := mangle(base.Name, n.Field)
			if sym, ok := table.Lookup(fqn); ok && (sym.Kind == SymFunction || sym.Kind == SymMethod) {
				return sym.FQN, true
			}
		}
	}
	return "", false
}

// FindRecursion reports every function/method FQN that participates
// in a direct or transitive call cycle, via depth-first cycle
// detection over g.Callees.
func FindRecursion(g *CallGraphData) map[string]bool {
	recursive := map[string]bool{}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(node string, stack []string)
	visit = func(node string, stack []string) {
		color[node] = gray
		stack = append(stack, node)
		for _, callee := range g.Callees[node] {
			switch color[callee] {
			case white:
				visit(callee, stack)
			case gray:
				// callee is still on the stack: every node from callee
				// up to node lies on the cycle.
				for i := len(stack) - 1; i >= 0; i-- {
					recursive[stack[i]] = true
					if stack[i] == callee {
						break
					}
				}
			}
		}
		color[node] = black
	}
	for node := range g.Callees {
		if color[node] == white {
			visit(node, nil)
		}
	}
	return recursive
}

// RecursionDiagnostics turns FindRecursion's result into one
// diagnostic per offending function, for the caller to merge into the
// compilation's overall diagnostic list.
func RecursionDiagnostics(recursive map[string]bool, table *SymbolTable, filePath string) []Diagnostic {
	var diags []Diagnostic
	for fqn := range recursive {
		sym, ok := table.Lookup(fqn)
		sp := Span{}
		if ok {
			sp = Span{Start: Position{Line: sym.Line}, End: Position{Line: sym.Line}}
		}
		diags = append(diags, Diagnostic{
			Kind: KindRecursionDetected, Severity: DiagnosticError,
			Message: fmt.Sprintf("function %q is recursive (directly or transitively), which is not allowed", fqn),
			Code:    "E-REC-001", Span: sp, FilePath: filePath,
		})
	}
	return diags
}
