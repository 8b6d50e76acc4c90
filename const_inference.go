package cnext

// ParamKey identifies one parameter of one function/method for the
// const-inference fixed point.
type ParamKey struct {
	FuncFQN string
	Param   string
}

// ConstInference holds the final NonConst decision for every
// user-defined-type parameter considered, C++ emission only. A
// parameter absent from the map (or present with a false value) is
// emitted as `const T&`; true means `T&`.
type ConstInference struct {
	NonConst map[ParamKey]bool
}

func (ci *ConstInference) IsNonConst(funcFQN, param string) bool {
	return ci.NonConst[ParamKey{FuncFQN: funcFQN, Param: param}]
}

type funcInfo struct {
	fqn    string
	params []Param
	body   *Block
}

// InferConstParams runs the transitive const-parameter fixed point:
// every user-defined-type parameter starts const; a parameter flips to
// non-const if its function's body writes one of its fields, or if it
// is forwarded unchanged as the corresponding argument to a callee
// whose matching parameter is already non-const. Iteration continues
// until no flip occurs; termination is guaranteed because flips are
// monotonic (const to non-const, never back).
func InferConstParams(table *SymbolTable, files []*File) *ConstInference {
	funcs := collectFuncInfos(files)
	ci := &ConstInference{NonConst: map[ParamKey]bool{}}

	for _, fn := range funcs {
		for _, p := range fn.params {
			if p.Type.Tag == TypeNamed {
				ci.NonConst[ParamKey{FuncFQN: fn.fqn, Param: p.Name}] = false
			}
		}
	}

	for _, fn := range funcs {
		markDirectMutations(fn, ci)
	}

	changed := true
	for changed {
		changed = false
		for _, fn := range funcs {
			if propagateForwardedCalls(fn, funcs, table, ci) {
				changed = true
			}
		}
	}
	return ci
}

func collectFuncInfos(files []*File) []funcInfo {
	var out []funcInfo
	var walk func(decls []Decl, enclosing string)
	walk = func(decls []Decl, enclosing string) {
		for _, d := range decls {
			switch n := d.(type) {
			case *ScopeDecl:
				walk(n.Body, mangle(enclosing, n.Name))
			case *FuncDecl:
				out = append(out, funcInfo{fqn: mangle(enclosing, n.Name), params: n.Params, body: n.Body})
			case *MethodDecl:
				out = append(out, funcInfo{fqn: mangle(n.ReceiverType, n.Name), params: n.Params, body: n.Body})
			}
		}
	}
	for _, f := range files {
		walk(f.Decls, "")
	}
	return out
}

func markDirectMutations(fn funcInfo, ci *ConstInference) {
	paramNames := map[string]bool{}
	for _, p := range fn.params {
		if p.Type.Tag == TypeNamed {
			paramNames[p.Name] = true
		}
	}
	if len(paramNames) == 0 {
		return
	}
	markWrite := func(target Expr) {
		qa, ok := target.(*QualifiedAccess)
		if !ok {
			return
		}
		ident, ok := qa.Base.(*Identifier)
		if !ok || !paramNames[ident.Name] {
			return
		}
		ci.NonConst[ParamKey{FuncFQN: fn.fqn, Param: ident.Name}] = true
	}
	Inspect(fn.body, func(n Node) bool {
		switch e := n.(type) {
		case *CompoundAssignExpr:
			markWrite(e.Target)
		}
		return true
	})
}

// propagateForwardedCalls looks for call sites in fn's body that pass
// one of fn's own named-type parameters, unchanged, as the
// corresponding argument to a callee whose matching parameter is
// already non-const, and flips fn's parameter to match. Returns
// whether any flip happened.
func propagateForwardedCalls(fn funcInfo, all []funcInfo, table *SymbolTable, ci *ConstInference) bool {
	byFQN := map[string]funcInfo{}
	for _, f := range all {
		byFQN[f.fqn] = f
	}
	changed := false
	Inspect(fn.body, func(n Node) bool {
		call, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		calleeFQN, ok := resolveCalleeFQN(call.Callee, table)
		if !ok {
			return true
		}
		callee, ok := byFQN[calleeFQN]
		if !ok {
			return true
		}
		for i, arg := range call.Args {
			if i >= len(callee.params) {
				break
			}
			ident, ok := arg.(*Identifier)
			if !ok {
				continue
			}
			callerKey := ParamKey{FuncFQN: fn.fqn, Param: ident.Name}
			if _, tracked := ci.NonConst[callerKey]; !tracked {
				continue
			}
			calleeParam := callee.params[i]
			if calleeParam.Type.Tag != TypeNamed {
				continue
			}
			calleeKey := ParamKey{FuncFQN: callee.fqn, Param: calleeParam.Name}
			if ci.NonConst[calleeKey] && !ci.NonConst[callerKey] {
				ci.NonConst[callerKey] = true
				changed = true
			}
		}
		return true
	})
	return changed
}
