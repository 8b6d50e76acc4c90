package cnext

import "fmt"

// RenderCpp renders an IR built with Mode == EmitCpp. It shares every
// declaration/statement/expression writer in emit_c.go; the only
// C++-specific behaviour is parameter passing (named-type parameters
// become const T& or T& per the whole-program const inference in
// const_inference.go, rather than the C backend's T*) and the absence
// of the extern "C" wrapper Emitter.Emit adds for plain C headers.
// The shape here is the same outputWriter/mangling machinery as
// emit_c.go, specialized to the one place C++ genuinely differs from
// C99 at the source-text level.
func RenderCpp(ir *IR, baseName string) (header string, impl string, diags []Diagnostic) {
	e := NewEmitter(ir, baseName)
	h, i := e.Emit()
	return h, i, e.Diagnostics()
}

// paramDeclCpp overrides paramDecl for the C++ backend: a named-type
// parameter is passed by reference, const unless const_inference.go
// determined the callee mutates it (directly or by forwarding it to a
// mutating callee). Every other type renders exactly as in C.
func (e *Emitter) paramDeclCpp(funcFQN string, p Param) string {
	if p.Type.Tag != TypeNamed {
		return e.cDecl(p.Type, p.Name)
	}
	if e.consts != nil && e.consts.IsNonConst(funcFQN, p.Name) {
		return fmt.Sprintf("%s &%s", sanitizeCIdent(p.Type.Name), sanitizeCIdent(p.Name))
	}
	return fmt.Sprintf("const %s &%s", sanitizeCIdent(p.Type.Name), sanitizeCIdent(p.Name))
}
