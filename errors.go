package cnext

import (
	"fmt"
	"strings"
)

// DiagnosticSeverity classifies how serious a Diagnostic is. Only
// DiagnosticError prevents output from being written.
type DiagnosticSeverity int

const (
	DiagnosticError DiagnosticSeverity = iota
	DiagnosticWarning
	DiagnosticNote
)

func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticError:
		return "Error"
	case DiagnosticWarning:
		return "Warning"
	default:
		return "Note"
	}
}

// DiagnosticKind is the taxonomy of distinct diagnostic categories.
type DiagnosticKind string

const (
	KindLex                 DiagnosticKind = "Lex"
	KindParse               DiagnosticKind = "Parse"
	KindIncludeResolution    DiagnosticKind = "IncludeResolution"
	KindSymbolDuplicate      DiagnosticKind = "SymbolDuplicate"
	KindUnresolvedReference  DiagnosticKind = "UnresolvedReference"
	KindTypeMismatch         DiagnosticKind = "TypeMismatch"
	KindOverflowPolicyConflict DiagnosticKind = "OverflowPolicyConflict"
	KindAccessModifierViolation DiagnosticKind = "AccessModifierViolation"
	KindRecursionDetected    DiagnosticKind = "RecursionDetected"
	KindCppRequirementMismatch DiagnosticKind = "CppRequirementMismatch"
	KindIO                   DiagnosticKind = "IO"
	KindInternalCompilerError DiagnosticKind = "InternalCompilerError"
)

// Diagnostic is the unit of error reporting threaded through every
// compiler phase. Phases return diagnostics instead of throwing, so a
// single run can surface as many independent problems as possible.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity DiagnosticSeverity
	Message  string
	Code     string // stable short code, e.g. "E-LEX-001"
	Span     Span
	FilePath string
	Reason   string // CppRequirementMismatch only: which rule forced C++ emission
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d %s", d.FilePath, d.Span.Start.Line, d.Span.Start.Column, d.Message)
}

// HasErrors reports whether any diagnostic in diags is of error
// severity. The driver's exit code and "skip emission" decisions both
// key off this.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == DiagnosticError {
			return true
		}
	}
	return false
}

// CompilerError aggregates one or more error-severity diagnostics into
// a single Go error. The pipeline phases themselves (Include
// Resolution, the Driver) report through Diagnostic lists and do not
// return it; it serves callers that want one error value for a list.
type CompilerError struct {
	Diagnostics []Diagnostic
}

func NewCompilerError(diags []Diagnostic) *CompilerError {
	return &CompilerError{Diagnostics: diags}
}

func (e *CompilerError) Error() string {
	var b strings.Builder
	for i, d := range e.Diagnostics {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Error: %s:%d:%d %s", d.FilePath, d.Span.Start.Line, d.Span.Start.Column, d.Message)
	}
	return b.String()
}

// InternalError marks an InternalCompilerError: an invariant violation
// in the compiler itself rather than in the user's source. Nothing in
// the pipeline constructs it: the Emitter records invariant violations
// as collected KindInternalCompilerError diagnostics and carries on
// emitting, and the Driver then writes no output because the
// diagnostic list has an error.
type InternalError struct {
	Node    string
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error: %s (node: %s)", e.Message, e.Node)
}
