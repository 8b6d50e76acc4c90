package cnext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyseSource(t *testing.T, src string) *Analyser {
	t.Helper()
	lx := NewLexer(unknownFileID, "t.cnx", src)
	toks, lexDiags := lx.Tokenize()
	require.Empty(t, lexDiags)

	p := NewParser(unknownFileID, "t.cnx", toks)
	f := p.ParseFile()
	require.Empty(t, p.Diagnostics())

	sc := NewSymbolCollector("t.cnx")
	table := sc.Collect(f)
	require.Empty(t, sc.Diagnostics())
	table.RebuildIndex()

	a := NewAnalyser("t.cnx", table, Clamp)
	a.AnalyseFile(f, nil)
	return a
}

func TestCheckW1WriteAcceptsLiteralOne(t *testing.T) {
	src := `register GPIO = 0x40020000 {
		w1c u32 SR;
	}
	func main() void {
		GPIO.SR = 1u32;
	}`
	a := analyseSource(t, src)
	for _, d := range a.Diagnostics() {
		assert.NotEqual(t, "E-ACC-003", d.Code, d.Message)
	}
}

func TestCheckW1WriteRejectsNonOneLiteral(t *testing.T) {
	src := `register GPIO = 0x40020000 {
		w1c u32 SR;
	}
	func main() void {
		GPIO.SR = 5u32;
	}`
	a := analyseSource(t, src)
	var found bool
	for _, d := range a.Diagnostics() {
		if d.Code == "E-ACC-003" {
			found = true
		}
	}
	assert.True(t, found, "writing a non-1 literal to a w1c member must be rejected")
}

func TestCheckAccessRejectsReadOfWriteOnlyMember(t *testing.T) {
	src := `register GPIO = 0x40020000 {
		wo u32 BSRR;
	}
	func main() void {
		u32 x = GPIO.BSRR;
	}`
	a := analyseSource(t, src)
	var found bool
	for _, d := range a.Diagnostics() {
		if d.Code == "E-ACC-001" {
			found = true
		}
	}
	assert.True(t, found, "reading a write-only register member must be rejected")
}

func TestCheckAccessRejectsWriteToReadOnlyMember(t *testing.T) {
	src := `register GPIO = 0x40020000 {
		ro u32 IDR;
	}
	func main() void {
		GPIO.IDR = 1u32;
	}`
	a := analyseSource(t, src)
	var found bool
	for _, d := range a.Diagnostics() {
		if d.Code == "E-ACC-002" {
			found = true
		}
	}
	assert.True(t, found, "writing a read-only register member must be rejected")
}

func TestTypeStringConcatSumsCapacities(t *testing.T) {
	a := &Analyser{overflowDefault: Clamp}
	left := BoundedStringType(4)
	right := BoundedStringType(6)
	result := a.typeStringConcat(&BinaryExpr{}, left, right)
	require.Equal(t, TypeBoundedString, result.Tag)
	assert.Equal(t, 10, result.StringCap)
	assert.Empty(t, a.diagnostics)
}

func TestTypeStringConcatRejectsNonStringOperand(t *testing.T) {
	a := &Analyser{overflowDefault: Clamp}
	left := BoundedStringType(4)
	right := PrimType(PrimU8)
	a.typeStringConcat(&BinaryExpr{}, left, right)
	require.Len(t, a.diagnostics, 1)
	assert.Equal(t, "E-TYPE-005", a.diagnostics[0].Code)
}

func TestMarkCppRecordsReasonOnDiagnostic(t *testing.T) {
	a := &Analyser{}
	a.markCpp(Span{}, "explicit directive")
	require.True(t, a.CppRequired())
	require.Len(t, a.Diagnostics(), 1)
	diag := a.Diagnostics()[0]
	assert.Equal(t, KindCppRequirementMismatch, diag.Kind)
	assert.Equal(t, DiagnosticNote, diag.Severity)
	assert.Equal(t, "explicit directive", diag.Reason)
}

func TestNarrowingInitializerIsRejected(t *testing.T) {
	src := `func main() void {
		u8 x = 1000u32;
	}`
	a := analyseSource(t, src)
	var found bool
	for _, d := range a.Diagnostics() {
		if d.Code == "E-TYPE-002" {
			found = true
		}
	}
	assert.True(t, found, "assigning a wider literal into a narrower variable without a cast must be rejected")
}
