package cnext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCppIRFromSource(t *testing.T, src string) *IR {
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
	require.Empty(t, a.Diagnostics())

	consts := InferConstParams(table, []*File{f})
	profile := ResolveTargetProfile("host")
	return BuildIR(f, table, EmitCpp, consts, &profile)
}

func TestEmitCppMutatedStructParamIsNonConstReference(t *testing.T) {
	src := `struct Led {
		u8 state;
	}
	func turnOn(Led led) void {
		led.state = 1u8;
	}`
	ir := buildCppIRFromSource(t, src)
	_, impl, diags := RenderCpp(ir, "led")
	assert.Empty(t, diags)
	assert.Contains(t, impl, "void turnOn(Led &led)")
}

func TestEmitCppReadOnlyStructParamIsConstReference(t *testing.T) {
	src := `struct Led {
		u8 state;
	}
	func isOn(Led led) bool {
		return led.state;
	}`
	ir := buildCppIRFromSource(t, src)
	_, impl, diags := RenderCpp(ir, "led")
	assert.Empty(t, diags)
	assert.Contains(t, impl, "bool isOn(const Led &led)")
}

func TestEmitCppPrimitiveParamUnaffectedByConstInference(t *testing.T) {
	src := `func square(u8 x) u8 {
		return x;
	}`
	ir := buildCppIRFromSource(t, src)
	_, impl, _ := RenderCpp(ir, "math")
	assert.Contains(t, impl, "uint8_t square(uint8_t x)")
}
