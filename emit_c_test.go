package cnext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIRFromSource(t *testing.T, src string) *IR {
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
	return BuildIR(f, table, EmitC, consts, &profile)
}

func TestEmitRegisterW1CAccessorsUseDistinctMaskAndValue(t *testing.T) {
	src := `register GPIO = 0x40020000 {
		w1c u32 SR;
		w1s u32 SCR;
	}`
	ir := buildIRFromSource(t, src)
	e := NewEmitter(ir, "gpio")
	_, impl := e.Emit()

	assert.Contains(t, impl, "static inline void GPIO_SR_clear(uint32_t mask, uint32_t value) {")
	assert.Contains(t, impl, "    GPIO = (GPIO & ~mask) | (mask & value);")
	assert.Contains(t, impl, "static inline void GPIO_SCR_set(uint32_t mask, uint32_t value) {")
	assert.Contains(t, impl, "    GPIO |= (mask & value);")
}

func TestEmitClampHelperIsDefinedAlongsideItsCallSite(t *testing.T) {
	src := `func add(u8 a, u8 b) u8 {
		u8 r = a + b;
		return r;
	}`
	ir := buildIRFromSource(t, src)
	e := NewEmitter(ir, "math")
	_, impl := e.Emit()

	const helper = "cnext_clamp_add_u8"
	assert.Contains(t, impl, helper+"(a, b)", "the clamp call site must exist")
	assert.Contains(t, impl, "static inline uint8_t "+helper+"(uint8_t a, uint8_t b)",
		"the clamp helper must actually be defined, not just called")
	// the definition must precede the call site in the emitted text
	defIdx := strings.Index(impl, "static inline uint8_t "+helper)
	callIdx := strings.Index(impl, helper+"(a, b)")
	require.NotEqual(t, -1, defIdx)
	require.NotEqual(t, -1, callIdx)
	assert.Less(t, defIdx, callIdx)
}

func TestEmitClampHelpersAreSortedDeterministically(t *testing.T) {
	src := `func mix(u8 a, u8 b, u16 c, u16 d) void {
		u8 x = a + b;
		u16 y = c - d;
	}`
	ir := buildIRFromSource(t, src)
	e := NewEmitter(ir, "mix")
	_, impl := e.Emit()

	addIdx := strings.Index(impl, "cnext_clamp_add_u8")
	subIdx := strings.Index(impl, "cnext_clamp_sub_u16")
	require.NotEqual(t, -1, addIdx)
	require.NotEqual(t, -1, subIdx)
	assert.Less(t, addIdx, subIdx, "clamp helpers must be written in sorted-name order")
}
