package cnext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDecls(t *testing.T, src string) []Decl {
	t.Helper()
	lx := NewLexer(unknownFileID, "t.cnx", src)
	toks, diags := lx.Tokenize()
	require.Empty(t, diags)
	p := NewParser(unknownFileID, "t.cnx", toks)
	f := p.ParseFile()
	require.Empty(t, p.Diagnostics())
	return f.Decls
}

func TestParserRegisterDeclEveryAccessModifier(t *testing.T) {
	src := `register GPIO = 0x40020000 {
		rw u32 MODER;
		ro u32 IDR;
		wo u32 BSRR;
		w1c u32 SR;
		w1s u32 SCR;
	}`
	decls := parseDecls(t, src)
	require.Len(t, decls, 1)
	reg, ok := decls[0].(*RegisterDecl)
	require.True(t, ok)
	assert.Equal(t, "GPIO", reg.Name)
	assert.Equal(t, uint64(0x40020000), reg.Address)
	require.Len(t, reg.Members, 5)
	assert.Equal(t, AccessRW, reg.Members[0].Access)
	assert.Equal(t, AccessRO, reg.Members[1].Access)
	assert.Equal(t, AccessWO, reg.Members[2].Access)
	assert.Equal(t, AccessW1C, reg.Members[3].Access)
	assert.Equal(t, AccessW1S, reg.Members[4].Access)
}

func TestParserForLoopRequiresAllThreeClauses(t *testing.T) {
	src := `func main() void {
		for (u8 i = 0u8; i < 10u8; i = i + 1u8) {
		}
	}`
	decls := parseDecls(t, src)
	require.Len(t, decls, 1)
	fn, ok := decls[0].(*FuncDecl)
	require.True(t, ok)
	require.Len(t, fn.Body.Stmts, 1)
	forStmt, ok := fn.Body.Stmts[0].(*ForStmt)
	require.True(t, ok)
	assert.NotNil(t, forStmt.Init)
	assert.NotNil(t, forStmt.Cond)
	assert.NotNil(t, forStmt.Step)
}

func TestParserBitmapFieldWidths(t *testing.T) {
	src := `bitmap Flags : u8 {
		ready: 1;
		busy: 1;
		code: 6;
	}`
	decls := parseDecls(t, src)
	require.Len(t, decls, 1)
	bm, ok := decls[0].(*BitmapDecl)
	require.True(t, ok)
	require.Len(t, bm.Fields, 3)
	assert.Equal(t, "ready", bm.Fields[0].Name)
	assert.Equal(t, 1, bm.Fields[0].Width)
	assert.Equal(t, "code", bm.Fields[2].Name)
	assert.Equal(t, 6, bm.Fields[2].Width)
}

func TestParserIfElseIfChain(t *testing.T) {
	src := `func main() void {
		if (1u8 == 1u8) {
		} else if (2u8 == 2u8) {
		} else {
		}
	}`
	decls := parseDecls(t, src)
	fn := decls[0].(*FuncDecl)
	ifStmt, ok := fn.Body.Stmts[0].(*IfStmt)
	require.True(t, ok)
	require.NotNil(t, ifStmt.Else)
	elseIf, ok := ifStmt.Else.(*IfStmt)
	require.True(t, ok)
	assert.NotNil(t, elseIf.Else)
}

func TestParserSwitchMultipleCaseValues(t *testing.T) {
	src := `func main() void {
		switch (1u8) {
		case 1u8, 2u8:
		{
		}
		default:
		{
		}
		}
	}`
	decls := parseDecls(t, src)
	fn := decls[0].(*FuncDecl)
	sw, ok := fn.Body.Stmts[0].(*SwitchStmt)
	require.True(t, ok)
	require.Len(t, sw.Cases, 2)
	assert.Len(t, sw.Cases[0].Values, 2)
	assert.True(t, sw.Cases[1].IsDefault)
}

func TestParserEnumWithExplicitAndImplicitValues(t *testing.T) {
	src := `enum Color : u8 {
		Red = 1;
		Green;
		Blue;
	}`
	decls := parseDecls(t, src)
	en, ok := decls[0].(*EnumDecl)
	require.True(t, ok)
	require.Len(t, en.Members, 3)
	assert.NotNil(t, en.Members[0].Value)
	assert.Nil(t, en.Members[1].Value)
}
