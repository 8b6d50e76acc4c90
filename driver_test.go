package cnext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDriverCompileFileEmitsCByDefault(t *testing.T) {
	dir := t.TempDir()
	src := writeTempSource(t, dir, "math.cnx", `func add(u8 a, u8 b) u8 {
		return a + b;
	}`)

	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	result, err := d.CompileFile(src, ModeAuto, "", "host")
	require.NoError(t, err)

	require.False(t, HasErrors(result.Diagnostics), result.Diagnostics)
	assert.Equal(t, EmitC, result.Mode)
	assert.FileExists(t, result.ImplPath)
	assert.FileExists(t, result.HeaderPath)

	implBytes, err := os.ReadFile(result.ImplPath)
	require.NoError(t, err)
	assert.Contains(t, string(implBytes), "add")
}

func TestDriverCompileFileForcesCppWhenRequested(t *testing.T) {
	dir := t.TempDir()
	src := writeTempSource(t, dir, "math.cnx", `func add(u8 a, u8 b) u8 {
		return a + b;
	}`)

	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	result, err := d.CompileFile(src, ModeForceCpp, "", "host")
	require.NoError(t, err)
	assert.Equal(t, EmitCpp, result.Mode)
	assert.Equal(t, ".cpp", filepath.Ext(result.ImplPath))
}

func TestDriverParseAndAnalyseWritesNoOutput(t *testing.T) {
	dir := t.TempDir()
	src := writeTempSource(t, dir, "math.cnx", `func add(u8 a, u8 b) u8 {
		return a + b;
	}`)

	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	result, err := d.ParseAndAnalyse(src, "host")
	require.NoError(t, err)
	assert.Empty(t, result.ImplText)
	assert.NoFileExists(t, filepath.Join(dir, "math.c"))
}

func TestParseWithSymbolsSkipsSemanticAnalysis(t *testing.T) {
	dir := t.TempDir()
	src := writeTempSource(t, dir, "board.cnx", `const u8 Max = 10u8;`)

	f, table, diags := ParseWithSymbols(src)
	require.Empty(t, diags)
	require.NotNil(t, f)
	_, ok := table.Lookup("Max")
	assert.True(t, ok)
}

func TestTranspileRunsFullPipeline(t *testing.T) {
	dir := t.TempDir()
	src := writeTempSource(t, dir, "math.cnx", `func add(u8 a, u8 b) u8 {
		return a + b;
	}`)

	result, err := Transpile(src, "host")
	require.NoError(t, err)
	assert.Equal(t, EmitC, result.Mode)
	assert.Contains(t, result.ImplText, "add")
}

func TestDriverCompileFileReportsUnresolvedReference(t *testing.T) {
	dir := t.TempDir()
	src := writeTempSource(t, dir, "bad.cnx", `func main() void {
		u8 x = unknownThing;
	}`)

	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	result, err := d.CompileFile(src, ModeAuto, "", "host")
	require.NoError(t, err)
	require.True(t, HasErrors(result.Diagnostics))
	assert.Empty(t, result.ImplText)
}

func TestResolveOutputPathsDerivesFromInputWhenNoOverride(t *testing.T) {
	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	base, hdr, impl := d.resolveOutputPaths("board/gpio.cnx", EmitC, "")
	assert.Equal(t, "gpio", base)
	assert.Equal(t, "board/gpio.h", hdr)
	assert.Equal(t, "board/gpio.c", impl)
}

func TestResolveOutputPathsHonoursOverride(t *testing.T) {
	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	base, hdr, impl := d.resolveOutputPaths("board/gpio.cnx", EmitCpp, "out/custom.cpp")
	assert.Equal(t, "custom", base)
	assert.Equal(t, "out/custom.hpp", hdr)
	assert.Equal(t, "out/custom.cpp", impl)
}

func TestFormatDiagnosticsRendersOneLinePerDiagnostic(t *testing.T) {
	diags := []Diagnostic{
		{Severity: DiagnosticError, FilePath: "t.cnx", Message: "boom"},
	}
	out := FormatDiagnostics(diags)
	assert.Contains(t, out, "t.cnx")
	assert.Contains(t, out, "boom")
}

func TestExitCodeReflectsErrorPresence(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode([]Diagnostic{{Severity: DiagnosticError}}))
}
