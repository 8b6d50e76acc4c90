package import_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jlaustill/cnext"
	"github.com/stretchr/testify/require"
)

// TestIncludeResolvesAcrossFiles compiles a root file that #includes a
// sibling .cnx file through the real RelativeImportLoader, confirming
// the included file's symbols are visible to the root file's semantic
// analysis and that both files' code reaches the emitted output, the
// way tests/arithmetic and tests/json exercise other
// whole-pipeline behaviours end to end instead of one stage alone.
func TestIncludeResolvesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pins.cnx"), []byte(`const u8 LedPin = 13u8;
`), 0o644))
	src := filepath.Join(dir, "board.cnx")
	require.NoError(t, os.WriteFile(src, []byte(`#include "pins.cnx"

func ledPin() u8 {
	return LedPin;
}
`), 0o644))

	result, err := cnext.Transpile(src, "host")
	require.NoError(t, err)
	require.False(t, cnext.HasErrors(result.Diagnostics), result.Diagnostics)
	require.Contains(t, result.HeaderText, "#define LedPin (13)")
	require.Contains(t, result.ImplText, "return LedPin;")
}

// TestIncludeCycleIsReportedAsAnError confirms a root file that
// transitively includes itself fails compilation with an
// include-resolution diagnostic rather than looping forever.
func TestIncludeCycleIsReportedAsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cnx"), []byte(`#include "b.cnx"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cnx"), []byte(`#include "a.cnx"
`), 0o644))

	result, err := cnext.Transpile(filepath.Join(dir, "a.cnx"), "host")
	require.NoError(t, err)
	require.True(t, cnext.HasErrors(result.Diagnostics))
	require.Empty(t, result.ImplText)
}
