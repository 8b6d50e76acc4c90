package json

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jlaustill/cnext"
	"github.com/stretchr/testify/require"
)

// TestConfigFileSelectsTargetProfile exercises the on-disk
// cnext.config.json discovery end to end: a driver with no explicit
// --target flag still picks up the atomic-lowering strategy a nearby
// config file names, the same way tests/arithmetic and
// tests/import exercise other whole-pipeline behaviours.
func TestConfigFileSelectsTargetProfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "cnext.config.json"),
		[]byte(`{"emit.target_profile": "cortex-m4"}`),
		0o644,
	))
	src := filepath.Join(dir, "board.cnx")
	require.NoError(t, os.WriteFile(src, []byte(`scope Board {
	u8 counter;
	func bump() void {
		atomic {
			counter = counter;
		}
	}
}
`), 0o644))

	result, err := cnext.Transpile(src, "")
	require.NoError(t, err)
	require.False(t, cnext.HasErrors(result.Diagnostics), result.Diagnostics)
	require.Contains(t, result.ImplText, "__LDREXW")
	require.NotContains(t, result.ImplText, "__get_PRIMASK")
}

// TestNoConfigFileFallsBackToHostProfile confirms the host/PRIMASK
// default still applies when no cnext.config.json is present anywhere
// above the source file.
func TestNoConfigFileFallsBackToHostProfile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "board.cnx")
	require.NoError(t, os.WriteFile(src, []byte(`scope Board {
	u8 counter;
	func bump() void {
		atomic {
			counter = counter;
		}
	}
}
`), 0o644))

	result, err := cnext.Transpile(src, "")
	require.NoError(t, err)
	require.False(t, cnext.HasErrors(result.Diagnostics), result.Diagnostics)
	require.Contains(t, result.ImplText, "__get_PRIMASK")
	require.NotContains(t, result.ImplText, "__LDREXW")
}
