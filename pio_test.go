package cnext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIni(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "platformio.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPioInstallFailsWithoutIni(t *testing.T) {
	dir := t.TempDir()
	_, err := PioInstall(dir)
	require.Error(t, err)
}

func TestPioInstallWritesScriptAndExtraScripts(t *testing.T) {
	dir := t.TempDir()
	iniPath := writeIni(t, dir, "[env:uno]\nplatform = atmelavr\nboard = uno\n")

	status, err := PioInstall(dir)
	require.NoError(t, err)
	assert.Equal(t, "installed", status)

	scriptPath := filepath.Join(dir, pioBuildScriptName)
	_, err = os.Stat(scriptPath)
	require.NoError(t, err, "cnext_build.py must be written")

	out, err := os.ReadFile(iniPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), pioExtraScriptsEntry)
}

func TestPioInstallPreservesExistingExtraScripts(t *testing.T) {
	dir := t.TempDir()
	iniPath := writeIni(t, dir, "[env:uno]\nextra_scripts = pre:other.py\n")

	_, err := PioInstall(dir)
	require.NoError(t, err)

	out, err := os.ReadFile(iniPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "pre:other.py")
	assert.Contains(t, string(out), pioExtraScriptsEntry)
}

func TestPioInstallIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeIni(t, dir, "[env:uno]\nboard = uno\n")

	_, err := PioInstall(dir)
	require.NoError(t, err)

	status, err := PioInstall(dir)
	require.NoError(t, err)
	assert.Equal(t, "already configured", status)
}

func TestPioUninstallRemovesEntryAndScript(t *testing.T) {
	dir := t.TempDir()
	iniPath := writeIni(t, dir, "[env:uno]\nextra_scripts = pre:other.py\nboard = uno\n")

	_, err := PioInstall(dir)
	require.NoError(t, err)

	status, err := PioUninstall(dir)
	require.NoError(t, err)
	assert.Equal(t, "uninstalled", status)

	out, err := os.ReadFile(iniPath)
	require.NoError(t, err)
	assert.NotContains(t, string(out), pioBuildScriptName)
	assert.Contains(t, string(out), "pre:other.py")

	_, err = os.Stat(filepath.Join(dir, pioBuildScriptName))
	assert.True(t, os.IsNotExist(err), "cnext_build.py must be removed")
}

func TestPioUninstallFailsWithoutIni(t *testing.T) {
	dir := t.TempDir()
	_, err := PioUninstall(dir)
	require.Error(t, err)
}
