package cnext

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const pioBuildScriptName = "cnext_build.py"

const pioExtraScriptsEntry = "pre:" + pioBuildScriptName

// pioBuildScript is written verbatim beside platformio.ini; it shells
// out to the cnext binary for every .cnx source PlatformIO discovers
// before the real build runs.
const pioBuildScript = `Import("env")
import subprocess
import glob

for src in glob.glob("src/**/*.cnx", recursive=True):
    subprocess.run(["cnext", src], check=True)
`

var envSectionHeader = regexp.MustCompile(`^\[env:[^\]]*\]`)

// PioInstall writes cnext_build.py and wires it into every [env:*]
// section's extra_scripts in platformio.ini under dir. Idempotent: a
// section that already references cnext_build.py is left untouched.
func PioInstall(dir string) (string, error) {
	iniPath := filepath.Join(dir, "platformio.ini")
	raw, err := os.ReadFile(iniPath)
	if err != nil {
		return "", fmt.Errorf("platformio.ini not found in %s: %w", dir, err)
	}

	scriptPath := filepath.Join(dir, pioBuildScriptName)
	if err := os.WriteFile(scriptPath, []byte(pioBuildScript), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", scriptPath, err)
	}

	lines := strings.Split(string(raw), "\n")
	out, changed := patchEnvSections(lines, addExtraScript)
	if !changed {
		return "already configured", nil
	}
	if err := os.WriteFile(iniPath, []byte(strings.Join(out, "\n")), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", iniPath, err)
	}
	return "installed", nil
}

// PioUninstall removes cnext_build.py and strips its extra_scripts
// entry from every [env:*] section, preserving any other entries on
// the same line.
func PioUninstall(dir string) (string, error) {
	iniPath := filepath.Join(dir, "platformio.ini")
	raw, err := os.ReadFile(iniPath)
	if err != nil {
		return "", fmt.Errorf("platformio.ini not found in %s: %w", dir, err)
	}

	lines := strings.Split(string(raw), "\n")
	out, changed := patchEnvSections(lines, removeExtraScript)
	if changed {
		if err := os.WriteFile(iniPath, []byte(strings.Join(out, "\n")), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", iniPath, err)
		}
	}

	scriptPath := filepath.Join(dir, pioBuildScriptName)
	if _, err := os.Stat(scriptPath); err == nil {
		if err := os.Remove(scriptPath); err != nil {
			return "", fmt.Errorf("removing %s: %w", scriptPath, err)
		}
	}
	return "uninstalled", nil
}

// patchEnvSections rewrites every extra_scripts line (or, if absent,
// inserts one) within each [env:*] section of lines using edit, and
// reports whether anything changed.
func patchEnvSections(lines []string, edit func(line string) (string, bool)) ([]string, bool) {
	out := make([]string, 0, len(lines))
	inEnv := false
	sawExtraScripts := false
	changedAny := false

	flushSection := func() {
		if inEnv && !sawExtraScripts {
			newLine, ok := edit("extra_scripts =")
			if ok {
				out = append(out, newLine)
				changedAny = true
			}
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			flushSection()
			inEnv = envSectionHeader.MatchString(trimmed)
			sawExtraScripts = false
			out = append(out, line)
			continue
		}
		if inEnv && strings.HasPrefix(trimmed, "extra_scripts") {
			sawExtraScripts = true
			newLine, changed := edit(line)
			if changed {
				changedAny = true
			}
			if newLine != "" || !changed {
				out = append(out, newLine)
			}
			continue
		}
		out = append(out, line)
	}
	flushSection()
	return out, changedAny
}

// addExtraScript appends pioExtraScriptsEntry to an extra_scripts line
// if it isn't already present.
func addExtraScript(line string) (string, bool) {
	if strings.Contains(line, pioBuildScriptName) {
		return line, false
	}
	prefix, rest, _ := strings.Cut(line, "=")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return prefix + "= " + pioExtraScriptsEntry, true
	}
	return prefix + "= " + rest + ", " + pioExtraScriptsEntry, true
}

// removeExtraScript strips pioExtraScriptsEntry from an extra_scripts
// line, preserving every other entry. Returns ("", true) if the line
// becomes empty and should be dropped entirely.
func removeExtraScript(line string) (string, bool) {
	if !strings.Contains(line, pioBuildScriptName) {
		return line, false
	}
	prefix, rest, _ := strings.Cut(line, "=")
	entries := strings.Split(rest, ",")
	kept := entries[:0]
	for _, e := range entries {
		if strings.Contains(e, pioBuildScriptName) {
			continue
		}
		if strings.TrimSpace(e) != "" {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return "", true
	}
	return prefix + "=" + strings.Join(kept, ","), true
}
