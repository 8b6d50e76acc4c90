package cnext

import "github.com/sergi/go-diff/diffmatchpatch"

// RenderDiff returns a human-readable unified-style diff between want
// and got, line-aware via diffmatchpatch's cleanup pass. Used by the
// golden-fixture tests to report how emitted output diverges from the
// checked-in expected rendering.
func RenderDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// DiffEqual reports whether want and got are identical, short-circuiting
// RenderDiff's more expensive line-diff machinery when they already
// match exactly.
func DiffEqual(want, got string) bool {
	return want == got
}
