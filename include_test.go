package cnext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexParseFn(t *testing.T) func(FileID, string, []byte) (*File, []Diagnostic) {
	t.Helper()
	return func(fileID FileID, path string, content []byte) (*File, []Diagnostic) {
		lx := NewLexer(fileID, path, string(content))
		toks, lexDiags := lx.Tokenize()
		p := NewParser(fileID, path, toks)
		f := p.ParseFile()
		diags := append(lexDiags, p.Diagnostics()...)
		return f, diags
	}
}

func TestClassifyIncludeByExtension(t *testing.T) {
	assert.Equal(t, IncludeCnext, classifyInclude("board/gpio.cnx"))
	assert.Equal(t, IncludeNativeHeader, classifyInclude("vendor/hal.h"))
	assert.Equal(t, IncludeNativeHeader, classifyInclude("vendor/hal.hpp"))
	assert.Equal(t, IncludeUnknown, classifyInclude("README.md"))
}

func TestIncludeResolverResolvesCnextIncludeTransitively(t *testing.T) {
	loader := NewInMemoryImportLoader()
	loader.Add("leaf.cnx", []byte(`const u8 Max = 10u8;`))
	loader.Add("mid.cnx", []byte(`#include "leaf.cnx"`))

	root := &File{Decls: []Decl{&IncludeDirective{Path: "mid.cnx"}}}

	r := NewIncludeResolver(loader, lexParseFn(t))
	out := r.Resolve(root, "root.cnx")

	require.Empty(t, r.Diagnostics())
	require.Len(t, out, 2)
	assert.Equal(t, IncludeCnext, out[0].Kind)
	assert.Equal(t, "mid.cnx", out[0].Path)
	assert.Equal(t, "leaf.cnx", out[1].Path)
}

func TestIncludeResolverDoesNotDescendIntoNativeHeaders(t *testing.T) {
	loader := NewInMemoryImportLoader()
	root := &File{Decls: []Decl{&IncludeDirective{Path: "hal.h"}}}

	r := NewIncludeResolver(loader, lexParseFn(t))
	out := r.Resolve(root, "root.cnx")

	require.Empty(t, r.Diagnostics())
	require.Len(t, out, 1)
	assert.Equal(t, IncludeNativeHeader, out[0].Kind)
	assert.Nil(t, out[0].File)
}

func TestIncludeResolverDetectsCycle(t *testing.T) {
	loader := NewInMemoryImportLoader()
	loader.Add("a.cnx", []byte(`#include "b.cnx"`))
	loader.Add("b.cnx", []byte(`#include "a.cnx"`))

	root := &File{Decls: []Decl{&IncludeDirective{Path: "a.cnx"}}}

	r := NewIncludeResolver(loader, lexParseFn(t))
	r.Resolve(root, "root.cnx")

	require.NotEmpty(t, r.Diagnostics())
	assert.Equal(t, KindIncludeResolution, r.Diagnostics()[0].Kind)
}

func TestIncludeResolverDedupesRepeatedInclude(t *testing.T) {
	loader := NewInMemoryImportLoader()
	loader.Add("shared.cnx", []byte(`const u8 Max = 10u8;`))

	root := &File{Decls: []Decl{
		&IncludeDirective{Path: "shared.cnx"},
		&IncludeDirective{Path: "shared.cnx"},
	}}

	r := NewIncludeResolver(loader, lexParseFn(t))
	out := r.Resolve(root, "root.cnx")

	require.Empty(t, r.Diagnostics())
	assert.Len(t, out, 2, "both include directives still produce an entry")
	assert.Same(t, out[0].File, out[1].File, "the second occurrence reuses the already-resolved entry")
}
