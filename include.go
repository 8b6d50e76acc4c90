package cnext

import (
	"fmt"
	"os"
	"path/filepath"
)

// IncludeKind classifies a resolved include target.
type IncludeKind int

const (
	IncludeCnext IncludeKind = iota // a .cnx source include
	IncludeNativeHeader             // .h/.hpp/.hxx, opaque to the resolver
	IncludeUnknown
)

func classifyInclude(path string) IncludeKind {
	switch filepath.Ext(path) {
	case ".cnx":
		return IncludeCnext
	case ".h", ".hpp", ".hxx":
		return IncludeNativeHeader
	default:
		return IncludeUnknown
	}
}

// ImportLoader abstracts filesystem access for the Include Resolver so
// it can run against a real directory tree or an in-memory fixture.
type ImportLoader interface {
	GetPath(importPath, parentPath string) (string, error)
	GetContent(path string) ([]byte, error)
}

// RelativeImportLoader reads real files from disk, resolving include
// paths relative to the including file's directory.
type RelativeImportLoader struct {
	SearchPaths []string // additional roots searched for <...> system includes
}

func NewRelativeImportLoader(searchPaths ...string) *RelativeImportLoader {
	return &RelativeImportLoader{SearchPaths: searchPaths}
}

func (l *RelativeImportLoader) GetPath(importPath, parentPath string) (string, error) {
	if filepath.IsAbs(importPath) {
		return importPath, nil
	}
	candidate := filepath.Join(filepath.Dir(parentPath), importPath)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	for _, root := range l.SearchPaths {
		candidate = filepath.Join(root, importPath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return filepath.Join(filepath.Dir(parentPath), importPath), nil
}

func (l *RelativeImportLoader) GetContent(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// InMemoryImportLoader is the test double: files are registered by
// exact path with no filesystem touched at all.
type InMemoryImportLoader struct {
	files map[string][]byte
}

func NewInMemoryImportLoader() *InMemoryImportLoader {
	return &InMemoryImportLoader{files: map[string][]byte{}}
}

func (l *InMemoryImportLoader) Add(path string, content []byte) {
	l.files[path] = content
}

func (l *InMemoryImportLoader) GetPath(importPath, parentPath string) (string, error) {
	if filepath.IsAbs(importPath) {
		return importPath, nil
	}
	return filepath.Join(filepath.Dir(parentPath), importPath), nil
}

func (l *InMemoryImportLoader) GetContent(path string) ([]byte, error) {
	b, ok := l.files[path]
	if !ok {
		return nil, fmt.Errorf("import not found: %s", path)
	}
	return b, nil
}

// ResolvedInclude is one entry of a file's flattened include graph.
type ResolvedInclude struct {
	Path string
	Kind IncludeKind
	File *File // nil for native headers, which are not parsed
}

// IncludeResolver walks a file's #include directives (transitively,
// for .cnx includes) using an injected ImportLoader, detecting cycles
// via a currently-resolving set and deduplicating by canonical path.
type IncludeResolver struct {
	loader      ImportLoader
	diagnostics []Diagnostic
	resolved    map[string]*ResolvedInclude
	lexFn       func(fileID FileID, path string, content []byte) (*File, []Diagnostic)
}

// NewIncludeResolver takes the loader plus a parse callback so the
// resolver doesn't need to import the lexer/parser types directly;
// Driver wires the real Tokenize+ParseFile pipeline through lexFn.
func NewIncludeResolver(loader ImportLoader, lexFn func(FileID, string, []byte) (*File, []Diagnostic)) *IncludeResolver {
	return &IncludeResolver{loader: loader, lexFn: lexFn, resolved: make(map[string]*ResolvedInclude)}
}

func (r *IncludeResolver) Diagnostics() []Diagnostic { return r.diagnostics }

func (r *IncludeResolver) errorAt(sp Span, path string, format string, args ...any) {
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Kind: KindIncludeResolution, Severity: DiagnosticError,
		Message: fmt.Sprintf(format, args...), Code: "E-INC-001",
		Span: sp, FilePath: path,
	})
}

// Resolve walks f's #include directives and returns the flattened list
// of included files (native headers included, but not descended into).
// Each file is loaded and parsed once; a file named by several
// directives appears once per directive, every entry sharing the File
// parsed the first time.
func (r *IncludeResolver) Resolve(f *File, rootPath string) []ResolvedInclude {
	visiting := map[string]bool{rootPath: true}
	var out []ResolvedInclude
	r.resolveFile(f, rootPath, visiting, &out)
	return out
}

func (r *IncludeResolver) resolveFile(f *File, parentPath string, visiting map[string]bool, out *[]ResolvedInclude) {
	for _, d := range f.Decls {
		inc, ok := d.(*IncludeDirective)
		if !ok {
			continue
		}
		path, err := r.loader.GetPath(inc.Path, parentPath)
		if err != nil {
			r.errorAt(inc.Sp, parentPath, "cannot resolve include %q: %s", inc.Path, err)
			continue
		}
		kind := classifyInclude(path)
		if visiting[path] {
			r.errorAt(inc.Sp, parentPath, "include cycle detected: %s -> %s", parentPath, path)
			continue
		}
		if existing, ok := r.resolved[path]; ok {
			*out = append(*out, *existing)
			continue
		}
		if kind != IncludeCnext {
			ri := ResolvedInclude{Path: path, Kind: kind}
			r.resolved[path] = &ri
			*out = append(*out, ri)
			continue
		}
		content, err := r.loader.GetContent(path)
		if err != nil {
			r.errorAt(inc.Sp, parentPath, "cannot read include %q: %s", path, err)
			continue
		}
		visiting[path] = true
		childFile, diags := r.lexFn(unknownFileID, path, content)
		r.diagnostics = append(r.diagnostics, diags...)
		ri := ResolvedInclude{Path: path, Kind: IncludeCnext, File: childFile}
		r.resolved[path] = &ri
		*out = append(*out, ri)
		if childFile != nil {
			r.resolveFile(childFile, path, visiting, out)
		}
		delete(visiting, path)
	}
}
