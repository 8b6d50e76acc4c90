package cnext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EmitModeChoice is the explicit-flag input to emission-mode
// resolution: ModeAuto defers to source directives and C++-requirement
// detection, the other two force a backend regardless of what the
// source says.
type EmitModeChoice int

const (
	ModeAuto EmitModeChoice = iota
	ModeForceC
	ModeForceCpp
)

// CompileUnitResult is everything one input file's compilation
// produced: the resolved paths, the diagnostics collected across every
// phase, and (on success) the rendered output text.
type CompileUnitResult struct {
	InputPath   string
	HeaderPath  string
	ImplPath    string
	Mode        EmissionMode
	Diagnostics []Diagnostic
	HeaderText  string
	ImplText    string
}

// Driver orchestrates the whole pipeline for one root file: Include
// Resolver -> Lexer -> Parser -> Symbol Collector (every file in the
// include graph) -> Semantic Analyser (whole graph) -> Emitter.
// cmd/cnext/main.go stays a thin flag-parsing shell over this type.
type Driver struct {
	Config *Config
	Loader ImportLoader
	Cache  *FileCache
}

func NewDriver(cfg *Config, loader ImportLoader) *Driver {
	return &Driver{Config: cfg, Loader: loader, Cache: NewFileCache(cfg)}
}

// lexAndParse tokenizes, splits out directive comments, and parses,
// merging every sub-phase's diagnostics into one list. It is the
// lexFn callback IncludeResolver needs.
func lexAndParse(fileID FileID, path string, content []byte) (*File, []Diagnostic) {
	lx := NewLexer(fileID, path, string(content))
	toks, lexDiags := lx.Tokenize()
	directives := CollectDirectives(toks)
	p := NewParser(fileID, path, toks)
	f := p.ParseFile()
	f.Directives = directives
	diags := append(append([]Diagnostic{}, lexDiags...), p.Diagnostics()...)
	return f, diags
}

// cachedParseAndCollect returns the parsed (and symbol-collected) File
// plus its own file-local SymbolTable, consulting the cache first. The
// mutation Symbol Collection performs in place on the AST (bitmap
// field offsets) is exactly the "post-symbol-collection
// representation" the cache is keyed to store.
func (d *Driver) cachedParseAndCollect(path string, content []byte, profileName string) (*File, *SymbolTable, []Diagnostic) {
	key := CacheKey(content, profileName)
	if entry, ok := d.Cache.Get(key); ok {
		return entry.File, entry.Table, nil
	}
	f, diags := lexAndParse(unknownFileID, path, content)
	collector := NewSymbolCollector(path)
	table := collector.Collect(f)
	diags = append(diags, collector.Diagnostics()...)
	if !HasErrors(diags) {
		if err := d.Cache.Put(key, &CacheEntry{File: f, Table: table}); err != nil {
			diags = append(diags, Diagnostic{
				Kind: KindIO, Severity: DiagnosticWarning,
				Message: fmt.Sprintf("cache write failed: %s", err), FilePath: path,
			})
		}
	}
	return f, table, diags
}

// mergeSymbols folds src's symbols into dst, reporting a cross-file
// duplicate-definition error for any FQN collision instead of silently
// letting the second file's definition win.
func mergeSymbols(dst, src *SymbolTable, filePath string) []Diagnostic {
	var diags []Diagnostic
	for _, sym := range src.Order {
		if existing, ok := dst.ByFQN[sym.FQN]; ok && existing != sym {
			diags = append(diags, Diagnostic{
				Kind: KindSymbolDuplicate, Severity: DiagnosticError,
				Message: fmt.Sprintf("%q is already defined (see %s:%d)", sym.FQN, existing.SourceFile, existing.Line),
				Code:    "E-SYM-001", Span: Span{Start: Position{Line: sym.Line}}, FilePath: filePath,
			})
			continue
		}
		dst.ByFQN[sym.FQN] = sym
		dst.Order = append(dst.Order, sym)
	}
	return diags
}

// CompileFile runs the full pipeline for one root .cnx file and
// returns its result. modeChoice/outputOverride/targetOverride mirror
// the CLI's --cpp/-o/--target flags; empty strings mean "unset, fall
// through to the next resolution step".
func (d *Driver) CompileFile(inputPath string, modeChoice EmitModeChoice, outputOverride, targetOverride string) (*CompileUnitResult, error) {
	return d.compile(inputPath, modeChoice, outputOverride, targetOverride, false)
}

// ParseAndAnalyse runs every phase through the Semantic Analyser and
// returns the resulting diagnostics, skipping IR construction, emission
// and output writes entirely. Backs the CLI's --parse flag.
func (d *Driver) ParseAndAnalyse(inputPath, targetOverride string) (*CompileUnitResult, error) {
	return d.compile(inputPath, ModeAuto, "", targetOverride, true)
}

// ParseWithSymbols parses one root file and collects its symbol table
// without running the Semantic Analyser, for embedding callers that
// only need syntax and names (e.g. an editor's symbol outline) and
// don't want a whole-program compile. It uses a fresh default-config
// Driver, so it never touches any cache a caller's own Driver built.
func ParseWithSymbols(inputPath string) (*File, *SymbolTable, []Diagnostic) {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, nil, []Diagnostic{{Kind: KindIO, Severity: DiagnosticError, Message: err.Error(), FilePath: inputPath}}
	}
	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	profile := d.resolveTargetProfile(inputPath, "")
	return d.cachedParseAndCollect(inputPath, content, profile.Name)
}

// Transpile runs the full pipeline for one file with default
// configuration and returns its result directly, for callers embedding
// the compiler as a library instead of shelling out to cmd/cnext.
func Transpile(inputPath, targetProfile string) (*CompileUnitResult, error) {
	d := NewDriver(NewConfig(), NewRelativeImportLoader())
	return d.CompileFile(inputPath, ModeAuto, "", targetProfile)
}

func (d *Driver) compile(inputPath string, modeChoice EmitModeChoice, outputOverride, targetOverride string, parseOnly bool) (*CompileUnitResult, error) {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	profile := d.resolveTargetProfile(inputPath, targetOverride)

	root, table, diags := d.cachedParseAndCollect(inputPath, content, profile.Name)

	// The resolver parses every transitively-included .cnx file itself
	// (it needs their own #include directives to walk the graph), so
	// included files are symbol-collected from the File it already
	// built rather than re-read and re-parsed here. Only the root file
	// goes through the cache: a cache hit on an include would still
	// require the resolver to have read and parsed it to discover what
	// it includes, which defeats memoising the parse step for anything
	// but the root.
	resolver := NewIncludeResolver(d.Loader, lexAndParse)
	includes := resolver.Resolve(root, inputPath)
	diags = append(diags, resolver.Diagnostics()...)

	allFiles := []*File{root}
	var nativeHeaderText []string
	for _, inc := range includes {
		switch inc.Kind {
		case IncludeCnext:
			if inc.Path == inputPath || inc.File == nil {
				continue
			}
			collector := NewSymbolCollector(inc.Path)
			incTable := collector.Collect(inc.File)
			diags = append(diags, collector.Diagnostics()...)
			allFiles = append(allFiles, inc.File)
			diags = append(diags, mergeSymbols(table, incTable, inc.Path)...)
		case IncludeNativeHeader:
			if b, err := d.Loader.GetContent(inc.Path); err == nil {
				nativeHeaderText = append(nativeHeaderText, string(b))
			}
		}
	}
	table.RebuildIndex()

	if HasErrors(diags) {
		return &CompileUnitResult{InputPath: inputPath, Diagnostics: diags}, nil
	}

	return d.finishCompile(inputPath, root, table, allFiles, nativeHeaderText, diags, modeChoice, outputOverride, &profile, parseOnly)
}

func (d *Driver) finishCompile(inputPath string, root *File, table *SymbolTable, allFiles []*File, nativeHeaderText []string, diags []Diagnostic, modeChoice EmitModeChoice, outputOverride string, profile *TargetProfile, parseOnly bool) (*CompileUnitResult, error) {
	overflowDefault := Clamp
	if d.Config.GetString("overflow.default_policy") == "wrap" {
		overflowDefault = Wrap
	}

	analyser := NewAnalyser(inputPath, table, overflowDefault)
	analyser.AnalyseFile(root, nativeHeaderText)
	diags = append(diags, analyser.Diagnostics()...)

	graph := BuildCallGraph(table, allFiles)
	recursive := FindRecursion(graph)
	if len(recursive) > 0 {
		diags = append(diags, RecursionDiagnostics(recursive, table, inputPath)...)
	}

	mode := d.resolveEmitMode(modeChoice, root, analyser)

	if parseOnly || HasErrors(diags) {
		return &CompileUnitResult{InputPath: inputPath, Mode: mode, Diagnostics: diags}, nil
	}

	consts := InferConstParams(table, allFiles)
	ir := BuildIR(root, table, mode, consts, profile)
	ir.Includes = allFiles[1:]

	baseName, headerPath, implPath := d.resolveOutputPaths(inputPath, mode, outputOverride)

	var headerText, implText string
	if mode == EmitCpp {
		h, i, emitDiags := RenderCpp(ir, baseName)
		headerText, implText = h, i
		diags = append(diags, emitDiags...)
	} else {
		e := NewEmitter(ir, baseName)
		headerText, implText = e.Emit()
		diags = append(diags, e.Diagnostics()...)
	}

	result := &CompileUnitResult{
		InputPath: inputPath, HeaderPath: headerPath, ImplPath: implPath,
		Mode: mode, Diagnostics: diags, HeaderText: headerText, ImplText: implText,
	}

	if HasErrors(diags) {
		return result, nil
	}

	if !d.Config.GetBool("output.atomic_write") {
		if err := os.WriteFile(headerPath, []byte(headerText), 0o644); err != nil {
			return result, err
		}
		if err := os.WriteFile(implPath, []byte(implText), 0o644); err != nil {
			return result, err
		}
		return result, nil
	}

	if err := writeFileAtomic(headerPath, headerText); err != nil {
		return result, err
	}
	if err := writeFileAtomic(implPath, implText); err != nil {
		return result, err
	}
	return result, nil
}

func (d *Driver) resolveEmitMode(choice EmitModeChoice, root *File, analyser *Analyser) EmissionMode {
	switch choice {
	case ModeForceC:
		return EmitC
	case ModeForceCpp:
		return EmitCpp
	}
	for _, tok := range root.Directives {
		low := strings.ToLower(tok.Lexeme)
		if strings.Contains(low, "test-cpp-only") || strings.Contains(low, "test-cpp-mode") {
			return EmitCpp
		}
	}
	if analyser.CppRequired() {
		return EmitCpp
	}
	return EmitC
}

func (d *Driver) resolveOutputPaths(inputPath string, mode EmissionMode, outputOverride string) (baseName, headerPath, implPath string) {
	ext := ".c"
	hdrExt := ".h"
	if mode == EmitCpp {
		ext = ".cpp"
		hdrExt = ".hpp"
	}
	implPath = outputOverride
	if implPath == "" {
		trimmed := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		implPath = trimmed + ext
	}
	base := strings.TrimSuffix(implPath, filepath.Ext(implPath))
	baseName = filepath.Base(base)
	headerPath = base + hdrExt
	return baseName, headerPath, implPath
}

// resolveTargetProfile follows the CLI flag, then the nearest config
// file walking up from the source directory, then the host fallback.
func (d *Driver) resolveTargetProfile(inputPath, targetOverride string) TargetProfile {
	if targetOverride != "" {
		return ResolveTargetProfile(targetOverride)
	}
	cfg := NewConfig()
	if err := LoadConfigFile(cfg, filepath.Dir(inputPath)); err == nil {
		if v := cfg.GetString("emit.target_profile"); v != "" {
			return ResolveTargetProfile(v)
		}
	}
	return ResolveTargetProfile(d.Config.GetString("emit.target_profile"))
}

// writeFileAtomic writes content to path via write-temp-then-rename so
// a reader never observes a partially written file.
func writeFileAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// FormatDiagnostics renders diags in the driver's stderr format:
// "Severity: path:line:col message", one per line.
func FormatDiagnostics(diags []Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&b, "%s: %s:%d:%d %s\n", d.Severity, d.FilePath, d.Span.Start.Line, d.Span.Start.Column, d.Message)
	}
	return b.String()
}

// ExitCode maps a compilation outcome to the process exit status: 0
// success, 1 any error diagnostic. Usage errors (exit 2) are detected
// by the caller before a Driver is ever constructed.
func ExitCode(diags []Diagnostic) int {
	if HasErrors(diags) {
		return 1
	}
	return 0
}
