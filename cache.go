package cnext

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// CompilerVersion is baked into every cache key so a binary upgrade
// invalidates entries written by an older compiler without any
// timestamp bookkeeping.
const CompilerVersion = "0.1.0"

func init() {
	for _, d := range []Decl{
		&ScopeDecl{}, &StructDecl{}, &EnumDecl{}, &BitmapDecl{}, &RegisterDecl{},
		&ConstDecl{}, &VarDecl{}, &FuncDecl{}, &MethodDecl{}, &IncludeDirective{},
	} {
		gob.Register(d)
	}
	for _, s := range []Stmt{
		&Block{}, &IfStmt{}, &WhileStmt{}, &DoWhileStmt{}, &ForStmt{}, &SwitchStmt{},
		&ReturnStmt{}, &ExprStmt{}, &DeclStmt{}, &AtomicStmt{}, &CriticalStmt{},
	} {
		gob.Register(s)
	}
	for _, e := range []Expr{
		&IntLiteral{}, &FloatLiteral{}, &StringLiteral{}, &CharLiteral{}, &BoolLiteral{},
		&Identifier{}, &QualifiedAccess{}, &CallExpr{}, &IndexExpr{}, &UnaryExpr{},
		&BinaryExpr{}, &CastExpr{}, &SizeofExpr{}, &TernaryExpr{}, &CompoundAssignExpr{},
	} {
		gob.Register(e)
	}
}

// CacheEntry is the post-symbol-collection representation the cache
// stores: the parsed (and symbol-collected) File plus the SymbolTable
// built for it. Never the analysed IR, since semantic analysis is
// whole-program and can't be memoised per file.
type CacheEntry struct {
	File  *File
	Table *SymbolTable
}

// CacheKey is sha256(file_bytes) || compiler_version || target_profile
// hex-encoded into one cache filename. Invalidation is purely by hash
// change — no timestamp comparisons, per the cache's content-addressed
// design.
func CacheKey(fileBytes []byte, targetProfile string) string {
	h := sha256.New()
	h.Write(fileBytes)
	h.Write([]byte("|"))
	h.Write([]byte(CompilerVersion))
	h.Write([]byte("|"))
	h.Write([]byte(targetProfile))
	return hex.EncodeToString(h.Sum(nil))
}

// FileCache reads and writes CacheEntry values to cache.dir, keyed by
// CacheKey. Content-addressed so entries survive across process runs
// with no revision bookkeeping at all.
type FileCache struct {
	dir     string
	enabled bool
}

func NewFileCache(cfg *Config) *FileCache {
	return &FileCache{dir: cfg.GetString("cache.dir"), enabled: cfg.GetBool("cache.enabled")}
}

func (c *FileCache) Enabled() bool { return c.enabled }

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".gob")
}

// Get returns the cached entry for key, or ok=false on a miss (cache
// disabled, file absent, or corrupt — a corrupt entry is treated as a
// miss rather than an error, since re-running the pipeline recovers).
func (c *FileCache) Get(key string) (*CacheEntry, bool) {
	if !c.enabled {
		return nil, false
	}
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entry); err != nil {
		return nil, false
	}
	if entry.Table != nil {
		entry.Table.RebuildIndex()
	}
	return &entry, true
}

// Put writes entry under key, creating cache.dir if needed. Failure to
// write the cache is never fatal to the compilation: the caller should
// log and continue, since the cache is purely an optimisation.
func (c *FileCache) Put(key string, entry *CacheEntry) error {
	if !c.enabled {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache: creating %s: %w", c.dir, err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("cache: encoding entry: %w", err)
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cache: writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, c.path(key))
}
