package cnext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyChangesWithInput(t *testing.T) {
	a := CacheKey([]byte("var x: u8 = 1;"), "host")
	b := CacheKey([]byte("var x: u8 = 2;"), "host")
	c := CacheKey([]byte("var x: u8 = 1;"), "cortex-m0")
	assert.NotEqual(t, a, b, "different file bytes must produce different keys")
	assert.NotEqual(t, a, c, "different target profiles must produce different keys")

	again := CacheKey([]byte("var x: u8 = 1;"), "host")
	assert.Equal(t, a, again, "same inputs must be deterministic")
}

func TestFileCacheDisabledByDefault(t *testing.T) {
	cfg := NewConfig()
	assert.False(t, cfg.GetBool("cache.enabled"), "cache must default to off")

	cache := NewFileCache(cfg)
	assert.False(t, cache.Enabled())

	key := CacheKey([]byte("x"), "host")
	err := cache.Put(key, &CacheEntry{File: &File{Path: "x.cnx"}, Table: NewSymbolTable()})
	require.NoError(t, err, "Put on a disabled cache is a no-op, not an error")

	_, ok := cache.Get(key)
	assert.False(t, ok, "a disabled cache never reports a hit")
}

func TestFileCacheRoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.SetBool("cache.enabled", true)
	cfg.SetString("cache.dir", filepath.Join(t.TempDir(), "cnext-cache"))
	cache := NewFileCache(cfg)

	f := &File{
		Path: "demo.cnx",
		Decls: []Decl{
			&ConstDecl{Name: "Limit", Type: PrimType(PrimU8), Value: &IntLiteral{Value: 10}},
		},
	}
	table := NewSymbolTable()
	sym := &Symbol{ID: 1, Name: "Limit", FQN: "Limit", Kind: SymConst, Type: PrimType(PrimU8)}
	table.add(sym)

	key := CacheKey([]byte("const Limit: u8 = 10;"), "host")
	require.NoError(t, cache.Put(key, &CacheEntry{File: f, Table: table}))

	entry, ok := cache.Get(key)
	require.True(t, ok, "expected a cache hit for the key just written")
	require.Len(t, entry.File.Decls, 1)
	constDecl, ok := entry.File.Decls[0].(*ConstDecl)
	require.True(t, ok)
	assert.Equal(t, "Limit", constDecl.Name)

	got, ok := entry.Table.Lookup("Limit")
	require.True(t, ok)
	assert.Equal(t, "Limit", got.Name)

	byName := entry.Table.LookupByName("Limit")
	require.Len(t, byName, 1, "byName index must be rebuilt after decoding")
	assert.Equal(t, "Limit", byName[0].Name)
}

func TestFileCacheMissOnCorruptEntry(t *testing.T) {
	cfg := NewConfig()
	cfg.SetBool("cache.enabled", true)
	dir := filepath.Join(t.TempDir(), "cnext-cache")
	cfg.SetString("cache.dir", dir)
	cache := NewFileCache(cfg)

	key := CacheKey([]byte("garbage"), "host")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(cache.path(key), []byte("not a valid gob stream"), 0o644))

	_, ok := cache.Get(key)
	assert.False(t, ok, "a corrupt entry must be treated as a miss, not a crash")
}
