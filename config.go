package cnext

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is a typed key/value map holding every tunable the driver and
// analyser consult, primed with defaults at construction.
type Config map[string]*cfgVal

// NewConfig returns a Config primed with every default the driver and
// analyser rely on.
func NewConfig() *Config {
	c := make(Config)
	c.SetString("emit.mode", "auto") // auto | c99 | cpp14
	c.SetString("emit.target_profile", "host")
	c.SetBool("emit.line_wrap", true)
	c.SetInt("emit.line_width", 100)
	c.SetString("overflow.default_policy", "clamp")
	c.SetInt("analysis.max_include_depth", 64)
	c.SetBool("cache.enabled", false) // off by default
	c.SetString("cache.dir", ".cnext-cache")
	c.SetBool("output.atomic_write", true)
	return &c
}

type cfgValType int

const (
	cfgValUndefined cfgValType = iota
	cfgValBool
	cfgValInt
	cfgValString
)

func (vt cfgValType) String() string {
	switch vt {
	case cfgValBool:
		return "bool"
	case cfgValInt:
		return "int"
	case cfgValString:
		return "string"
	default:
		return "undefined"
	}
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValUndefined {
		panic(fmt.Sprintf("can't assign %q to type %q", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve %q from %q setting", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	val := &cfgVal{}
	val.assignType(cfgValBool)
	val.asBool = v
	(*c)[path] = val
}

func (c *Config) SetInt(path string, v int) {
	val := &cfgVal{}
	val.assignType(cfgValInt)
	val.asInt = v
	(*c)[path] = val
}

func (c *Config) SetString(path string, v string) {
	val := &cfgVal{}
	val.assignType(cfgValString)
	val.asString = v
	(*c)[path] = val
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValBool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting %q does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValInt)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting %q does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValString)
		return val.asString
	}
	panic(fmt.Sprintf("string setting %q does not exist", path))
}

// configFileNames is the search order LoadConfigFile walks upward
// through the directory tree looking for.
var configFileNames = []string{"cnext.config.json", ".cnext.json", ".cnextrc"}

// jsonConfigShape is the on-disk shape of a config file; only the
// fields a user is likely to set are exposed, everything else keeps
// its NewConfig default.
type jsonConfigShape struct {
	EmitMode         *string `json:"emit.mode"`
	TargetProfile    *string `json:"emit.target_profile"`
	OverflowPolicy   *string `json:"overflow.default_policy"`
	CacheEnabled     *bool   `json:"cache.enabled"`
	CacheDir         *string `json:"cache.dir"`
	MaxIncludeDepth  *int    `json:"analysis.max_include_depth"`
}

// LoadConfigFile walks upward from startDir looking for one of
// configFileNames and merges whatever it finds onto c. It is not an
// error for no config file to exist.
func LoadConfigFile(c *Config, startDir string) error {
	dir := startDir
	for {
		for _, name := range configFileNames {
			p := filepath.Join(dir, name)
			b, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			var shape jsonConfigShape
			if err := json.Unmarshal(b, &shape); err != nil {
				return fmt.Errorf("parsing %s: %w", p, err)
			}
			applyJSONConfig(c, &shape)
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

func applyJSONConfig(c *Config, shape *jsonConfigShape) {
	if shape.EmitMode != nil {
		c.SetString("emit.mode", *shape.EmitMode)
	}
	if shape.TargetProfile != nil {
		c.SetString("emit.target_profile", *shape.TargetProfile)
	}
	if shape.OverflowPolicy != nil {
		c.SetString("overflow.default_policy", *shape.OverflowPolicy)
	}
	if shape.CacheEnabled != nil {
		c.SetBool("cache.enabled", *shape.CacheEnabled)
	}
	if shape.CacheDir != nil {
		c.SetString("cache.dir", *shape.CacheDir)
	}
	if shape.MaxIncludeDepth != nil {
		c.SetInt("analysis.max_include_depth", *shape.MaxIncludeDepth)
	}
}
