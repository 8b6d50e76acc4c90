package cnext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmissionModeString(t *testing.T) {
	assert.Equal(t, "c", EmitC.String())
	assert.Equal(t, "cpp", EmitCpp.String())
}

func TestBuildIRBundlesFields(t *testing.T) {
	f := &File{Path: "t.cnx"}
	table := NewSymbolTable()
	consts := &ConstInference{NonConst: map[ParamKey]bool{}}
	profile := ResolveTargetProfile("host")

	ir := BuildIR(f, table, EmitCpp, consts, &profile)

	assert.Same(t, f, ir.Root)
	assert.Same(t, table, ir.Table)
	assert.Equal(t, EmitCpp, ir.Mode)
	assert.Same(t, consts, ir.Consts)
	assert.Equal(t, &profile, ir.Profile)
}
