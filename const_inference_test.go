package cnext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferConstParamsFlipsDirectlyMutatedParam(t *testing.T) {
	ledType := NamedType("Led")
	// func turnOn(Led led) void { led.state = 1u8; }
	fn := &FuncDecl{
		Name:   "turnOn",
		Params: []Param{{Name: "led", Type: ledType}},
		Body: &Block{Stmts: []Stmt{
			&ExprStmt{X: &CompoundAssignExpr{
				Target: &QualifiedAccess{Base: &Identifier{Name: "led"}, Field: "state"},
				Op:     TokenAssign,
				Value:  &IntLiteral{Value: 1},
			}},
		}},
	}
	f := &File{Decls: []Decl{fn}}
	ci := InferConstParams(nil, []*File{f})
	assert.True(t, ci.IsNonConst("turnOn", "led"))
}

func TestInferConstParamsLeavesUnmutatedParamConst(t *testing.T) {
	ledType := NamedType("Led")
	fn := &FuncDecl{
		Name:   "readState",
		Params: []Param{{Name: "led", Type: ledType}},
		Body: &Block{Stmts: []Stmt{
			&ExprStmt{X: &QualifiedAccess{Base: &Identifier{Name: "led"}, Field: "state"}},
		}},
	}
	f := &File{Decls: []Decl{fn}}
	ci := InferConstParams(nil, []*File{f})
	assert.False(t, ci.IsNonConst("readState", "led"))
}

func TestInferConstParamsPropagatesThroughForwardedCall(t *testing.T) {
	ledType := NamedType("Led")
	mutator := &FuncDecl{
		Name:   "mutate",
		Params: []Param{{Name: "led", Type: ledType}},
		Body: &Block{Stmts: []Stmt{
			&ExprStmt{X: &CompoundAssignExpr{
				Target: &QualifiedAccess{Base: &Identifier{Name: "led"}, Field: "state"},
				Op:     TokenAssign,
				Value:  &IntLiteral{Value: 1},
			}},
		}},
	}
	forwarder := &FuncDecl{
		Name:   "forward",
		Params: []Param{{Name: "led", Type: ledType}},
		Body: &Block{Stmts: []Stmt{
			&ExprStmt{X: &CallExpr{
				Callee: &Identifier{Name: "mutate"},
				Args:   []Expr{&Identifier{Name: "led"}},
			}},
		}},
	}

	table := NewSymbolTable()
	table.add(&Symbol{ID: 1, Name: "mutate", FQN: "mutate", Kind: SymFunction})
	table.add(&Symbol{ID: 2, Name: "forward", FQN: "forward", Kind: SymFunction})

	f := &File{Decls: []Decl{mutator, forwarder}}
	ci := InferConstParams(table, []*File{f})

	require.True(t, ci.IsNonConst("mutate", "led"))
	assert.True(t, ci.IsNonConst("forward", "led"), "a param forwarded unchanged to a non-const callee parameter must itself become non-const")
}
