package cnext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeCIdentRewritesInvalidRunes(t *testing.T) {
	assert.Equal(t, "Board_Led", sanitizeCIdent("Board_Led"))
	assert.Equal(t, "rx_buffer", sanitizeCIdent("rx-buffer"))
	assert.Equal(t, "_3phase", sanitizeCIdent("3phase"))
	assert.Equal(t, "_", sanitizeCIdent(""))
}

func TestHeaderGuardDerivesFromBaseName(t *testing.T) {
	assert.Equal(t, "MOTOR_CONTROL_H", headerGuard("out/motor_control.h"))
	assert.Equal(t, "GPIO_H", headerGuard("gpio.hpp"))
}

func TestOutputWriterWrapsLongArgumentLists(t *testing.T) {
	o := newOutputWriter(40)
	o.writel("void f(uint32_t alpha, uint32_t beta, uint32_t gamma);")

	lines := strings.Split(strings.TrimRight(o.String(), "\n"), "\n")
	assert.Greater(t, len(lines), 1, "a line over the budget must split at a comma")
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 40, l)
	}
}

func TestOutputWriterLeavesShortLinesAlone(t *testing.T) {
	o := newOutputWriter(100)
	o.writel("uint8_t x;")
	assert.Equal(t, "uint8_t x;\n", o.String())
}

func TestOutputWriterNeverSplitsInsideStringLiteral(t *testing.T) {
	o := newOutputWriter(30)
	o.writel(`log("alpha, beta, gamma, delta");`)
	assert.Contains(t, o.String(), `"alpha, beta, gamma, delta"`)
}

func TestOutputWriterContinuationKeepsIndentLevel(t *testing.T) {
	o := newOutputWriter(44)
	o.indent()
	o.writeil("f(alpha_alpha, beta_beta, gamma_gamma_g);")

	lines := strings.Split(strings.TrimRight(o.String(), "\n"), "\n")
	assert.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[1], "        "),
		"continuation lines carry the statement indent plus one extra level")
}
