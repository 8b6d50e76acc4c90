package cnext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerScansArrowOperators(t *testing.T) {
	tests := []struct {
		src  string
		want TokenKind
	}{
		{"<-", TokenArrow},
		{"+<-", TokenPlusArrow},
		{"-<-", TokenMinusArrow},
		{"*<-", TokenStarArrow},
		{"/<-", TokenSlashArrow},
		{"%<-", TokenPercArrow},
		{"&<-", TokenAmpArrow},
		{"|<-", TokenPipeArrow},
		{"^<-", TokenCaretArrow},
		{"<<-", TokenShlArrow},
		{">>-", TokenShrArrow},
	}
	for _, tt := range tests {
		lx := NewLexer(unknownFileID, "t.cnx", tt.src)
		toks, diags := lx.Tokenize()
		require.Empty(t, diags, tt.src)
		require.Len(t, toks, 2, tt.src) // operator + EOF
		assert.Equal(t, tt.want, toks[0].Kind, tt.src)
		assert.Equal(t, tt.src, toks[0].Lexeme, tt.src)
	}
}

func TestLexerNumericSuffixesWidthAndOverflow(t *testing.T) {
	lx := NewLexer(unknownFileID, "t.cnx", "200u8c 10i16w 3.5f32")
	toks, diags := lx.Tokenize()
	require.Empty(t, diags)
	require.Len(t, toks, 4)

	assert.Equal(t, TokenIntLiteral, toks[0].Kind)
	assert.True(t, toks[0].Suffix.HasWidth)
	assert.Equal(t, TokenU8, toks[0].Suffix.Width)
	assert.True(t, toks[0].Suffix.HasOverflow)
	assert.Equal(t, Clamp, toks[0].Suffix.Overflow)

	assert.True(t, toks[1].Suffix.HasOverflow)
	assert.Equal(t, Wrap, toks[1].Suffix.Overflow)

	assert.Equal(t, TokenFloatLiteral, toks[2].Kind)
	assert.True(t, toks[2].Suffix.HasWidth)
	assert.Equal(t, TokenF32, toks[2].Suffix.Width)
}

func TestLexerTripleQuotedRawString(t *testing.T) {
	lx := NewLexer(unknownFileID, "t.cnx", `"""line one
line two"""`)
	toks, diags := lx.Tokenize()
	require.Empty(t, diags)
	require.Len(t, toks, 2)
	assert.Equal(t, TokenStringLiteral, toks[0].Kind)
}

func TestLexerUnterminatedStringReportsDiagnosticAndResynchronises(t *testing.T) {
	lx := NewLexer(unknownFileID, "t.cnx", "\"unterminated\nu8 x;")
	toks, diags := lx.Tokenize()
	require.Len(t, diags, 1)
	assert.Equal(t, KindLex, diags[0].Kind)
	// lexing continues after the bad literal instead of aborting the file
	var sawU8 bool
	for _, tok := range toks {
		if tok.Kind == TokenU8 {
			sawU8 = true
		}
	}
	assert.True(t, sawU8, "lexer must resynchronise and keep scanning after an unterminated string")
}

func TestLexerDirectiveCommentRecognised(t *testing.T) {
	lx := NewLexer(unknownFileID, "t.cnx", "// test-cpp-only\n// just a note\n")
	toks, _ := lx.Tokenize()
	require.Len(t, toks, 3) // directive + comment + EOF
	assert.Equal(t, TokenDirectiveComment, toks[0].Kind)
	assert.Equal(t, TokenComment, toks[1].Kind)
}

func TestLexerIllegalByteProducesDiagnostic(t *testing.T) {
	lx := NewLexer(unknownFileID, "t.cnx", "u8 x = `;")
	_, diags := lx.Tokenize()
	require.NotEmpty(t, diags)
	assert.Equal(t, KindLex, diags[0].Kind)
}
