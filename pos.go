package cnext

import (
	"fmt"
	"sort"
)

// FileID identifies a source file within a compilation. The pipeline
// lexes and parses every file with unknownFileID, so no distinct IDs
// are handed out; files are told apart by path (Diagnostic.FilePath,
// Symbol.SourceFile, ResolvedInclude.Path).
type FileID int

const unknownFileID FileID = -1

// Position is a single point in a source file: 1-based line, 0-based
// column, plus the byte length of the token/node it anchors.
type Position struct {
	FileID FileID
	Line   int
	Column int
	Length int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span covers a Start..End range of Positions, both within the same
// file. Used on every AST node and Symbol so diagnostics can always
// point at exact source text.
type Span struct {
	Start Position
	End   Position
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%d:%d..%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%d:%d..%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// LineIndex supports fast byte-offset -> line/column conversion. It is
// built once per file by the lexer, which uses it for every token's
// span.
type LineIndex struct {
	input     []byte
	lineStart []int
}

// NewLineIndex scans input once, recording the byte offset each line
// starts at.
func NewLineIndex(input []byte) *LineIndex {
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range input {
		if b == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &LineIndex{input: input, lineStart: lineStart}
}

// LineCol returns the 1-based line and 0-based column for a byte
// offset into the indexed input.
func (li *LineIndex) LineCol(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.input) {
		offset = len(li.input)
	}
	idx := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, offset - li.lineStart[idx]
}
