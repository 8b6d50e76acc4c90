package cnext

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser is a hand-written recursive-descent parser with Pratt-style
// expression precedence:
// top-level `declaration*`, error recovery that skips to the next
// top-level declaration keyword, and a
// diagnostic list returned alongside the AST so one run can surface
// multiple independent parse errors.
type Parser struct {
	fileID   FileID
	filePath string
	toks     []Token
	pos      int

	diagnostics []Diagnostic
}

func NewParser(fileID FileID, filePath string, toks []Token) *Parser {
	// Strip plain comments (directives are kept separately by the
	// caller via CollectDirectives); the parser itself only consumes
	// grammar-significant tokens.
	filtered := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == TokenComment {
			continue
		}
		filtered = append(filtered, t)
	}
	return &Parser{fileID: fileID, filePath: filePath, toks: filtered}
}

// CollectDirectives extracts the directive comments from a raw token
// stream (including plain comments), in source order, for
// invariant 4 (pass-through directives preserved verbatim).
func CollectDirectives(toks []Token) []Token {
	var out []Token
	for _, t := range toks {
		if t.Kind == TokenDirectiveComment {
			out = append(out, t)
		}
	}
	return out
}

func (p *Parser) Diagnostics() []Diagnostic { return p.diagnostics }

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) atEnd() bool { return p.cur().Kind == TokenEOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k TokenKind) bool { return p.cur().Kind == k }

func (p *Parser) match(k TokenKind) (Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	if p.check(k) {
		return p.advance(), nil
	}
	tok := p.cur()
	err := fmt.Errorf("expected %s, found %q", k, tok.Lexeme)
	p.errorAt(tok.Span, "%s", err.Error())
	return tok, err
}

// expectAssignOp accepts either the `<-` arrow or the plain `=` in a
// declaration-initializer position.
func (p *Parser) expectAssignOp() {
	if p.check(TokenAssign) || p.check(TokenArrow) {
		p.advance()
		return
	}
	p.errorAt(p.cur().Span, "expected <- or =, found %q", p.cur().Lexeme)
}

func (p *Parser) errorAt(sp Span, format string, args ...any) {
	p.diagnostics = append(p.diagnostics, Diagnostic{
		Kind:     KindParse,
		Severity: DiagnosticError,
		Message:  fmt.Sprintf(format, args...),
		Code:     "E-PARSE-001",
		Span:     sp,
		FilePath: p.filePath,
	})
}

// topLevelKeywords is where the parser resynchronises after a parse
// error.
var topLevelKeywords = map[TokenKind]bool{
	TokenScope: true, TokenStruct: true, TokenEnum: true, TokenBitmap: true,
	TokenRegister: true, TokenConst: true, TokenFunc: true, TokenMethod: true,
	TokenInclude: true,
}

func (p *Parser) recover() {
	for !p.atEnd() {
		if topLevelKeywords[p.cur().Kind] {
			return
		}
		p.advance()
	}
}

// ParseFile parses a whole file's declaration*, recovering at the
// next top-level declaration keyword so the symbol collector still gets a
// best-effort AST after an error.
func (p *Parser) ParseFile() *File {
	f := &File{Path: p.filePath, FileID: p.fileID}
	start := p.cur().Span
	for !p.atEnd() {
		before := p.pos
		d := p.parseDecl()
		if d != nil {
			f.Decls = append(f.Decls, d)
		}
		if p.pos == before {
			// Guard against an accidental infinite loop if neither a
			// declaration nor recovery consumed a token.
			p.advance()
		}
	}
	end := p.cur().Span
	f.Sp = Span{Start: start.Start, End: end.End}
	return f
}

func (p *Parser) parseDecl() Decl {
	switch p.cur().Kind {
	case TokenInclude:
		return p.parseInclude()
	case TokenScope:
		return p.parseScope()
	case TokenStruct:
		return p.parseStruct()
	case TokenEnum:
		return p.parseEnum()
	case TokenBitmap:
		return p.parseBitmap()
	case TokenRegister:
		return p.parseRegister()
	case TokenConst:
		return p.parseConst()
	case TokenFunc:
		return p.parseFunc()
	case TokenMethod:
		return p.parseMethod()
	case TokenAtomic:
		return p.parseVarDeclWithModifier(true)
	default:
		if isTypeStart(p.cur().Kind) {
			return p.parseVarOrMethod()
		}
		p.errorAt(p.cur().Span, "unexpected token %q at top level", p.cur().Lexeme)
		p.recover()
		return nil
	}
}

func isTypeStart(k TokenKind) bool {
	switch k {
	case TokenU8, TokenU16, TokenU32, TokenU64, TokenI8, TokenI16, TokenI32, TokenI64,
		TokenF32, TokenF64, TokenBool, TokenString, TokenVoid, TokenIdent:
		return true
	default:
		return false
	}
}

func (p *Parser) parseInclude() Decl {
	start := p.advance() // '#include' keyword token
	var path string
	var isSystem bool
	if tok, ok := p.match(TokenLt); ok {
		isSystem = true
		var b strings.Builder
		for !p.check(TokenGt) && !p.atEnd() {
			b.WriteString(p.advance().Lexeme)
		}
		p.expect(TokenGt)
		path = b.String()
		_ = tok
	} else if str, ok := p.match(TokenStringLiteral); ok {
		path = unquoteString(str.Lexeme)
	} else {
		p.errorAt(p.cur().Span, "expected include path")
	}
	end := p.toks[p.pos-1].Span
	return &IncludeDirective{Path: path, IsSystem: isSystem, Sp: Span{Start: start.Span.Start, End: end.End}}
}

func (p *Parser) parseScope() Decl {
	start := p.advance()
	name, _ := p.expect(TokenIdent)
	p.expect(TokenLBrace)
	var body []Decl
	for !p.check(TokenRBrace) && !p.atEnd() {
		before := p.pos
		d := p.parseDecl()
		if d != nil {
			body = append(body, d)
		}
		if p.pos == before {
			p.advance()
		}
	}
	end, _ := p.expect(TokenRBrace)
	return &ScopeDecl{Name: name.Lexeme, Body: body, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseStruct() Decl {
	start := p.advance()
	name, _ := p.expect(TokenIdent)
	p.expect(TokenLBrace)
	var fields []FieldDecl
	for !p.check(TokenRBrace) && !p.atEnd() {
		fStart := p.cur().Span
		ty := p.parseType()
		fname, _ := p.expect(TokenIdent)
		p.expect(TokenSemicolon)
		fields = append(fields, FieldDecl{Name: fname.Lexeme, Type: ty, Sp: Span{Start: fStart.Start, End: fname.Span.End}})
	}
	end, _ := p.expect(TokenRBrace)
	return &StructDecl{Name: name.Lexeme, Fields: fields, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseEnum() Decl {
	start := p.advance()
	name, _ := p.expect(TokenIdent)
	backing := PrimType(PrimI32)
	if _, ok := p.match(TokenColon); ok {
		backing = p.parseType()
	}
	p.expect(TokenLBrace)
	var members []EnumMember
	for !p.check(TokenRBrace) && !p.atEnd() {
		mname, _ := p.expect(TokenIdent)
		var val Expr
		if _, ok := p.match(TokenAssign); ok {
			val = p.parseExpr()
		}
		members = append(members, EnumMember{Name: mname.Lexeme, Value: val, Sp: mname.Span})
		if _, ok := p.match(TokenComma); ok {
			continue
		}
		if _, ok := p.match(TokenSemicolon); ok {
			continue
		}
		break
	}
	end, _ := p.expect(TokenRBrace)
	return &EnumDecl{Name: name.Lexeme, Backing: backing, Members: members, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

var accessKeywords = map[TokenKind]AccessModifier{
	TokenRw: AccessRW, TokenRo: AccessRO, TokenWo: AccessWO,
	TokenW1c: AccessW1C, TokenW1s: AccessW1S,
}

func (p *Parser) parseBitmap() Decl {
	start := p.advance()
	name, _ := p.expect(TokenIdent)
	backing := PrimU32
	if _, ok := p.match(TokenColon); ok {
		t := p.parseType()
		if t.Tag == TypePrim {
			backing = t.Prim
		}
	}
	p.expect(TokenLBrace)
	var fields []BitmapFieldDecl
	for !p.check(TokenRBrace) && !p.atEnd() {
		fname, _ := p.expect(TokenIdent)
		p.expect(TokenColon)
		widthTok, _ := p.expect(TokenIntLiteral)
		width, _ := strconv.Atoi(widthTok.Lexeme)
		p.expect(TokenSemicolon)
		fields = append(fields, BitmapFieldDecl{Name: fname.Lexeme, Width: width, Sp: fname.Span})
	}
	end, _ := p.expect(TokenRBrace)
	return &BitmapDecl{Name: name.Lexeme, Backing: backing, Fields: fields, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseRegister() Decl {
	start := p.advance()
	name, _ := p.expect(TokenIdent)
	p.expectAssignOp()
	addrTok, _ := p.expect(TokenIntLiteral)
	addr := parseUintLiteral(addrTok.Lexeme)
	p.expect(TokenLBrace)
	var members []RegisterMemberDecl
	for !p.check(TokenRBrace) && !p.atEnd() {
		access := AccessRW
		if a, ok := accessKeywords[p.cur().Kind]; ok {
			access = a
			p.advance()
		}
		ty := p.parseType()
		mname, _ := p.expect(TokenIdent)
		p.expect(TokenSemicolon)
		members = append(members, RegisterMemberDecl{Name: mname.Lexeme, Type: ty, Access: access, Sp: mname.Span})
	}
	end, _ := p.expect(TokenRBrace)
	return &RegisterDecl{Name: name.Lexeme, Address: addr, Members: members, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseConst() Decl {
	start := p.advance()
	ty := p.parseType()
	name, _ := p.expect(TokenIdent)
	p.expectAssignOp()
	val := p.parseExpr()
	end, _ := p.expect(TokenSemicolon)
	return &ConstDecl{Name: name.Lexeme, Type: ty, Value: val, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseVarOrMethod() Decl {
	return p.parseVarDeclWithModifier(false)
}

func (p *Parser) parseVarDeclWithModifier(isAtomic bool) Decl {
	start := p.cur().Span
	if isAtomic {
		p.advance() // 'atomic'
	}
	overflow := Clamp
	overflowExplicit := false
	if p.check(TokenClamp) || p.check(TokenWrap) {
		if p.check(TokenWrap) {
			overflow = Wrap
		}
		overflowExplicit = true
		p.advance()
	}
	ty := p.parseType()
	nameTok, _ := p.expect(TokenIdent)

	// C-style function form: `Type name(params) { body }`.
	if p.check(TokenLParen) && !isAtomic {
		params := p.parseParamList()
		body := p.parseBlock()
		return &FuncDecl{Name: nameTok.Lexeme, Params: params, ReturnType: ty, Body: body,
			Sp: Span{Start: start.Start, End: body.Sp.End}}
	}

	var init Expr
	if p.check(TokenAssign) || p.check(TokenArrow) {
		p.advance()
		init = p.parseExpr()
	}
	end, _ := p.expect(TokenSemicolon)
	return &VarDecl{
		Name: nameTok.Lexeme, Type: ty, Init: init,
		Overflow: overflow, OverflowExplicit: overflowExplicit, IsAtomic: isAtomic,
		Sp: Span{Start: start.Start, End: end.Span.End},
	}
}

// parseMethod handles `method ReceiverType.name(params) retType { body }`.
func (p *Parser) parseMethod() Decl {
	start := p.advance() // 'method'
	receiver, _ := p.expect(TokenIdent)
	p.expect(TokenDot)
	mname, _ := p.expect(TokenIdent)
	params := p.parseParamList()
	retType := Type{Tag: TypePrim, Prim: PrimVoid}
	if isTypeStart(p.cur().Kind) {
		retType = p.parseType()
	}
	body := p.parseBlock()
	return &MethodDecl{
		ReceiverType: receiver.Lexeme, Name: mname.Lexeme,
		Params: params, ReturnType: retType, Body: body,
		Sp: Span{Start: start.Span.Start, End: body.Sp.End},
	}
}

func (p *Parser) parseFunc() Decl {
	start := p.advance()
	name, _ := p.expect(TokenIdent)
	params := p.parseParamList()
	retType := Type{Tag: TypePrim, Prim: PrimVoid}
	if isTypeStart(p.cur().Kind) {
		retType = p.parseType()
	}
	body := p.parseBlock()
	return &FuncDecl{Name: name.Lexeme, Params: params, ReturnType: retType, Body: body,
		Sp: Span{Start: start.Span.Start, End: body.Sp.End}}
}

func (p *Parser) parseParamList() []Param {
	p.expect(TokenLParen)
	var params []Param
	for !p.check(TokenRParen) && !p.atEnd() {
		ty := p.parseType()
		name, _ := p.expect(TokenIdent)
		params = append(params, Param{Name: name.Lexeme, Type: ty, Sp: name.Span})
		if _, ok := p.match(TokenComma); !ok {
			break
		}
	}
	p.expect(TokenRParen)
	return params
}

// ---- Types ----

var primTypeTokens = map[TokenKind]PrimKind{
	TokenU8: PrimU8, TokenU16: PrimU16, TokenU32: PrimU32, TokenU64: PrimU64,
	TokenI8: PrimI8, TokenI16: PrimI16, TokenI32: PrimI32, TokenI64: PrimI64,
	TokenF32: PrimF32, TokenF64: PrimF64, TokenBool: PrimBool, TokenVoid: PrimVoid,
}

func (p *Parser) parseType() Type {
	var base Type
	if prim, ok := primTypeTokens[p.cur().Kind]; ok {
		p.advance()
		base = PrimType(prim)
	} else if p.check(TokenString) {
		p.advance()
		n := 0
		if _, ok := p.match(TokenLt); ok {
			if tok, ok := p.match(TokenIntLiteral); ok {
				n, _ = strconv.Atoi(tok.Lexeme)
			}
			p.expect(TokenGt)
		}
		base = BoundedStringType(n)
	} else if tok, ok := p.match(TokenIdent); ok {
		base = NamedType(tok.Lexeme)
	} else {
		p.errorAt(p.cur().Span, "expected type, found %q", p.cur().Lexeme)
		base = UnknownType()
	}
	for p.check(TokenStar) {
		p.advance()
		base = PtrType(base)
	}
	return base
}

// ---- Statements ----

func (p *Parser) parseBlock() *Block {
	start, _ := p.expect(TokenLBrace)
	var stmts []Stmt
	for !p.check(TokenRBrace) && !p.atEnd() {
		s := p.parseStmt()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	end, _ := p.expect(TokenRBrace)
	return &Block{Stmts: stmts, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseStmt() Stmt {
	switch p.cur().Kind {
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenDo:
		return p.parseDoWhile()
	case TokenFor:
		return p.parseFor()
	case TokenSwitch:
		return p.parseSwitch()
	case TokenReturn:
		return p.parseReturn()
	case TokenAtomic:
		return p.parseAtomic()
	case TokenCritical:
		return p.parseCritical()
	case TokenLBrace:
		return p.parseBlock()
	default:
		if isTypeStart(p.cur().Kind) && p.looksLikeDecl() {
			d := p.parseVarOrMethod()
			return &DeclStmt{Decl: d, Sp: d.Span()}
		}
		start := p.cur().Span
		e := p.parseExpr()
		end, _ := p.expect(TokenSemicolon)
		return &ExprStmt{X: e, Sp: Span{Start: start.Start, End: end.Span.End}}
	}
}

// looksLikeDecl distinguishes "Type name ..." from an expression
// statement that merely starts with an identifier (e.g. a bare call),
// by checking that a type token is immediately followed by another
// identifier.
func (p *Parser) looksLikeDecl() bool {
	if p.cur().Kind == TokenIdent {
		// A named type used as a declaration is only unambiguous when
		// followed by another identifier.
		return p.toks[p.pos+1].Kind == TokenIdent
	}
	return true
}

func (p *Parser) parseIf() Stmt {
	start := p.advance()
	p.expect(TokenLParen)
	cond := p.parseExpr()
	p.expect(TokenRParen)
	then := p.parseBlock()
	var elseStmt Stmt
	if _, ok := p.match(TokenElse); ok {
		if p.check(TokenIf) {
			elseStmt = p.parseIf()
		} else {
			elseStmt = p.parseBlock()
		}
	}
	end := then.Sp
	if elseStmt != nil {
		end = elseStmt.Span()
	}
	return &IfStmt{Cond: cond, Then: then, Else: elseStmt, Sp: Span{Start: start.Span.Start, End: end.End}}
}

func (p *Parser) parseWhile() Stmt {
	start := p.advance()
	p.expect(TokenLParen)
	cond := p.parseExpr()
	p.expect(TokenRParen)
	body := p.parseBlock()
	return &WhileStmt{Cond: cond, Body: body, Sp: Span{Start: start.Span.Start, End: body.Sp.End}}
}

func (p *Parser) parseDoWhile() Stmt {
	start := p.advance()
	body := p.parseBlock()
	p.expect(TokenWhile)
	p.expect(TokenLParen)
	cond := p.parseExpr()
	p.expect(TokenRParen)
	end, _ := p.expect(TokenSemicolon)
	return &DoWhileStmt{Body: body, Cond: cond, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

// parseFor requires all three for(;;) clauses; a C-Next for loop has
// no bare-semicolon empty-clause form.
func (p *Parser) parseFor() Stmt {
	start := p.advance()
	p.expect(TokenLParen)

	var init Stmt
	if isTypeStart(p.cur().Kind) && p.looksLikeDecl() {
		d := p.parseVarOrMethod()
		init = &DeclStmt{Decl: d, Sp: d.Span()}
	} else {
		e := p.parseExpr()
		_, _ = p.expect(TokenSemicolon)
		init = &ExprStmt{X: e, Sp: e.Span()}
	}

	cond := p.parseExpr()
	p.expect(TokenSemicolon)

	step := p.parseExpr()
	p.expect(TokenRParen)

	body := p.parseBlock()
	return &ForStmt{
		Init: init, Cond: cond, Step: &ExprStmt{X: step, Sp: step.Span()}, Body: body,
		Sp: Span{Start: start.Span.Start, End: body.Sp.End},
	}
}

func (p *Parser) parseSwitch() Stmt {
	start := p.advance()
	p.expect(TokenLParen)
	subject := p.parseExpr()
	p.expect(TokenRParen)
	p.expect(TokenLBrace)
	var cases []SwitchCase
	for p.check(TokenCase) || p.check(TokenDefault) {
		cStart := p.cur().Span
		var values []Expr
		isDefault := false
		if _, ok := p.match(TokenDefault); ok {
			isDefault = true
		} else {
			p.expect(TokenCase)
			values = append(values, p.parseExpr())
			for {
				if _, ok := p.match(TokenComma); ok {
					values = append(values, p.parseExpr())
					continue
				}
				break
			}
		}
		p.expect(TokenColon)
		body := p.parseBlock() // brace-per-case mandatory
		cases = append(cases, SwitchCase{Values: values, IsDefault: isDefault, Body: body, Sp: Span{Start: cStart.Start, End: body.Sp.End}})
	}
	end, _ := p.expect(TokenRBrace)
	return &SwitchStmt{Subject: subject, Cases: cases, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseReturn() Stmt {
	start := p.advance()
	var val Expr
	if !p.check(TokenSemicolon) {
		val = p.parseExpr()
	}
	end, _ := p.expect(TokenSemicolon)
	return &ReturnStmt{Value: val, Sp: Span{Start: start.Span.Start, End: end.Span.End}}
}

func (p *Parser) parseAtomic() Stmt {
	// `atomic { ... }` is a block statement; `atomic u32 x <- 0;` is a
	// local declaration carrying the atomic modifier.
	if p.toks[p.pos+1].Kind != TokenLBrace {
		d := p.parseVarDeclWithModifier(true)
		return &DeclStmt{Decl: d, Sp: d.Span()}
	}
	start := p.advance()
	body := p.parseBlock()
	return &AtomicStmt{Body: body, Sp: Span{Start: start.Span.Start, End: body.Sp.End}}
}

func (p *Parser) parseCritical() Stmt {
	start := p.advance()
	body := p.parseBlock()
	return &CriticalStmt{Body: body, Sp: Span{Start: start.Span.Start, End: body.Sp.End}}
}

// ---- Expressions: Pratt precedence climbing ----

type precedence int

const (
	precNone precedence = iota
	precAssign
	precTernary
	precLogicOr
	precLogicAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrec = map[TokenKind]precedence{
	TokenOrOr: precLogicOr, TokenAndAnd: precLogicAnd,
	TokenPipe: precBitOr, TokenCaret: precBitXor, TokenAmp: precBitAnd,
	TokenEq: precEquality, TokenNe: precEquality,
	TokenLt: precRelational, TokenGt: precRelational, TokenLe: precRelational, TokenGe: precRelational,
	TokenShl: precShift, TokenShr: precShift,
	TokenPlus: precAdditive, TokenMinus: precAdditive,
	TokenStar: precMultiplicative, TokenSlash: precMultiplicative, TokenPercent: precMultiplicative,
}

var assignOps = map[TokenKind]bool{
	TokenAssign: true, TokenArrow: true,
	TokenPlusArrow: true, TokenMinusArrow: true, TokenStarArrow: true, TokenSlashArrow: true,
	TokenPercArrow: true, TokenAmpArrow: true, TokenPipeArrow: true, TokenCaretArrow: true,
	TokenShlArrow: true, TokenShrArrow: true,
}

func (p *Parser) parseExpr() Expr { return p.parseAssign() }

func (p *Parser) parseAssign() Expr {
	left := p.parseTernary()
	if assignOps[p.cur().Kind] {
		op := p.advance()
		// The arrow itself carries no overflow policy; the analyser
		// infers one from the target's declaration or an operand's
		// w/c literal suffix.
		right := p.parseAssign()
		return &CompoundAssignExpr{
			exprBase: exprBase{Sp: Span{Start: left.Span().Start, End: right.Span().End}},
			Target:   left, Op: op.Kind, Value: right,
		}
	}
	return left
}

func (p *Parser) parseTernary() Expr {
	cond := p.parseBinary(precLogicOr)
	if _, ok := p.match(TokenQuestion); ok {
		then := p.parseAssign()
		p.expect(TokenColon)
		els := p.parseAssign()
		return &TernaryExpr{
			exprBase: exprBase{Sp: Span{Start: cond.Span().Start, End: els.Span().End}},
			Cond:     cond, Then: then, Else: els,
		}
	}
	return cond
}

func (p *Parser) parseBinary(minPrec precedence) Expr {
	left := p.parseUnary()
	for {
		prec, ok := binPrec[p.cur().Kind]
		if !ok || prec < minPrec {
			return left
		}
		op := p.advance()
		right := p.parseBinary(prec + 1)
		left = &BinaryExpr{
			exprBase: exprBase{Sp: Span{Start: left.Span().Start, End: right.Span().End}},
			Op:       op.Kind, Left: left, Right: right,
		}
	}
}

func (p *Parser) parseUnary() Expr {
	switch p.cur().Kind {
	case TokenBang, TokenMinus, TokenTilde, TokenAmp, TokenStar:
		op := p.advance()
		operand := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{Sp: Span{Start: op.Span.Start, End: operand.Span().End}}, Op: op.Kind, Operand: operand}
	case TokenSizeof:
		return p.parseSizeof()
	case TokenLParen:
		if p.looksLikeCast() {
			return p.parseCast()
		}
	}
	return p.parsePostfix()
}

// looksLikeCast distinguishes "(Type)expr" from a parenthesised
// expression by checking whether the token right after '(' is a type
// keyword or a named type immediately followed by ')'.
func (p *Parser) looksLikeCast() bool {
	save := p.pos
	defer func() { p.pos = save }()
	p.advance() // '('
	if !isTypeStart(p.cur().Kind) {
		return false
	}
	_, isPrim := primTypeTokens[p.cur().Kind]
	isStringT := p.cur().Kind == TokenString
	isIdent := p.cur().Kind == TokenIdent
	if !isPrim && !isStringT && !isIdent {
		return false
	}
	p.parseType()
	return p.check(TokenRParen)
}

func (p *Parser) parseCast() Expr {
	start := p.advance() // '('
	ty := p.parseType()
	p.expect(TokenRParen)
	operand := p.parseUnary()
	return &CastExpr{exprBase: exprBase{Sp: Span{Start: start.Span.Start, End: operand.Span().End}}, Target: ty, Operand: operand}
}

func (p *Parser) parseSizeof() Expr {
	start := p.advance()
	p.expect(TokenLParen)
	var targetType *Type
	var targetExpr Expr
	if isTypeStart(p.cur().Kind) {
		t := p.parseType()
		targetType = &t
	} else {
		targetExpr = p.parseExpr()
	}
	end, _ := p.expect(TokenRParen)
	return &SizeofExpr{
		exprBase:   exprBase{Sp: Span{Start: start.Span.Start, End: end.Span.End}},
		TargetType: targetType, TargetExpr: targetExpr,
	}
}

func (p *Parser) parsePostfix() Expr {
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case TokenDot:
			p.advance()
			field, _ := p.expect(TokenIdent)
			e = &QualifiedAccess{exprBase: exprBase{Sp: Span{Start: e.Span().Start, End: field.Span.End}}, Base: e, Field: field.Lexeme}
		case TokenLParen:
			p.advance()
			var args []Expr
			for !p.check(TokenRParen) && !p.atEnd() {
				args = append(args, p.parseExpr())
				if _, ok := p.match(TokenComma); !ok {
					break
				}
			}
			end, _ := p.expect(TokenRParen)
			e = &CallExpr{exprBase: exprBase{Sp: Span{Start: e.Span().Start, End: end.Span.End}}, Callee: e, Args: args}
		case TokenLBracket:
			p.advance()
			idx := p.parseExpr()
			end, _ := p.expect(TokenRBracket)
			e = &IndexExpr{exprBase: exprBase{Sp: Span{Start: e.Span().Start, End: end.Span.End}}, Base: e, Index: idx}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Kind {
	case TokenIntLiteral:
		p.advance()
		return &IntLiteral{exprBase: exprBase{Sp: tok.Span}, Value: parseUintLiteral(tok.Lexeme), Suffix: tok.Suffix}
	case TokenFloatLiteral:
		p.advance()
		v, _ := strconv.ParseFloat(stripSuffix(tok.Lexeme), 64)
		return &FloatLiteral{exprBase: exprBase{Sp: tok.Span}, Value: v, Suffix: tok.Suffix}
	case TokenStringLiteral:
		p.advance()
		return &StringLiteral{exprBase: exprBase{Sp: tok.Span}, Value: unquoteString(tok.Lexeme), Raw: strings.HasPrefix(tok.Lexeme, `"""`)}
	case TokenCharLiteral:
		p.advance()
		return &CharLiteral{exprBase: exprBase{Sp: tok.Span}, Value: unquoteChar(tok.Lexeme)}
	case TokenTrue, TokenFalse:
		p.advance()
		return &BoolLiteral{exprBase: exprBase{Sp: tok.Span}, Value: tok.Kind == TokenTrue}
	case TokenThis, TokenGlobal, TokenIdent:
		p.advance()
		return &Identifier{exprBase: exprBase{Sp: tok.Span}, Name: tok.Lexeme}
	case TokenLParen:
		p.advance()
		e := p.parseExpr()
		p.expect(TokenRParen)
		return e
	default:
		p.errorAt(tok.Span, "unexpected token %q in expression", tok.Lexeme)
		p.advance()
		return &Identifier{exprBase: exprBase{Sp: tok.Span}, Name: "<error>"}
	}
}

// ---- literal helpers ----

func stripSuffix(lexeme string) string {
	i := 0
	for i < len(lexeme) {
		c := lexeme[i]
		if c == '.' || c == '-' || c == '+' || (c >= '0' && c <= '9') || c == 'e' || c == 'E' {
			i++
			continue
		}
		break
	}
	return lexeme[:i]
}

func parseUintLiteral(lexeme string) uint64 {
	digits := strings.ReplaceAll(lexeme, "_", "")
	base := 10
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	switch {
	case strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X"):
		base = 16
		digits = digits[2:]
		isDigit = func(c byte) bool {
			return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
		}
	case strings.HasPrefix(digits, "0b") || strings.HasPrefix(digits, "0B"):
		base = 2
		digits = digits[2:]
	case strings.HasPrefix(digits, "0o") || strings.HasPrefix(digits, "0O"):
		base = 8
		digits = digits[2:]
	}
	// Drop any width/overflow suffix (u8, i32, w, c) still attached.
	end := 0
	for end < len(digits) && isDigit(digits[end]) {
		end++
	}
	v, _ := strconv.ParseUint(digits[:end], base, 64)
	return v
}

func unquoteString(lexeme string) string {
	if strings.HasPrefix(lexeme, `"""`) && strings.HasSuffix(lexeme, `"""`) && len(lexeme) >= 6 {
		return lexeme[3 : len(lexeme)-3]
	}
	if len(lexeme) >= 2 {
		if s, err := strconv.Unquote(lexeme); err == nil {
			return s
		}
		return lexeme[1 : len(lexeme)-1]
	}
	return lexeme
}

func unquoteChar(lexeme string) rune {
	if len(lexeme) < 2 {
		return 0
	}
	inner := lexeme[1 : len(lexeme)-1]
	if r, _, _, err := strconv.UnquoteChar(inner, '\''); err == nil {
		return r
	}
	for _, r := range inner {
		return r
	}
	return 0
}
