// Package parser implements the recursive-descent parser for mbs project
// description source (§4.2), consuming the token stream produced by
// internal/lexer and producing the tree defined in internal/ast.
package parser

import (
	"fmt"

	"github.com/mbuild/mbs/internal/ast"
	"github.com/mbuild/mbs/internal/lexer"
)

// Error reports a syntax error at a Position, the "Lex/parse error" entry
// of the error taxonomy (spec §7).
type Error struct {
	Pos lexer.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Parser consumes a pre-scanned token slice. Tokens are scanned up front
// (rather than lazily) since project-description files are small and this
// keeps lookahead trivial.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse tokenizes and parses src in one call.
func Parse(file, src string) (*ast.File, error) {
	toks, err := lexer.New(file, src).Tokenize()
	if err != nil {
		return nil, err
	}
	return New(toks).ParseFile()
}

// New constructs a Parser over a pre-scanned token stream.
func New(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) next() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(pos lexer.Position, format string, args ...interface{}) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, p.errorf(p.cur().Pos, "expected %s, got %s", k, p.cur().Kind)
	}
	return p.next(), nil
}

// skipNewlines consumes any run of statement-terminator Newline tokens,
// treating blank lines as insignificant.
func (p *Parser) skipNewlines() {
	for p.cur().Kind == lexer.Newline {
		p.next()
	}
}

// ParseFile parses a full source file: a sequence of statements separated
// by newlines, to EOF.
func (p *Parser) ParseFile() (*ast.File, error) {
	f := &ast.File{}
	p.skipNewlines()
	for p.cur().Kind != lexer.EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		f.Statements = append(f.Statements, stmt)
		if err := p.endStmt(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}
	return f, nil
}

// endStmt requires a Newline or EOF terminator after a statement.
func (p *Parser) endStmt() error {
	switch p.cur().Kind {
	case lexer.Newline:
		p.next()
		return nil
	case lexer.EOF:
		return nil
	}
	return p.errorf(p.cur().Pos, "expected end of statement, got %s", p.cur().Kind)
}

// parseBlock parses statements until one of the given terminator keywords is
// seen (without consuming it).
func (p *Parser) parseBlock(terminators ...lexer.Kind) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	p.skipNewlines()
	for !p.atKind(terminators...) && p.cur().Kind != lexer.EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if err := p.endStmt(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}
	return stmts, nil
}

func (p *Parser) atKind(ks ...lexer.Kind) bool {
	for _, k := range ks {
		if p.cur().Kind == k {
			return true
		}
	}
	return false
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwForeach:
		return p.parseForeach()
	case lexer.KwBreak:
		pos := p.next().Pos
		return &ast.BreakStmt{BreakPos: pos}, nil
	case lexer.KwContinue:
		pos := p.next().Pos
		return &ast.ContinueStmt{ContinuePos: pos}, nil
	case lexer.Ident:
		return p.parseIdentLeadStmt()
	default:
		return nil, p.errorf(p.cur().Pos, "unexpected token %s at start of statement", p.cur().Kind)
	}
}

// parseIdentLeadStmt disambiguates "ident = expr", "ident += expr", and a
// bare expression statement starting with an identifier, since all three
// share the same leading token.
func (p *Parser) parseIdentLeadStmt() (ast.Stmt, error) {
	if p.peekAt(1).Kind == lexer.Assign {
		tgt := p.next()
		p.next() // consume '='
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{TargetPos: tgt.Pos, Target: tgt.Text, Op: "=", Value: val}, nil
	}
	if p.peekAt(1).Kind == lexer.PlusAssign {
		tgt := p.next()
		p.next() // consume '+='
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{TargetPos: tgt.Pos, Target: tgt.Text, Op: "+=", Value: val}, nil
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{X: x}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	ifPos := p.next().Pos // consume 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.endStmt(); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(lexer.KwElif, lexer.KwElse, lexer.KwEndif)
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{IfPos: ifPos, Branches: []ast.IfBranch{{Cond: cond, Body: body}}}
	for p.cur().Kind == lexer.KwElif {
		p.next()
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.endStmt(); err != nil {
			return nil, err
		}
		b, err := p.parseBlock(lexer.KwElif, lexer.KwElse, lexer.KwEndif)
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, ast.IfBranch{Cond: c, Body: b})
	}
	if p.cur().Kind == lexer.KwElse {
		p.next()
		if err := p.endStmt(); err != nil {
			return nil, err
		}
		b, err := p.parseBlock(lexer.KwEndif)
		if err != nil {
			return nil, err
		}
		stmt.Else = b
	}
	if _, err := p.expect(lexer.KwEndif); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseForeach() (ast.Stmt, error) {
	forPos := p.next().Pos // consume 'foreach'
	first, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	vars := []string{first.Text}
	if p.cur().Kind == lexer.Comma {
		p.next()
		second, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		vars = append(vars, second.Text)
	}
	if _, err := p.expect(lexer.Colon); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.endStmt(); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(lexer.KwEndforeach)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwEndforeach); err != nil {
		return nil, err
	}
	return &ast.ForeachStmt{ForeachPos: forPos, Vars: vars, Iterable: iterable, Body: body}, nil
}

// --- Expressions ---
//
// Precedence, lowest to highest:
//   ternary (right-assoc)
//   or
//   and
//   not (unary)
//   comparison (==, !=, <, <=, >, >=, in)   (non-associative in practice, left-assoc here)
//   additive (+, -)
//   multiplicative (*, %, /)
//   unary minus
//   postfix (call, method call, index)
//   primary

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseTernary()
}

func (p *Parser) parseTernary() (ast.Expr, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.Question {
		qpos := p.next().Pos
		then, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		els, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		return &ast.TernaryExpr{QuestionPos: qpos, Cond: cond, Then: then, Else: els}, nil
	}
	return cond, nil
}

func (p *Parser) parseOr() (ast.Expr, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.KwOr {
		opPos := p.next().Pos
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{OpPos: opPos, Op: "or", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.KwAnd {
		opPos := p.next().Pos
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{OpPos: opPos, Op: "and", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.cur().Kind == lexer.KwNot {
		opPos := p.next().Pos
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{OpPos: opPos, Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[lexer.Kind]string{
	lexer.Eq:  "==",
	lexer.Neq: "!=",
	lexer.Lt:  "<",
	lexer.Lte: "<=",
	lexer.Gt:  ">",
	lexer.Gte: ">=",
	lexer.KwIn: "in",
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	x, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.cur().Kind]
		if !ok {
			break
		}
		opPos := p.next().Pos
		y, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{OpPos: opPos, Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	x, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Plus || p.cur().Kind == lexer.Minus {
		op := "+"
		if p.cur().Kind == lexer.Minus {
			op = "-"
		}
		opPos := p.next().Pos
		y, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{OpPos: opPos, Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atKind(lexer.Star, lexer.Slash, lexer.Percent) {
		op := p.cur().Text
		opPos := p.next().Pos
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{OpPos: opPos, Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.cur().Kind == lexer.Minus {
		opPos := p.next().Pos
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{OpPos: opPos, Op: "-", X: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles the trailing chain of "[index]" and ".name(args)"
// applied to a primary expression. The chain is applied left to right, so a
// method call binds tighter than an index that follows it: "a.b(0)[1].c()"
// builds up a MethodCallExpr / IndexExpr chain outside-in as written.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case lexer.LBracket:
			lb := p.next().Pos
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBracket); err != nil {
				return nil, err
			}
			x = &ast.IndexExpr{LBracketPos: lb, X: x, Index: idx}
		case lexer.Dot:
			dotPos := p.next().Pos
			name, err := p.expect(lexer.Ident)
			if err != nil {
				return nil, err
			}
			if p.cur().Kind != lexer.LParen {
				return nil, p.errorf(p.cur().Pos, "expected '(' after method name %q", name.Text)
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &ast.MethodCallExpr{DotPos: dotPos, Recv: x, Name: name.Text, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Int, lexer.Bool, lexer.Str, lexer.StrRaw, lexer.FStr:
		p.next()
		return &ast.Literal{LitPos: tok.Pos, Kind: tok.Kind, Value: tok.Value}, nil
	case lexer.Ident:
		if p.peekAt(1).Kind == lexer.LParen {
			p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{CallPos: tok.Pos, Name: tok.Text, Args: args}, nil
		}
		p.next()
		return &ast.Ident{IdentPos: tok.Pos, Name: tok.Text}, nil
	case lexer.LParen:
		p.next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return x, nil
	case lexer.LBracket:
		return p.parseArrayLit()
	case lexer.LBrace:
		return p.parseDictLit()
	default:
		return nil, p.errorf(tok.Pos, "unexpected token %s in expression", tok.Kind)
	}
}

// parseArgs parses a parenthesized, comma-separated argument list (allowing
// a trailing comma) where each argument is either positional or
// "name: value".
func (p *Parser) parseArgs() ([]ast.Arg, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var args []ast.Arg
	p.skipNewlines()
	for p.cur().Kind != lexer.RParen {
		if p.cur().Kind == lexer.Ident && p.peekAt(1).Kind == lexer.Colon {
			name := p.next().Text
			p.next() // consume ':'
			p.skipNewlines()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, ast.Arg{Name: name, Value: v})
		} else {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, ast.Arg{Value: v})
		}
		p.skipNewlines()
		if p.cur().Kind == lexer.Comma {
			p.next()
			p.skipNewlines()
			continue
		}
		break
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseArrayLit() (ast.Expr, error) {
	lb, err := p.expect(lexer.LBracket)
	if err != nil {
		return nil, err
	}
	lit := &ast.ArrayLit{LBracketPos: lb.Pos}
	p.skipNewlines()
	for p.cur().Kind != lexer.RBracket {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Elems = append(lit.Elems, e)
		p.skipNewlines()
		if p.cur().Kind == lexer.Comma {
			p.next()
			p.skipNewlines()
			continue
		}
		break
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseDictLit() (ast.Expr, error) {
	lb, err := p.expect(lexer.LBrace)
	if err != nil {
		return nil, err
	}
	lit := &ast.DictLit{LBracePos: lb.Pos}
	p.skipNewlines()
	for p.cur().Kind != lexer.RBrace {
		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		p.skipNewlines()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Keys = append(lit.Keys, k)
		lit.Values = append(lit.Values, v)
		p.skipNewlines()
		if p.cur().Kind == lexer.Comma {
			p.next()
			p.skipNewlines()
			continue
		}
		break
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return lit, nil
}
