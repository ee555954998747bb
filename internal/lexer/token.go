// Package lexer tokenizes mbs project-description source text (§4.1).
package lexer

import "fmt"

// Position identifies a point in a source file. It is attached to every
// token and, via the AST, to every diagnostic.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Kind discriminates a Token's syntactic category.
type Kind int

const (
	EOF Kind = iota
	Newline

	Ident
	Int
	Str       // single-quoted string, escapes already processed
	StrRaw    // triple-quoted string, no escape processing
	FStr      // f'...' string; Value holds @name@ placeholders intact
	Bool

	// Structural punctuation
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Colon
	Dot
	Assign    // =
	PlusAssign // +=

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	Eq
	Neq
	Lt
	Lte
	Gt
	Gte
	Question

	// Keywords
	KwIf
	KwElif
	KwElse
	KwEndif
	KwForeach
	KwEndforeach
	KwAnd
	KwOr
	KwNot
	KwIn
	KwContinue
	KwBreak
)

var keywords = map[string]Kind{
	"if":        KwIf,
	"elif":      KwElif,
	"else":      KwElse,
	"endif":     KwEndif,
	"foreach":   KwForeach,
	"endforeach": KwEndforeach,
	"and":       KwAnd,
	"or":        KwOr,
	"not":       KwNot,
	"in":        KwIn,
	"continue":  KwContinue,
	"break":     KwBreak,
	"true":      Bool,
	"false":     Bool,
}

// Token is one lexical unit: its Kind, source text/decoded value, and
// Position.
type Token struct {
	Kind Kind
	Text string // raw source text (identifier name, operator spelling, ...)
	// Value holds the decoded literal for Int/Str/StrRaw/FStr/Bool tokens:
	// an int64, a string, or a bool respectively.
	Value interface{}
	Pos   Position
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Newline:
		return "NEWLINE"
	case Ident:
		return "IDENT"
	case Int:
		return "INT"
	case Str:
		return "STRING"
	case StrRaw:
		return "STRING(raw)"
	case FStr:
		return "FSTRING"
	case Bool:
		return "BOOL"
	case LParen:
		return "("
	case RParen:
		return ")"
	case LBracket:
		return "["
	case RBracket:
		return "]"
	case LBrace:
		return "{"
	case RBrace:
		return "}"
	case Comma:
		return ","
	case Colon:
		return ":"
	case Dot:
		return "."
	case Assign:
		return "="
	case PlusAssign:
		return "+="
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Star:
		return "*"
	case Slash:
		return "/"
	case Percent:
		return "%"
	case Eq:
		return "=="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	case Question:
		return "?"
	default:
		for text, kind := range keywords {
			if kind == k {
				return text
			}
		}
		return "?"
	}
}
