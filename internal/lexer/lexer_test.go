package lexer

import "testing"

func kinds(t *testing.T, src string) []Kind {
	t.Helper()
	toks, err := New("test.mbs", src).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q): unexpected error: %v", src, err)
	}
	var ks []Kind
	for _, tok := range toks {
		ks = append(ks, tok.Kind)
	}
	return ks
}

func assertKinds(t *testing.T, got []Kind, want ...Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestIdentifiersAndKeywords(t *testing.T) {
	got := kinds(t, "foo if bar_2 endforeach")
	assertKinds(t, got, Ident, KwIf, Ident, KwEndforeach, EOF)
}

func TestIntLiterals(t *testing.T) {
	toks, err := New("t.mbs", "10 0x1A 0o17 0b101").Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{10, 0x1A, 017, 0b101}
	for i, w := range want {
		if toks[i].Kind != Int {
			t.Fatalf("token %d: got kind %v, want Int", i, toks[i].Kind)
		}
		if toks[i].Value.(int64) != w {
			t.Fatalf("token %d: got %v, want %d", i, toks[i].Value, w)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := New("t.mbs", `'a\nb\t\'\\c'`).Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	want := "a\nb\t'\\c"
	if toks[0].Value.(string) != want {
		t.Fatalf("got %q, want %q", toks[0].Value, want)
	}
}

func TestHexUnicodeEscapes(t *testing.T) {
	toks, err := New("t.mbs", `'\x41B\U00000043'`).Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Value.(string) != "ABC" {
		t.Fatalf("got %q, want ABC", toks[0].Value)
	}
}

func TestInvalidEscape(t *testing.T) {
	_, err := New("t.mbs", `'\q'`).Tokenize()
	if err == nil {
		t.Fatal("expected error for invalid escape")
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := New("t.mbs", `'abc`).Tokenize()
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestTripleQuotedPreservesNewlinesNoEscapes(t *testing.T) {
	toks, err := New("t.mbs", "'''line1\\nline2\nliteral'''").Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != StrRaw {
		t.Fatalf("got kind %v, want StrRaw", toks[0].Kind)
	}
	want := "line1\\nline2\nliteral"
	if toks[0].Value.(string) != want {
		t.Fatalf("got %q, want %q", toks[0].Value, want)
	}
}

func TestFString(t *testing.T) {
	toks, err := New("t.mbs", "f'hello @name@'").Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != FStr {
		t.Fatalf("got kind %v, want FStr", toks[0].Kind)
	}
	if toks[0].Value.(string) != "hello @name@" {
		t.Fatalf("got %q", toks[0].Value)
	}
}

func TestNewlineSignificantOutsideBrackets(t *testing.T) {
	got := kinds(t, "a = 1\nb = 2")
	assertKinds(t, got, Ident, Assign, Int, Newline, Ident, Assign, Int, EOF)
}

func TestNewlineSuppressedInsideBrackets(t *testing.T) {
	got := kinds(t, "foo(\n1,\n2\n)")
	assertKinds(t, got, Ident, LParen, Int, Comma, Int, RParen, EOF)
}

func TestLineContinuation(t *testing.T) {
	got := kinds(t, "a = 1 + \\\n2")
	assertKinds(t, got, Ident, Assign, Int, Plus, Int, EOF)
}

func TestLineComment(t *testing.T) {
	got := kinds(t, "a = 1 # comment here\nb")
	assertKinds(t, got, Ident, Assign, Int, Newline, Ident, EOF)
}

func TestOperators(t *testing.T) {
	got := kinds(t, "== != <= >= < > + - * / % ?")
	assertKinds(t, got, Eq, Neq, Lte, Gte, Lt, Gt, Plus, Minus, Star, Slash, Percent, Question, EOF)
}

func TestAugmentedAssign(t *testing.T) {
	got := kinds(t, "x += 1")
	assertKinds(t, got, Ident, PlusAssign, Int, EOF)
}

func TestBoolLiterals(t *testing.T) {
	toks, err := New("t.mbs", "true false").Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Value.(bool) != true || toks[1].Value.(bool) != false {
		t.Fatalf("got %v %v", toks[0].Value, toks[1].Value)
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	_, err := New("t.mbs", "a $ b").Tokenize()
	if err == nil {
		t.Fatal("expected error for unexpected character")
	}
}

func TestPositionTracking(t *testing.T) {
	toks, err := New("t.mbs", "a\nb").Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Pos.Line != 1 || toks[2].Pos.Line != 2 {
		t.Fatalf("unexpected positions: %+v %+v", toks[0].Pos, toks[2].Pos)
	}
}
