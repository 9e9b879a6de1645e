package lex

import "testing"

func tokenTypes(toks []Token) []Type {
	out := make([]Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func assertTypes(t *testing.T, got []Token, want ...Type) {
	t.Helper()
	gotTypes := tokenTypes(got)
	if len(gotTypes) != len(want) {
		t.Fatalf("token count = %d (%v), want %d (%v)", len(gotTypes), gotTypes, len(want), want)
	}
	for i, w := range want {
		if gotTypes[i] != w {
			t.Errorf("token[%d].Type = %s, want %s (tokens: %+v)", i, gotTypes[i], w, got)
		}
	}
}

func TestTokenizeSimpleArithmetic(t *testing.T) {
	got := New("1+2*3").Tokenize()
	assertTypes(t, got, NUMBER, OP, NUMBER, OP, NUMBER)
}

func TestTokenizeStringLiteralWithEscapedQuote(t *testing.T) {
	got := New(`"he said ""hi"""`).Tokenize()
	assertTypes(t, got, STRING)
	if got[0].Value != `he said "hi"` {
		t.Errorf("Value = %q, want %q", got[0].Value, `he said "hi"`)
	}
}

func TestTokenizeErrorLiteral(t *testing.T) {
	got := New(`A1+#DIV/0!`).Tokenize()
	assertTypes(t, got, CELL_REF, OP, ERROR)
}

func TestTokenizeCellRef(t *testing.T) {
	got := New("A1").Tokenize()
	assertTypes(t, got, CELL_REF)
	if got[0].Value != "A1" {
		t.Errorf("Value = %q, want %q", got[0].Value, "A1")
	}
}

func TestTokenizeRangeRef(t *testing.T) {
	got := New("A1:B2").Tokenize()
	assertTypes(t, got, RANGE_REF)
	if got[0].Value != "A1:B2" {
		t.Errorf("Value = %q, want %q", got[0].Value, "A1:B2")
	}
}

func TestTokenizeSheetQualifiedCellRef(t *testing.T) {
	got := New("Sheet1!A1").Tokenize()
	assertTypes(t, got, CELL_REF)
	if got[0].Value != "Sheet1!A1" {
		t.Errorf("Value = %q, want %q", got[0].Value, "Sheet1!A1")
	}
}

func TestTokenizeQuotedSheetQualifiedRange(t *testing.T) {
	got := New("'My Sheet'!A1:B2").Tokenize()
	assertTypes(t, got, RANGE_REF)
	if got[0].Value != "My Sheet!A1:B2" {
		t.Errorf("Value = %q, want %q", got[0].Value, "My Sheet!A1:B2")
	}
}

func TestTokenizeFunctionCall(t *testing.T) {
	got := New("SUM(A1:A10,B1)").Tokenize()
	assertTypes(t, got, FUNC, LPAREN, RANGE_REF, COMMA, CELL_REF, RPAREN)
}

func TestTokenizeNestedFunctionCalls(t *testing.T) {
	got := New("IF(A1>0,SUM(B1:B2),0)").Tokenize()
	assertTypes(t, got,
		FUNC, LPAREN, CELL_REF, OP, NUMBER, COMMA,
		FUNC, LPAREN, RANGE_REF, RPAREN, COMMA, NUMBER, RPAREN)
}

func TestTokenizeIdentifierAsName(t *testing.T) {
	got := New("MyNamedRange").Tokenize()
	assertTypes(t, got, NAME)
}

func TestTokenizeBooleanLiterals(t *testing.T) {
	got := New("TRUE+FALSE").Tokenize()
	assertTypes(t, got, BOOL, OP, BOOL)
}

func TestTokenizeMultiCharOperators(t *testing.T) {
	got := New("A1<>B1").Tokenize()
	assertTypes(t, got, CELL_REF, OP, CELL_REF)
	if got[1].Value != "<>" {
		t.Errorf("Value = %q, want %q", got[1].Value, "<>")
	}
}

func TestTokenizeWhitespaceDropped(t *testing.T) {
	got := New("A1 + B1").Tokenize()
	assertTypes(t, got, CELL_REF, OP, CELL_REF)
}

func TestTokenizeNumberScientificNotation(t *testing.T) {
	got := New("1.5e10").Tokenize()
	assertTypes(t, got, NUMBER)
	if got[0].Value != "1.5e10" {
		t.Errorf("Value = %q, want %q", got[0].Value, "1.5e10")
	}
}

func TestTokenizeErrorRecoveryResumesAtNextComma(t *testing.T) {
	// "@" is not a valid token anywhere in the grammar; the lexer should
	// recover and keep extracting references after it.
	got := New("SUM(@,B1)").Tokenize()
	assertTypes(t, got, FUNC, LPAREN, ERROR_TOKEN, COMMA, CELL_REF, RPAREN)
}

func TestTokenizeErrorRecoveryResumesAtNextRParen(t *testing.T) {
	got := New("SUM(@)+B1").Tokenize()
	assertTypes(t, got, FUNC, LPAREN, ERROR_TOKEN, RPAREN, OP, CELL_REF)
}

func TestTokenizeUnclosedStringIsErrorToken(t *testing.T) {
	got := New(`"unterminated`).Tokenize()
	assertTypes(t, got, ERROR_TOKEN)
}

func TestTokenizeAbsoluteMarkersPreservedInValue(t *testing.T) {
	got := New("$A$1").Tokenize()
	assertTypes(t, got, CELL_REF)
	if got[0].Value != "$A$1" {
		t.Errorf("Value = %q, want %q", got[0].Value, "$A$1")
	}
}

func TestTokenizeBracesForArrayLiteral(t *testing.T) {
	got := New("{1,2,3}").Tokenize()
	assertTypes(t, got, LBRACE, NUMBER, COMMA, NUMBER, COMMA, NUMBER, RBRACE)
}

func TestTokenizePositionsTrackOriginalOffsets(t *testing.T) {
	got := New("A1+B2").Tokenize()
	want := []int{0, 2, 3}
	for i, w := range want {
		if got[i].Pos != w {
			t.Errorf("token[%d].Pos = %d, want %d", i, got[i].Pos, w)
		}
	}
}
