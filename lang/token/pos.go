package token

// Pos is a 1-based source line number. mire's diagnostics are line-grained
// only (spec's "[line N]" format never needs a column), so unlike the
// teacher's packed line/column Pos, this is a plain counter.
type Pos int

// NoPos means "unknown position".
const NoPos Pos = 0

// Value carries a scanned token's kind-independent payload: its lexeme and
// source position, plus the decoded literal when the token is a NUMBER or
// STRING.
type Value struct {
	Lexeme string
	Pos    Pos

	Number float64 // valid when Token == NUMBER
	Str    string  // valid when Token == STRING (decoded, unquoted)
}
