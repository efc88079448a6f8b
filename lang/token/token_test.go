package token_test

import (
	"testing"

	"github.com/hearthlang/mire/lang/token"
	"github.com/stretchr/testify/assert"
)

func TestLookupKeyword(t *testing.T) {
	assert.Equal(t, token.WHILE, token.LookupKeyword("while"))
	assert.Equal(t, token.IDENT, token.LookupKeyword("whilee"))
	assert.Equal(t, token.IDENT, token.LookupKeyword(""))
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "while", token.WHILE.String())
	assert.Equal(t, "identifier", token.IDENT.String())
	assert.Equal(t, "illegal token", token.Token(127).String())
}
