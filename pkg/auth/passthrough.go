package auth

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

// PassthroughBackend forwards a token the caller already holds.
type PassthroughBackend struct{}

// NewPassthroughBackend creates a passthrough backend.
func NewPassthroughBackend() *PassthroughBackend {
	return &PassthroughBackend{}
}

// Mode implements Backend.
func (*PassthroughBackend) Mode() Mode {
	return ModeExternal
}

// Acquire returns assertion unchanged. The expiry is taken from the token
// when it is a JWT.
func (*PassthroughBackend) Acquire(_ context.Context, assertion string) (*oauth2.Token, error) {
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return nil, authErr(ModeExternal, "passthrough", ErrMissingAssertion)
	}

	tok := &oauth2.Token{AccessToken: assertion, TokenType: tokenTypeBearer}
	if id, ok := InspectToken(assertion); ok {
		tok.Expiry = id.Expiry
	}
	return tok, nil
}

var _ Backend = (*PassthroughBackend)(nil)
