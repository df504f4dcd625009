package identity

import (
	"context"
	"errors"

	"github.com/hqv2016/invorder/internal/port"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// StaticGate maps pre-shared bearer tokens to caller identities. It stands
// in for the external identity provider; the core only needs an opaque
// caller ID per request.
type StaticGate struct {
	tokens map[string]string
}

func NewStaticGate(tokens map[string]string) *StaticGate {
	copied := make(map[string]string, len(tokens))
	for token, userID := range tokens {
		copied[token] = userID
	}
	return &StaticGate{tokens: copied}
}

var _ port.IdentityGate = (*StaticGate)(nil)

func (g *StaticGate) Authenticate(ctx context.Context, credential string) (string, error) {
	userID, ok := g.tokens[credential]
	if !ok {
		return "", ErrUnauthenticated
	}
	return userID, nil
}
