package auth

import (
	"net/http"
	"strings"

	"github.com/compressly/compressly/config"
)

// Provider supplies the signed-in user identity for a request. The service
// never validates credentials beyond this boundary; the identity is an
// opaque string.
type Provider interface {
	Identify(r *http.Request) (userID string, signedIn bool)
}

// TokenProvider resolves opaque bearer tokens against a configured
// token-to-identity map.
type TokenProvider struct {
	tokens map[string]string
}

func NewTokenProvider(cfg *config.AuthConfig) *TokenProvider {
	tokens := make(map[string]string, len(cfg.Tokens))
	for token, userID := range cfg.Tokens {
		tokens[token] = userID
	}
	return &TokenProvider{tokens: tokens}
}

// Identify resolves the Authorization bearer token to a user identity.
func (p *TokenProvider) Identify(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}

	userID, ok := p.tokens[token]
	if !ok {
		return "", false
	}
	return userID, true
}
