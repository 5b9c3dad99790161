package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/compressly/compressly/config"
	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	provider := NewTokenProvider(&config.AuthConfig{
		Tokens: map[string]string{"secret-token": "user-1"},
	})

	tests := []struct {
		name       string
		authHeader string
		wantUser   string
		wantSigned bool
	}{
		{name: "valid token", authHeader: "Bearer secret-token", wantUser: "user-1", wantSigned: true},
		{name: "unknown token", authHeader: "Bearer wrong-token"},
		{name: "missing header"},
		{name: "empty token", authHeader: "Bearer "},
		{name: "wrong scheme", authHeader: "Basic secret-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}

			userID, signedIn := provider.Identify(r)
			assert.Equal(t, tt.wantSigned, signedIn)
			assert.Equal(t, tt.wantUser, userID)
		})
	}
}
