package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken(userID, "sess-1", "alice", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID || claims.SessionID != "sess-1" || claims.Username != "alice" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

// tamper flips the first character of the signature.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	c := byte('A')
	if token[i] == 'A' {
		c = 'B'
	}
	return token[:i] + string(c) + token[i+1:]
}

func TestParseRejectsBadTokens(t *testing.T) {
	userID := uuid.New()

	expired, err := GenerateToken(userID, "s", "alice", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}
	good, err := GenerateToken(userID, "s", "alice", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	noSession, err := GenerateToken(userID, "", "alice", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate without session: %v", err)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:    userID,
		SessionID: "s",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	cases := map[string]struct {
		token  string
		secret string
	}{
		"expired":      {expired, testSecret},
		"wrong secret": {good, "other"},
		"alg none":     {none, testSecret},
		"no session":   {noSession, testSecret},
		"garbage":      {"not.a.jwt", testSecret},
		"tampered":     {tamper(good), testSecret},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseToken(tc.token, tc.secret); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
