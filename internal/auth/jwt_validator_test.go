package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func buildToken(t *testing.T, mutate func(b *jwt.Builder) *jwt.Builder, now time.Time) jwt.Token {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer("https://auth.fruit.test").
		Audience([]string{"authenticated"}).
		Subject("user-1").
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Hour))
	if mutate != nil {
		b = mutate(b)
	}
	tok, err := b.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return tok
}

func TestTokenValidatorValidate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	validator := TokenValidator{
		Issuer:    "https://auth.fruit.test",
		Audience:  "authenticated",
		ClockSkew: time.Second,
		Algorithm: jwa.HS256,
	}

	cases := []struct {
		name    string
		mutate  func(b *jwt.Builder) *jwt.Builder
		alg     jwa.SignatureAlgorithm
		wantErr bool
	}{
		{name: "valid", alg: jwa.HS256},
		{name: "issuer mismatch", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder {
			return b.Issuer("https://elsewhere.test")
		}},
		{name: "audience mismatch", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder {
			return b.Audience([]string{"anon"})
		}},
		{name: "expired", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder {
			return b.Expiration(now.Add(-time.Minute))
		}},
		{name: "not yet valid", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder {
			return b.NotBefore(now.Add(5 * time.Minute))
		}},
		{name: "missing subject", alg: jwa.HS256, wantErr: true, mutate: func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("")
		}},
		{name: "algorithm mismatch", alg: jwa.RS256, wantErr: true},
		{name: "missing algorithm", alg: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := buildToken(t, tc.mutate, now)
			err := validator.Validate(tok, tc.alg, now)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestTokenValidatorNilToken(t *testing.T) {
	if err := (TokenValidator{}).Validate(nil, jwa.HS256, time.Now()); err == nil {
		t.Fatal("expected error for nil token")
	}
}
