package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func newTestService(secret string, now func() time.Time) *hmacJWTService {
	return &hmacJWTService{
		signingKey: []byte(secret),
		timeFunc:   now,
		clockSkew:  defaultClockSkew,
	}
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService("short")
	assert.ErrorIs(t, err, ErrWeakSecret)

	svc, err := NewJWTService(testSecret)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(testSecret, func() time.Time { return fixed })

	token, err := svc.GenerateToken(context.Background(), "ada@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, fixed.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixed.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), "", "", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestValidateToken_Failures(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestService(testSecret, func() time.Time { return issued })
	token, err := issuer.GenerateToken(context.Background(), "ada@example.com", "", time.Hour)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ada@example.com"})
	noExpToken, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": issued.Add(time.Hour).Unix()})
	noSubToken, err := noSub.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		now     time.Time
		token   string
		wantErr error
	}{
		{"expired beyond skew", testSecret, issued.Add(time.Hour + 3*time.Minute), token, ErrExpiredToken},
		{"expired within skew", testSecret, issued.Add(time.Hour + time.Minute), token, nil},
		{"not yet valid", testSecret, issued.Add(-10 * time.Minute), token, ErrTokenNotYetValid},
		{"wrong secret", "wrong-secret-that-is-long-enough-for-testing", issued, token, ErrInvalidToken},
		{"malformed", testSecret, issued, "not.a.token", ErrInvalidToken},
		{"missing expiry", testSecret, issued, noExpToken, ErrInvalidToken},
		{"missing subject", testSecret, issued, noSubToken, ErrMissingSubject},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			now := tc.now
			svc := newTestService(tc.secret, func() time.Time { return now })
			_, err := svc.ValidateToken(context.Background(), tc.token)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "ada@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	svc := newTestService(testSecret, time.Now)
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_CanAccess(t *testing.T) {
	t.Parallel()

	user := &Claims{Subject: "ada@example.com"}
	admin := &Claims{Subject: "ops@example.com", Role: RoleAdmin}
	var none *Claims

	assert.True(t, user.CanAccess("ada@example.com"))
	assert.False(t, user.CanAccess("bob@example.com"))
	assert.True(t, admin.CanAccess("bob@example.com"))
	assert.False(t, none.CanAccess("ada@example.com"))
	assert.False(t, none.IsAdmin())
}
