package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateValidate(t *testing.T) {
	svc := NewJWTService("secret")

	token, err := svc.Generate(Identity{ID: 7, Email: "doc@example.com", UserType: "doctor"}, 24*time.Hour)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.ID)
	assert.Equal(t, "doc@example.com", claims.Email)
	assert.Equal(t, "doctor", claims.UserType)
	assert.Empty(t, claims.Role)

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp.Time, 5*time.Second)
}

func TestJWTService_Expired(t *testing.T) {
	svc := &hmacService{secret: []byte("secret"), now: time.Now}
	token, err := svc.Generate(Identity{ID: 1, Email: "a@b.c"}, time.Hour)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	token, err := NewJWTService("other").Generate(Identity{ID: 1, Email: "a@b.c"}, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTService("secret").Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_RejectsNoneAlg(t *testing.T) {
	claims := Claims{ID: 1, Email: "a@b.c", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("secret").Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_EmptySecret(t *testing.T) {
	_, err := NewJWTService("").Generate(Identity{ID: 1, Email: "a@b.c"}, time.Hour)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
