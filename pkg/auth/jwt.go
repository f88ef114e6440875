package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the session token payload. UserType and Role are empty for flows that do not set them.
type Claims struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	UserType string `json:"user_type,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what a token is minted for.
type Identity struct {
	ID       int64
	Email    string
	UserType string
	Role     string
}

type JWTService interface {
	Generate(id Identity, ttl time.Duration) (string, error)
	Validate(token string) (*Claims, error)
}

type hmacService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService signs and verifies HS256 tokens with a shared secret.
func NewJWTService(secret string) JWTService {
	return &hmacService{secret: []byte(secret), now: time.Now}
}

func (s *hmacService) Generate(id Identity, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrTokenInvalid
	}
	now := s.now().UTC()
	claims := Claims{
		ID:       id.ID,
		Email:    id.Email,
		UserType: id.UserType,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *hmacService) Validate(token string) (*Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(token) == "" {
		return nil, ErrTokenInvalid
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.ID == 0 || claims.Email == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
