package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	// Length is the number of decimal digits in a code.
	Length = 6
	// TTL is fixed: a code is valid up to and including issuance time plus five minutes.
	TTL = 5 * time.Minute
)

var codeSpace = big.NewInt(1_000_000)

// Code is an issued one-time password and the last instant it is accepted.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether at is strictly after the expiry instant.
func (c Code) Expired(at time.Time) bool {
	return at.After(c.ExpiresAt)
}

type Issuer struct {
	random io.Reader
	now    func() time.Time
}

// NewIssuer draws codes from crypto/rand and stamps them with now.
func NewIssuer(now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{random: rand.Reader, now: now}
}

// Issue returns a zero-padded six digit code expiring TTL from now.
func (i *Issuer) Issue() (Code, error) {
	n, err := rand.Int(i.random, codeSpace)
	if err != nil {
		return Code{}, fmt.Errorf("failed to generate otp: %w", err)
	}
	return Code{
		Value:     fmt.Sprintf("%0*d", Length, n.Int64()),
		ExpiresAt: i.now().Add(TTL).UTC().Truncate(time.Microsecond),
	}, nil
}
