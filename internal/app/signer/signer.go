// Package signer computes and checks the HMAC signatures trusted callers attach
// to link creation requests.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Params are the signed fields of a link creation request.
type Params struct {
	PaymentID string
	OSType    string
	IsWebView bool
}

// Canonical renders params as "paymentId|osType|isWebView".
func (p Params) Canonical() string {
	var b strings.Builder
	b.Grow(len(p.PaymentID) + len(p.OSType) + 8)
	b.WriteString(p.PaymentID)
	b.WriteByte('|')
	b.WriteString(p.OSType)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(p.IsWebView))
	return b.String()
}

// Signer holds the secret shared with the request originator.
type Signer struct {
	secret []byte
}

// New returns a signer keyed with secret.
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA256 of the canonical form of p.
func (s *Signer) Sign(p Params) string {
	return s.sign([]byte(p.Canonical()))
}

// Verify reports whether signature is exactly the signature of p.
// The comparison is case-sensitive and runs in constant time.
func (s *Signer) Verify(p Params, signature string) bool {
	if signature == "" {
		return false
	}
	expected := s.Sign(p)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Signer) sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
