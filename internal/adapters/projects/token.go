package projects

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	perr "litscreen/internal/platform/errors"
)

// Signer mints and checks bearer tokens of the form <userID>.<hex hmac-sha256>
type Signer struct {
	secret []byte
}

// NewSigner panics on an empty secret
func NewSigner(secret string) *Signer {
	if secret == "" {
		panic("projects.NewSigner requires a secret")
	}
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) mac(userID string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(userID))
	return hex.EncodeToString(m.Sum(nil))
}

// Sign returns a token for userID
func (s *Signer) Sign(userID string) string { return userID + "." + s.mac(userID) }

// Verify returns the user a token was signed for
func (s *Signer) Verify(token string) (string, error) {
	i := strings.LastIndexByte(token, '.')
	if i <= 0 || i == len(token)-1 {
		return "", perr.Unauthorizedf("malformed token")
	}
	user, sig := token[:i], token[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(user))) {
		return "", perr.Unauthorizedf("bad token signature")
	}
	return user, nil
}
