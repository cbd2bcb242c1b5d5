// Package signature authenticates webhook deliveries signed with HMAC-SHA256
// in the X-Hub-Signature-256 header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	HeaderName = "X-Hub-Signature-256"
	prefix     = "sha256="
)

var (
	ErrUnknownSecret      = errors.New("signature: no secret configured for this route")
	ErrMissingSignature   = errors.New("signature: header missing")
	ErrMalformedSignature = errors.New("signature: header malformed")
	ErrSignatureMismatch  = errors.New("signature: mismatch")
)

// Verify checks header against an HMAC-SHA256 of the exact raw body. The
// returned errors never include the expected digest.
func Verify(secret string, body []byte, header string) error {
	if secret == "" {
		return ErrUnknownSecret
	}
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, prefix) {
		return ErrMalformedSignature
	}

	claimed, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil || len(claimed) != sha256.Size {
		return ErrMalformedSignature
	}

	if subtle.ConstantTimeCompare(digest(secret, body), claimed) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign returns the header value a sender would attach to body.
func Sign(secret string, body []byte) string {
	return prefix + hex.EncodeToString(digest(secret, body))
}

func digest(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
