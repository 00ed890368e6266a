// Package signature signs and verifies request bodies with HMAC-SHA256.
//
// Signatures travel as "sha256=<hex>" and always cover the raw body bytes
// exactly as transmitted.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// Header is the HTTP header carrying the body signature.
	Header = "X-Signature-256"
	// Prefix identifies the digest algorithm in the header value.
	Prefix = "sha256="

	digestHexLen = sha256.Size * 2
)

// Sign returns the header value for body under secret.
func Sign(secret, body []byte) string {
	return Prefix + hex.EncodeToString(compute(secret, body))
}

// Verify checks header against the HMAC of body under secret.
// The digest comparison runs in constant time.
func Verify(secret, body []byte, header string) error {
	if len(secret) == 0 {
		return ErrNoSecret
	}
	if header == "" {
		return ErrMissing
	}

	claimed, err := parse(header)
	if err != nil {
		return err
	}

	if !hmac.Equal(claimed, compute(secret, body)) {
		return ErrMismatch
	}
	return nil
}

func parse(header string) ([]byte, error) {
	digest, ok := strings.CutPrefix(header, Prefix)
	if !ok || len(digest) != digestHexLen {
		return nil, ErrMalformed
	}
	if strings.ToLower(digest) != digest {
		return nil, ErrMalformed
	}

	raw, err := hex.DecodeString(digest)
	if err != nil {
		return nil, ErrMalformed
	}
	return raw, nil
}

func compute(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
