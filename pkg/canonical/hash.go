package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// LabelLength is the number of hex characters of a digest used as a lookup label.
const LabelLength = 16

var (
	hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)
	hexLabel  = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

// Digest is a SHA-256 content hash rendered as lowercase hex.
type Digest string

// Label returns the truncated form of the digest.
// It is a search key, not a security credential.
func (d Digest) Label() string {
	if len(d) < LabelLength {
		return string(d)
	}
	return string(d[:LabelLength])
}

func (d Digest) String() string {
	return string(d)
}

// Hash canonicalizes v and returns the SHA-256 digest of the result
// along with the canonical bytes.
func Hash(v any) (Digest, []byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", nil, err
	}
	return Sum(data), data, nil
}

// Sum returns the digest of already-canonical bytes.
func Sum(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// IsDigest reports whether s is a 64-character lowercase hex digest.
func IsDigest(s string) bool {
	return hexDigest.MatchString(s)
}

// IsLabel reports whether s is a 16-character lowercase hex label.
func IsLabel(s string) bool {
	return hexLabel.MatchString(s)
}
