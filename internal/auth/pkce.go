package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/desertthunder/spx/internal/shared"
)

const (
	// VerifierLength is the number of characters in a generated code verifier.
	VerifierLength = 96

	// MinVerifierLength and MaxVerifierLength bound a valid verifier (RFC 7636 §4.1).
	MinVerifierLength = 43
	MaxVerifierLength = 128

	stateBytes = 16

	// unreserved characters allowed in a verifier
	verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
)

// randReader is the secure random source. Tests swap it to simulate failure.
var randReader io.Reader = rand.Reader

// GenerateVerifier returns a fresh code verifier of [VerifierLength] characters from the unreserved set.
//
// Bytes that would bias the distribution are rejected and redrawn.
func GenerateVerifier() (string, error) {
	// Largest multiple of the charset size below 256.
	limit := byte(256 - 256%len(verifierCharset))

	out := make([]byte, 0, VerifierLength)
	buf := make([]byte, VerifierLength)

	for len(out) < VerifierLength {
		if _, err := io.ReadFull(randReader, buf); err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrCryptoUnavailable, err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, verifierCharset[int(b)%len(verifierCharset)])
			if len(out) == VerifierLength {
				break
			}
		}
	}

	return string(out), nil
}

// Challenge derives the S256 code challenge: unpadded base64url of SHA-256 over the verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyChallenge reports whether challenge was derived from verifier.
func VerifyChallenge(challenge, verifier string) bool {
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(Challenge(verifier))) == 1
}

// GenerateState returns a hex-encoded anti-forgery nonce.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrCryptoUnavailable, err)
	}
	return hex.EncodeToString(b), nil
}

// ValidVerifier reports whether v has a legal length and only unreserved characters.
func ValidVerifier(v string) bool {
	if len(v) < MinVerifierLength || len(v) > MaxVerifierLength {
		return false
	}
	for i := 0; i < len(v); i++ {
		if !isUnreserved(v[i]) {
			return false
		}
	}
	return true
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
