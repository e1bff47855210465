package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// DefaultVerifierLength is the verifier length used when none is given.
	DefaultVerifierLength = 64

	minVerifierLength = 43
	maxVerifierLength = 128

	// unreservedChars is the RFC 7636 code verifier alphabet.
	unreservedChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
)

// PKCECodes holds a PKCE code verifier and its derived challenge.
// The verifier is only ever sent on the final token exchange; the challenge
// goes out with the initial authorization redirect.
type PKCECodes struct {
	CodeVerifier  string
	CodeChallenge string
}

// Method returns the code challenge method, always S256.
func (p *PKCECodes) Method() string {
	return "S256"
}

// GeneratePKCECodes generates a PKCE code verifier and challenge pair
// following RFC 7636 specifications for OAuth 2.0 PKCE extension.
func GeneratePKCECodes() (*PKCECodes, error) {
	return GeneratePKCECodesLength(DefaultVerifierLength)
}

// GeneratePKCECodesLength generates a PKCE pair with a verifier of the given
// length, which must be between 43 and 128 characters.
func GeneratePKCECodesLength(length int) (*PKCECodes, error) {
	codeVerifier, err := generateCodeVerifier(length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: generateCodeChallenge(codeVerifier),
	}, nil
}

// generateCodeVerifier draws a uniformly random string of the given length
// from the unreserved character set using a cryptographically secure source.
func generateCodeVerifier(length int) (string, error) {
	if length < minVerifierLength || length > maxVerifierLength {
		return "", fmt.Errorf("verifier length must be between %d and %d characters, got %d", minVerifierLength, maxVerifierLength, length)
	}

	// Rejection sampling keeps the draw uniform: 256 is not a multiple of
	// the 66-character alphabet, so bytes past the largest multiple are
	// discarded instead of folded in.
	limit := byte(256 - 256%len(unreservedChars))
	verifier := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(verifier) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			verifier = append(verifier, unreservedChars[int(b)%len(unreservedChars)])
			if len(verifier) == length {
				break
			}
		}
	}
	return string(verifier), nil
}

// generateCodeChallenge creates a SHA256 hash of the code verifier and
// encodes it using URL-safe base64 encoding without padding.
func generateCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
