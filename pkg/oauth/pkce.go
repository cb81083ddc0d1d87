package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes provides 256 bits of entropy, which is recommended for security.
	pkceVerifierBytes = 32

	// MethodS256 hashes the verifier with SHA-256 before sending it.
	MethodS256 = "S256"

	// MethodPlain sends the verifier itself as the challenge. Only for
	// servers that do not support S256.
	MethodPlain = "plain"
)

// PKCEChallenge holds the verifier/challenge pair for one authorization
// round trip.
type PKCEChallenge struct {
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and challenge.
// The code verifier is 32 random bytes (256 bits), base64url-encoded.
// An empty method defaults to S256.
//
// Returns a PKCEChallenge ready for use in an authorization request.
func GeneratePKCE(method string) (*PKCEChallenge, error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	// Base64url-encode the verifier (no padding, URL-safe)
	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	switch method {
	case "", MethodS256:
		hash := sha256.Sum256([]byte(verifier))
		return &PKCEChallenge{
			CodeVerifier:        verifier,
			CodeChallenge:       base64.RawURLEncoding.EncodeToString(hash[:]),
			CodeChallengeMethod: MethodS256,
		}, nil
	case MethodPlain:
		return &PKCEChallenge{
			CodeVerifier:        verifier,
			CodeChallenge:       verifier,
			CodeChallengeMethod: MethodPlain,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported code challenge method: %s", method)
	}
}

// GenerateState generates a random state parameter for OAuth.
// The state links the authorization response back to the original request
// and prevents CSRF on the callback.
func GenerateState() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return id.String(), nil
}
