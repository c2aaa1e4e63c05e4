// Package webhook authenticates inbound webhook traffic from the chat and
// CI platforms. The two platforms use different schemes: Telegram echoes a
// shared secret token in a fixed header, GitHub signs the raw request body
// with HMAC-SHA256 (with a legacy plain-secret fallback still accepted).
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// Header names.
const (
	// TelegramSecretHeader carries the secret token Telegram echoes back
	// on every webhook delivery.
	TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	// GitHubSignatureHeader is the modern HMAC-SHA256 signature header.
	GitHubSignatureHeader = "X-Hub-Signature-256"

	// GitHubLegacySignatureHeader is checked when the modern header is absent.
	GitHubLegacySignatureHeader = "X-Hub-Signature"
)

// VerifyTelegram checks the Telegram secret-token header against the
// configured secret, byte for byte. An empty configured secret verifies
// everything (open deployment mode); callers must log that loudly.
func VerifyTelegram(secret, headerValue string) error {
	if secret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(headerValue)) != 1 {
		return rferrors.NewWebhookError("telegram", "secret token mismatch")
	}
	return nil
}

// VerifyGitHub validates a CI/VCS webhook delivery. If the signature value
// is a 64-hex-character string (optionally prefixed "sha256="), it is
// treated as an HMAC-SHA256 signature over the raw body and compared in
// constant time. Anything else falls back to plain string equality against
// the secret, a legacy mode kept until all callers are upgraded.
//
// An empty configured secret verifies everything; a configured secret with
// a missing signature is rejected.
func VerifyGitHub(secret, signature string, rawBody []byte) error {
	if secret == "" {
		return nil
	}
	if signature == "" {
		return rferrors.NewWebhookError("github", "missing signature")
	}

	if digest, ok := hexDigest(signature); ok {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(rawBody)
		expected := mac.Sum(nil)
		if !hmac.Equal(expected, digest) {
			return rferrors.NewWebhookError("github", "signature mismatch")
		}
		return nil
	}

	// Legacy plain-secret comparison.
	if subtle.ConstantTimeCompare([]byte(secret), []byte(signature)) != 1 {
		return rferrors.NewWebhookError("github", "legacy secret mismatch")
	}
	return nil
}

// Sign computes the "sha256=<hex>" signature for a body, used by tests and
// by the health probe's self-check.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// hexDigest decodes a signature value into raw digest bytes when it looks
// like a SHA-256 hex digest, with or without the "sha256=" prefix.
func hexDigest(signature string) ([]byte, bool) {
	const prefix = "sha256="
	if len(signature) == len(prefix)+64 && signature[:len(prefix)] == prefix {
		signature = signature[len(prefix):]
	}
	if len(signature) != 64 {
		return nil, false
	}
	digest, err := hex.DecodeString(signature)
	if err != nil {
		return nil, false
	}
	return digest, true
}
