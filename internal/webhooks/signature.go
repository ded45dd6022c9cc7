package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSignature returns the hex-encoded HMAC-SHA256 of body under secret.
// The external OCR service signs the exact raw request body; any byte change
// invalidates the signature.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether provided matches the expected signature for
// body. Comparison is constant time.
func VerifySignature(secret string, body []byte, provided string) bool {
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}
