package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// SignHMACSHA256 returns the raw HMAC-SHA256 of body under secret.
func SignHMACSHA256(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// VerifyHMACBase64 checks a base64 encoded HMAC-SHA256 signature, the format
// Shopify sends in X-Shopify-Hmac-Sha256.
func VerifyHMACBase64(secret string, body []byte, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil || secret == "" {
		return false
	}
	return hmac.Equal(got, SignHMACSHA256(secret, body))
}

// VerifyHMACHex checks a hex encoded HMAC-SHA256 signature. An optional
// "sha256=" prefix is accepted.
func VerifyHMACHex(secret string, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || secret == "" {
		return false
	}
	return hmac.Equal(got, SignHMACSHA256(secret, body))
}
