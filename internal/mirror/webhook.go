package mirror

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyWebhook checks an inbound mirror webhook's HMAC-SHA256 signature
// over the raw request body, using a constant-time compare (§6, §4.6
// supplement "Webhook verification surface").
func VerifyWebhook(body []byte, signatureHex, secret string) bool {
	expected := computeSignature(body, secret)
	got, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

func computeSignature(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
