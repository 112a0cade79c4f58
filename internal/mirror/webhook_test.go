package mirror

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookAcceptsValidSignature(t *testing.T) {
	body := []byte(`{"action":"create"}`)
	require.True(t, VerifyWebhook(body, sign(body, "s3cret"), "s3cret"))
}

func TestVerifyWebhookRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"action":"create"}`)
	require.False(t, VerifyWebhook(body, sign(body, "s3cret"), "different"))
}

func TestVerifyWebhookRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"action":"create"}`)
	sig := sign(body, "s3cret")
	require.False(t, VerifyWebhook([]byte(`{"action":"delete"}`), sig, "s3cret"))
}

func TestVerifyWebhookRejectsMalformedSignature(t *testing.T) {
	require.False(t, VerifyWebhook([]byte("body"), "not-hex!!", "s3cret"))
}
