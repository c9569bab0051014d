package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrBadSignature — подпись webhook отсутствует или не совпадает.
var ErrBadSignature = errors.New("invalid webhook signature")

// SignatureHeader — заголовок с подписью webhook.
const SignatureHeader = "irembopay-signature"

// Sign вычисляет подпись HMAC-SHA256 от "timestamp#payload".
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("#"))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature проверяет заголовок вида "t=<timestamp>,s=<signature>".
func (c *Client) VerifySignature(header string, payload []byte) error {
	const op = "paymentprovider.VerifySignature"
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "s":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("%s: %w", op, ErrBadSignature)
	}
	expected := Sign(c.secretKey, ts, payload)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%s: %w", op, ErrBadSignature)
	}
	return nil
}
