package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignAction returns the hex HMAC-SHA256 of "<action>:<id>" under secret.
func SignAction(secret, action string, id uint) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%s:%d", action, id)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyAction reports whether sig was produced by SignAction for the same
// action and id.
func VerifyAction(secret, action string, id uint, sig string) bool {
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(SignAction(secret, action, id))
	return hmac.Equal(got, want)
}
