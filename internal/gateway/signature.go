package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignatureVerifier recomputes the HMAC-SHA256 signature the
// redirect-form gateway attaches to its callbacks and compares it in
// constant time.  The gateway names the exact fields it signed in
// signed_field_names; the message is those fields serialized in that
// order as "name=value" pairs joined by commas.
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier returns a verifier bound to the shared secret
// configured for the merchant account.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Sign computes the base64 HMAC-SHA256 of message.
func (v *SignatureVerifier) Sign(message string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyCallback validates the signature on a callback field set.  A
// missing signature or missing signed_field_names is a hard rejection,
// never a soft pass-through.
func (v *SignatureVerifier) VerifyCallback(fields map[string]string) error {
	sig := fields["signature"]
	names := fields["signed_field_names"]
	if sig == "" || names == "" {
		return ErrMissingSignature
	}

	pairs := make([]string, 0, 8)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		pairs = append(pairs, name+"="+fields[name])
	}
	expected := v.Sign(strings.Join(pairs, ","))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	return nil
}
