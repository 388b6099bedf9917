package client

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"
)

// Sign returns the request signature: base64(HMAC-SHA1(secret, method,
// date, serialized x-11paths headers and path joined by newlines)).
func Sign(secret, method, date, headers, path string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{strings.ToUpper(method), date, headers, path}, "\n")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an Authorization header value against the
// expected signature. Used by tests and local fakes of the service.
func VerifySignature(header, appID, secret, method, date, path string) bool {
	parts := strings.SplitN(header, " ", 3)
	if len(parts) != 3 || parts[0] != authScheme || parts[1] != appID {
		return false
	}
	expected := Sign(secret, method, date, "", path)
	return hmac.Equal([]byte(parts[2]), []byte(expected))
}
