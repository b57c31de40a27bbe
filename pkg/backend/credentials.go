package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Credentials are the reader's own credentials, replayed on the metadata
// calls made on their behalf.
type Credentials struct {
	Authorization string
	Cookie        string
	APIKey        string
}

// CredentialsFromHeader extracts the credentials carried by an inbound
// request.
func CredentialsFromHeader(h http.Header) Credentials {
	return Credentials{
		Authorization: h.Get("Authorization"),
		Cookie:        h.Get("Cookie"),
		APIKey:        h.Get("X-API-Key"),
	}
}

// Fingerprint returns a digest identifying the credential set without
// exposing it. Equal credentials have equal fingerprints.
func (c Credentials) Fingerprint() string {
	sum := sha256.Sum256([]byte(c.Authorization + "\x00" + c.Cookie + "\x00" + c.APIKey))
	return hex.EncodeToString(sum[:16])
}

// bearer reports whether the Authorization value uses the Bearer scheme.
func (c Credentials) bearer() bool {
	scheme, token, ok := strings.Cut(c.Authorization, " ")
	return ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != ""
}
