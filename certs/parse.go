package certkit

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/lestrrat-go/jwx/v2/jwk"

	jwtkit "github.com/gilbert/firebase-id-token/jwt"
)

var maxAgeRe = regexp.MustCompile(`(?i)max-age\s*=\s*(\d+)`)

// parseMaxAge extracts the max-age directive from a Cache-Control header.
// Returns 0 when the directive is missing or unparsable.
func parseMaxAge(header string) int {
	m := maxAgeRe.FindStringSubmatch(header)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// parseCertificates decodes a certificate response body. Two provider
// formats are understood: a JSON object mapping key ids to PEM-encoded
// certificates (the x509 endpoint) and a standard JWKS document.
func parseCertificates(body []byte) (map[string]*rsa.PublicKey, error) {
	var probe struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && len(probe.Keys) > 0 {
		return parseJWKS(body)
	}
	return parsePEMMap(body)
}

func parsePEMMap(body []byte) (map[string]*rsa.PublicKey, error) {
	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("certkit: decode certificate response: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("certkit: certificate response contained no keys")
	}
	keys := make(map[string]*rsa.PublicKey, len(raw))
	for kid, pemText := range raw {
		pub, err := jwtkit.ParseRSAPublicKey([]byte(pemText))
		if err != nil {
			return nil, fmt.Errorf("certkit: parse certificate %q: %w", kid, err)
		}
		keys[kid] = pub
	}
	return keys, nil
}

func parseJWKS(body []byte) (map[string]*rsa.PublicKey, error) {
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("certkit: parse jwks response: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid := key.KeyID()
		if kid == "" {
			continue
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			// Non-RSA entries are skipped; the provider signs with RS256.
			continue
		}
		keys[kid] = &pub
	}
	if len(keys) == 0 {
		return nil, errors.New("certkit: jwks response contained no usable RSA keys")
	}
	return keys, nil
}
