// Package testing provides a fake certificate provider for testing token
// verification without network access. It runs an HTTP server that serves
// signing certificates in both provider formats (x509 PEM map and JWKS) and
// can sign tokens that validate against those certificates.
//
// Example usage:
//
//	provider := testing.NewTestProvider()
//	defer provider.Close()
//
//	store := certkit.NewStore(provider.CertificateURL())
//	verifier := verifykit.New(store, provider.Config())
//
//	token := provider.CreateToken("user-123")
package testing

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/gilbert/firebase-id-token/core"
	jwtkit "github.com/gilbert/firebase-id-token/jwt"
)

// DefaultMaxAge is the certificate lifetime the fake provider advertises.
// It must exceed certkit's minimum of 3600 seconds.
const DefaultMaxAge = 7200

// TestProvider is a complete mock certificate provider for testing. It
// generates an RSA key pair with a self-signed certificate, serves the
// certificate over HTTP, and signs tokens shaped like the real provider's.
type TestProvider struct {
	server    *httptest.Server
	signer    *jwtkit.RSASigner
	certPEM   string
	projectID string
	maxAge    int
}

// NewTestProvider creates a provider for the project id "test-project".
// Call Close when done to shut down the test server.
func NewTestProvider() *TestProvider {
	return NewTestProviderWithProject("test-project")
}

// NewTestProviderWithProject creates a provider accepting the given project
// id as the token audience.
func NewTestProviderWithProject(projectID string) *TestProvider {
	signer, err := jwtkit.NewRSASigner(2048, "test-"+uuid.NewString())
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	return newTestProvider(projectID, signer)
}

// NewTestProviderWithKey creates a provider that signs with the given
// PEM-encoded RSA private key under kid, for tests that need a stable key
// across runs.
func NewTestProviderWithKey(projectID, kid string, privateKeyPEM []byte) *TestProvider {
	signer, err := jwtkit.NewRSASignerFromPEM(kid, privateKeyPEM)
	if err != nil {
		panic("failed to parse RSA private key: " + err.Error())
	}
	return newTestProvider(projectID, signer)
}

func newTestProvider(projectID string, signer *jwtkit.RSASigner) *TestProvider {
	p := &TestProvider{
		signer:    signer,
		certPEM:   selfSignedPEM(signer),
		projectID: projectID,
		maxAge:    DefaultMaxAge,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/x509", p.handleX509)
	mux.HandleFunc("/jwks.json", p.handleJWKS)

	p.server = httptest.NewServer(mux)
	return p
}

// CertificateURL returns the endpoint serving the kid-to-PEM certificate map.
func (p *TestProvider) CertificateURL() string { return p.server.URL + "/x509" }

// JWKSURL returns the endpoint serving the same key as a JWKS document.
func (p *TestProvider) JWKSURL() string { return p.server.URL + "/jwks.json" }

// KID returns the key id the provider signs with.
func (p *TestProvider) KID() string { return p.signer.KID() }

// CertificatePEM returns the PEM-encoded self-signed certificate.
func (p *TestProvider) CertificatePEM() string { return p.certPEM }

// ProjectID returns the project id used as the token audience.
func (p *TestProvider) ProjectID() string { return p.projectID }

// SetMaxAge overrides the advertised certificate lifetime in seconds.
func (p *TestProvider) SetMaxAge(seconds int) { p.maxAge = seconds }

// Config returns a core.Config wired to this provider, accepting its
// project id and pointing at its certificate endpoint.
func (p *TestProvider) Config() *core.Config {
	cfg := core.Defaults()
	cfg.ProjectIDs = []string{p.projectID}
	cfg.CertificateURL = p.CertificateURL()
	return cfg
}

// Close shuts down the test server.
func (p *TestProvider) Close() {
	if p.server != nil {
		p.server.Close()
	}
}

func (p *TestProvider) handleX509(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, must-revalidate, no-transform", p.maxAge))
	_ = json.NewEncoder(w).Encode(map[string]string{p.signer.KID(): p.certPEM})
}

func (p *TestProvider) handleJWKS(w http.ResponseWriter, r *http.Request) {
	key, err := jwk.FromRaw(p.signer.PublicKey())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = key.Set(jwk.KeyIDKey, p.signer.KID())
	_ = key.Set(jwk.AlgorithmKey, jwa.RS256)
	_ = key.Set(jwk.KeyUsageKey, "sig")
	set := jwk.NewSet()
	_ = set.AddKey(key)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, must-revalidate, no-transform", p.maxAge))
	_ = json.NewEncoder(w).Encode(set)
}

// CreateToken signs a token for uid with the claim shape the real provider
// uses, valid for one hour.
func (p *TestProvider) CreateToken(uid string) string {
	return p.CreateTokenWithClaims(uid, nil)
}

// CreateTokenWithClaims signs a token for uid, merging extraClaims over the
// standard claim set (sub, user_id, aud, iss, iat, exp, auth_time).
func (p *TestProvider) CreateTokenWithClaims(uid string, extraClaims map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       uid,
		"user_id":   uid,
		"aud":       p.projectID,
		"iss":       core.DefaultIssuerPrefix + p.projectID,
		"iat":       now.Unix(),
		"auth_time": now.Unix(),
		"exp":       now.Add(time.Hour).Unix(),
	}
	for k, v := range extraClaims {
		claims[k] = v
	}
	return p.SignClaims(claims)
}

// CreateExpiredToken signs a token for uid that expired an hour ago.
func (p *TestProvider) CreateExpiredToken(uid string) string {
	past := time.Now().Add(-2 * time.Hour)
	return p.CreateTokenWithClaims(uid, map[string]any{
		"iat": past.Unix(),
		"exp": past.Add(time.Hour).Unix(),
	})
}

// SignClaims signs an arbitrary claim set with the provider's key.
func (p *TestProvider) SignClaims(claims jwt.MapClaims) string {
	token, err := p.signer.Sign(claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

func selfSignedPEM(signer *jwtkit.RSASigner) string {
	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(now.UnixNano()),
		Subject:               pkix.Name{CommonName: "test-provider"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, signer.PublicKey(), signer.PrivateKey())
	if err != nil {
		panic("failed to create certificate: " + err.Error())
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}
