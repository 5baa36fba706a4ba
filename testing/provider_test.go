package testing

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	certkit "github.com/gilbert/firebase-id-token/certs"
	verifykit "github.com/gilbert/firebase-id-token/verify"
)

func TestTestProvider_ServesCertificates(t *testing.T) {
	p := NewTestProvider()
	defer p.Close()

	resp, err := http.Get(p.CertificateURL())
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Cache-Control"), "max-age=7200")

	var certs map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&certs))
	require.Len(t, certs, 1)
	require.Contains(t, certs, p.KID())
	require.True(t, strings.HasPrefix(certs[p.KID()], "-----BEGIN CERTIFICATE-----"))
}

func TestTestProvider_ServesJWKS(t *testing.T) {
	p := NewTestProvider()
	defer p.Close()

	resp, err := http.Get(p.JWKSURL())
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Len(t, doc.Keys, 1)
	require.Equal(t, "RSA", doc.Keys[0]["kty"])
	require.Equal(t, p.KID(), doc.Keys[0]["kid"])
}

func TestTestProvider_TokenVerifiesEndToEnd(t *testing.T) {
	p := NewTestProviderWithProject("billing-app")
	defer p.Close()

	store := certkit.NewStore(p.CertificateURL())
	require.NoError(t, store.RequestIfAbsent(context.Background()))
	v := verifykit.New(store, p.Config())

	claims, err := v.Verify(p.CreateToken("user-42"))
	require.NoError(t, err)
	require.NotNil(t, claims)
	require.Equal(t, "user-42", claims["user_id"])
	require.Equal(t, "billing-app", claims["aud"])
}

func TestTestProvider_FromPEMKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	p := NewTestProviderWithKey("pem-app", "pem-key-1", pemBytes)
	defer p.Close()
	require.Equal(t, "pem-key-1", p.KID())

	store := certkit.NewStore(p.CertificateURL())
	require.NoError(t, store.RequestIfAbsent(context.Background()))
	v := verifykit.New(store, p.Config())

	claims, err := v.Verify(p.CreateToken("user-9"))
	require.NoError(t, err)
	require.NotNil(t, claims)
	require.Equal(t, "pem-app", claims["aud"])
}

func TestTestProvider_SetMaxAge(t *testing.T) {
	p := NewTestProvider()
	defer p.Close()
	p.SetMaxAge(60)

	store := certkit.NewStore(p.CertificateURL())
	err := store.RequestIfAbsent(context.Background())

	var ttlErr *certkit.TTLError
	require.ErrorAs(t, err, &ttlErr)
	require.Equal(t, 60, ttlErr.MaxAge)
}
