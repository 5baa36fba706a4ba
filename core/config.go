package core

import "time"

// Defaults for the Google securetoken provider.
const (
	DefaultIssuerPrefix   = "https://securetoken.google.com/"
	DefaultCertificateURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
)

// Config holds the acceptance rules for incoming identity tokens.
//
// The zero value accepts nothing: ProjectIDs must be populated by the
// embedding application before any token will verify.
type Config struct {
	// ProjectIDs is the set of project identifiers accepted as the token
	// audience.
	ProjectIDs []string
	// IssuerPrefix is prepended to the matched audience to form the
	// expected issuer claim.
	IssuerPrefix string
	// CertificateURL is the provider endpoint serving the current signing
	// certificates.
	CertificateURL string
	// Skew is the tolerated clock drift for temporal claims.
	Skew time.Duration
	// Algorithms restricts the accepted signing algorithms.
	Algorithms []string
}

// Defaults returns a Config pointing at the Google securetoken endpoints,
// with an empty project id set.
func Defaults() *Config {
	return &Config{
		IssuerPrefix:   DefaultIssuerPrefix,
		CertificateURL: DefaultCertificateURL,
		Skew:           60 * time.Second,
		Algorithms:     []string{"RS256"},
	}
}

// AcceptsProject reports whether aud is one of the configured project ids.
func (c *Config) AcceptsProject(aud string) bool {
	for _, id := range c.ProjectIDs {
		if id == aud {
			return true
		}
	}
	return false
}

// ExpectedIssuer returns the issuer required on tokens minted for aud.
func (c *Config) ExpectedIssuer(aud string) string {
	return c.IssuerPrefix + aud
}
