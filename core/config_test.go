package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, DefaultIssuerPrefix, cfg.IssuerPrefix)
	require.Equal(t, DefaultCertificateURL, cfg.CertificateURL)
	require.Equal(t, []string{"RS256"}, cfg.Algorithms)
	require.Empty(t, cfg.ProjectIDs, "defaults must accept no projects")
}

func TestAcceptsProject(t *testing.T) {
	cfg := Defaults()
	require.False(t, cfg.AcceptsProject("my-app"))

	cfg.ProjectIDs = []string{"my-app", "my-other-app"}
	require.True(t, cfg.AcceptsProject("my-app"))
	require.True(t, cfg.AcceptsProject("my-other-app"))
	require.False(t, cfg.AcceptsProject("unknown"))
	require.False(t, cfg.AcceptsProject(""))
}

func TestExpectedIssuer(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, "https://securetoken.google.com/my-app", cfg.ExpectedIssuer("my-app"))
}
