package certkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMaxAge(t *testing.T) {
	cases := []struct {
		header string
		want   int
	}{
		{"public, max-age=19302, must-revalidate, no-transform", 19302},
		{"max-age=3600", 3600},
		{"public, MAX-AGE=7200", 7200},
		{"public, max-age = 600", 600},
		{"public, must-revalidate", 0},
		{"max-age=abc", 0},
		{"", 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, parseMaxAge(tc.header), "header %q", tc.header)
	}
}

func TestParseCertificates_RejectsGarbage(t *testing.T) {
	_, err := parseCertificates([]byte("not json"))
	require.Error(t, err)

	_, err = parseCertificates([]byte("{}"))
	require.Error(t, err)

	_, err = parseCertificates([]byte(`{"kid-1": "not a pem"}`))
	require.Error(t, err)

	_, err = parseCertificates([]byte(`{"keys": [{"kty": "oct", "k": "c2VjcmV0"}]}`))
	require.Error(t, err)
}
