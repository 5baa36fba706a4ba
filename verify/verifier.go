package verifykit

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	certkit "github.com/gilbert/firebase-id-token/certs"
	"github.com/gilbert/firebase-id-token/core"
)

// Verifier checks identity tokens against the cached provider certificates
// and the configured acceptance rules.
type Verifier struct {
	certs *certkit.Store
	cfg   *core.Config
}

func New(certs *certkit.Store, cfg *core.Config) *Verifier {
	return &Verifier{certs: certs, cfg: cfg}
}

// Verify validates token and returns its full claim set.
//
// Failures split two ways. certkit.ErrNoCertificates is returned when the
// store holds no certificates at all: that is an operator problem and must
// surface. Every token-level failure (malformed input, unknown key id, bad
// signature, failed claim checks) returns (nil, nil), so callers cannot
// distinguish why a token was rejected.
func (v *Verifier) Verify(token string) (jwt.MapClaims, error) {
	kid, ok := headerKID(token)
	if !ok {
		return nil, nil
	}

	key, err := v.certs.FindStrict(kid)
	if err != nil {
		if errors.Is(err, certkit.ErrNoCertificates) {
			return nil, err
		}
		log.WithField("kid", kid).Debug("token rejected: no certificate for kid")
		return nil, nil
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods(v.algorithms()),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.skew()),
	)
	if err != nil || tok == nil || !tok.Valid {
		log.WithField("kid", kid).Debug("token rejected: signature or temporal claims")
		return nil, nil
	}

	if !v.claimsAccepted(claims) {
		return nil, nil
	}
	return claims, nil
}

// headerKID reads the key id from the token header without verifying the
// signature. Structurally malformed tokens report ok=false.
func headerKID(token string) (string, bool) {
	tok, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil || tok == nil {
		return "", false
	}
	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return "", false
	}
	return kid, true
}

// claimsAccepted enforces the identity claims: audience must be one of the
// configured project ids, issuer must match that audience, and the subject
// and user id must be present.
func (v *Verifier) claimsAccepted(claims jwt.MapClaims) bool {
	aud, _ := claims["aud"].(string)
	if aud == "" || !v.cfg.AcceptsProject(aud) {
		log.WithField("aud", aud).Debug("token rejected: audience not accepted")
		return false
	}
	iss, _ := claims["iss"].(string)
	if iss != v.cfg.ExpectedIssuer(aud) {
		log.WithField("iss", iss).Debug("token rejected: issuer mismatch")
		return false
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return false
	}
	uid, _ := claims["user_id"].(string)
	if strings.TrimSpace(uid) == "" {
		return false
	}
	return true
}

func (v *Verifier) algorithms() []string {
	if len(v.cfg.Algorithms) > 0 {
		return v.cfg.Algorithms
	}
	return []string{"RS256"}
}

func (v *Verifier) skew() time.Duration {
	if v.cfg.Skew > 0 {
		return v.cfg.Skew
	}
	return 60 * time.Second
}
