package certkit

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// MinTTLSeconds is the smallest acceptable certificate lifetime. A provider
// advertising anything at or below this is treated as anomalous and the
// response is discarded.
const MinTTLSeconds = 3600

// Certificate pairs a key id with its parsed public key.
type Certificate struct {
	KID string
	Key *rsa.PublicKey
}

// snapshot is the immutable result of one successful fetch. The store swaps
// whole snapshots by reference, so readers never observe a partial update.
type snapshot struct {
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	ttl       time.Duration
}

func (s *snapshot) validAt(now time.Time) bool {
	return s != nil && len(s.keys) > 0 && now.Before(s.fetchedAt.Add(s.ttl))
}

// Store caches the provider's signing certificates in memory for the life
// of the process.
//
// Reads are lock-free against an atomically swapped snapshot and treat an
// expired snapshot as empty; nothing is actively evicted. Fetches are
// serialized by a single mutex: when several callers discover a stale cache
// at once, one of them performs the network request and the rest block on
// the mutex, then adopt that fetch's outcome instead of issuing their own.
//
// Construct one Store per process and share it by reference.
type Store struct {
	url        string
	httpClient *http.Client
	now        func() time.Time

	fetchMu sync.Mutex // serializes fetches; waiters piggyback on the leader
	lastErr error      // outcome of the most recent fetch, guarded by fetchMu

	fetches atomic.Int64
	snap    atomic.Pointer[snapshot]
}

// NewStore creates an empty store that fetches certificates from url.
func NewStore(url string) *Store {
	return &Store{
		url:        url,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
}

func (s *Store) WithHTTPClient(c *http.Client) *Store {
	if c != nil {
		s.httpClient = c
	}
	return s
}

// RequestIfAbsent fetches certificates only when no valid set is cached.
// With a valid cache it is a no-op.
func (s *Store) RequestIfAbsent(ctx context.Context) error {
	if s.snap.Load().validAt(s.now()) {
		return nil
	}
	if !s.fetchMu.TryLock() {
		// Another fetch is in flight. Block until it completes and adopt
		// its outcome instead of issuing a redundant request.
		s.fetchMu.Lock()
		defer s.fetchMu.Unlock()
		if s.snap.Load().validAt(s.now()) {
			return nil
		}
		return s.lastErr
	}
	defer s.fetchMu.Unlock()
	// A fetch may have completed between the validity check and the lock.
	if s.snap.Load().validAt(s.now()) {
		return nil
	}
	s.lastErr = s.fetch(ctx)
	return s.lastErr
}

// ForceRequest performs a fetch regardless of the cached state. If another
// fetch is already in flight it blocks until that fetch completes and
// returns its outcome rather than issuing a redundant request.
func (s *Store) ForceRequest(ctx context.Context) error {
	if !s.fetchMu.TryLock() {
		s.fetchMu.Lock()
		defer s.fetchMu.Unlock()
		return s.lastErr
	}
	defer s.fetchMu.Unlock()
	s.lastErr = s.fetch(ctx)
	return s.lastErr
}

// fetch performs one network request and, on success, swaps in a fresh
// snapshot. Callers must hold fetchMu.
func (s *Store) fetch(ctx context.Context) error {
	s.fetches.Add(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("certkit: build certificate request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("certkit: certificate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithFields(log.Fields{"url": s.url, "status": resp.StatusCode}).
			Warn("certificate fetch rejected")
		return &RequestError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("certkit: read certificate response: %w", err)
	}
	keys, err := parseCertificates(body)
	if err != nil {
		return err
	}

	maxAge := parseMaxAge(resp.Header.Get("Cache-Control"))
	if maxAge <= MinTTLSeconds {
		// Covers a missing or unparsable directive too (maxAge == 0).
		// Prior contents stay in place, so the next access retries.
		log.WithFields(log.Fields{"url": s.url, "max_age": maxAge}).
			Warn("certificate fetch advertised implausible ttl")
		return &TTLError{MaxAge: maxAge}
	}

	s.snap.Store(&snapshot{
		keys:      keys,
		fetchedAt: s.now(),
		ttl:       time.Duration(maxAge) * time.Second,
	})
	log.WithFields(log.Fields{"url": s.url, "keys": len(keys), "max_age": maxAge}).
		Debug("certificates refreshed")
	return nil
}

// IsPresent reports whether a non-expired, non-empty certificate set is
// cached.
func (s *Store) IsPresent() bool {
	return s.snap.Load().validAt(s.now())
}

// ListAll returns every currently valid certificate, or nil when the cache
// is empty or expired.
func (s *Store) ListAll() []Certificate {
	snap := s.snap.Load()
	if !snap.validAt(s.now()) {
		return nil
	}
	out := make([]Certificate, 0, len(snap.keys))
	for kid, key := range snap.keys {
		out = append(out, Certificate{KID: kid, Key: key})
	}
	return out
}

// Find returns the public key for kid. It returns ErrNoCertificates when no
// valid certificate set is cached at all, and (nil, nil) when the set is
// populated but kid is unknown.
func (s *Store) Find(kid string) (*rsa.PublicKey, error) {
	snap := s.snap.Load()
	if !snap.validAt(s.now()) {
		return nil, ErrNoCertificates
	}
	return snap.keys[kid], nil
}

// FindStrict behaves like Find but reports an unknown kid as
// ErrCertificateNotFound instead of returning nil.
func (s *Store) FindStrict(kid string) (*rsa.PublicKey, error) {
	key, err := s.Find(kid)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: kid %q", ErrCertificateNotFound, kid)
	}
	return key, nil
}

// RemainingTTL returns how long the cached certificates stay valid, clamped
// to zero for an empty or already-expired cache.
func (s *Store) RemainingTTL() time.Duration {
	snap := s.snap.Load()
	if snap == nil || len(snap.keys) == 0 {
		return 0
	}
	left := snap.fetchedAt.Add(snap.ttl).Sub(s.now())
	if left < 0 {
		return 0
	}
	return left
}

// Fetches returns how many network fetches the store has performed.
func (s *Store) Fetches() int64 {
	return s.fetches.Load()
}

// Reset drops all cached state, returning the store to its initial
// process-start condition. Intended for test isolation and explicit
// invalidation.
func (s *Store) Reset() {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	s.snap.Store(nil)
	s.fetches.Store(0)
	s.lastErr = nil
}
