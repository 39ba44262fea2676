// Package pow implements the hash-cash style proof-of-work search that
// authorizes key fetches. The verifying service recomputes the same chain
// bit-for-bit, so inputs are hashed as raw bytes with no normalization.
package pow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"time"
)

// Params carries the shared secret and cost settings for the search.
// The secret and threshold come from upstream reverse engineering and have
// changed before; they are injected configuration, never literals here.
type Params struct {
	// Secret keys the HMAC seed over the resource identifier.
	Secret []byte

	// Threshold is the acceptance bound: a nonce is valid when the first
	// eight digest bytes, read big-endian, are strictly below it.
	Threshold uint64

	// MaxIterations bounds the search. Exhaustion yields FallbackNonce.
	MaxIterations int

	// FallbackNonce is returned when no nonce within MaxIterations
	// satisfies the threshold. The verifier rejects it later; the solver
	// itself never fails.
	FallbackNonce int64

	// TimestampSkew is subtracted from the wall clock when building a
	// challenge. The verifier requires timestamps lagging slightly behind
	// real time.
	TimestampSkew time.Duration
}

// DefaultParams returns the cost settings observed in the wild. The secret
// is deliberately empty: callers must supply their own.
func DefaultParams() Params {
	return Params{
		Threshold:     1 << 44,
		MaxIterations: 1 << 20,
		FallbackNonce: 1 << 20,
		TimestampSkew: 25 * time.Second,
	}
}

// Challenge is one solved proof-of-work instance. Computed fresh for every
// key fetch, never reused.
type Challenge struct {
	Resource  string
	KeyNumber string
	Timestamp int64
	Nonce     int64
}

// NewChallenge solves a challenge for the given wall-clock time, applying
// the configured skew.
func (p Params) NewChallenge(resource, keyNumber string, now time.Time) Challenge {
	ts := now.Add(-p.TimestampSkew).Unix()
	return Challenge{
		Resource:  resource,
		KeyNumber: keyNumber,
		Timestamp: ts,
		Nonce:     p.Solve(resource, keyNumber, ts),
	}
}

// Solve searches nonces 0..MaxIterations-1 and returns the first one whose
// digest value is below the threshold, or FallbackNonce on exhaustion.
// Identical inputs always produce identical output.
func (p Params) Solve(resource, keyNumber string, timestamp int64) int64 {
	seed := p.seed(resource)

	// Everything before the nonce is invariant across iterations.
	prefix := make([]byte, 0, len(seed)+len(resource)+len(keyNumber)+40)
	prefix = append(prefix, seed...)
	prefix = append(prefix, resource...)
	prefix = append(prefix, keyNumber...)
	prefix = strconv.AppendInt(prefix, timestamp, 10)

	buf := make([]byte, 0, len(prefix)+20)
	var sum [sha256.Size]byte
	h := sha256.New()
	for nonce := int64(0); nonce < int64(p.MaxIterations); nonce++ {
		buf = append(buf[:0], prefix...)
		buf = strconv.AppendInt(buf, nonce, 10)
		h.Reset()
		h.Write(buf)
		if binary.BigEndian.Uint64(h.Sum(sum[:0])) < p.Threshold {
			return nonce
		}
	}
	return p.FallbackNonce
}

// Check reports whether a nonce satisfies the threshold predicate for the
// given inputs.
func (p Params) Check(resource, keyNumber string, timestamp, nonce int64) bool {
	seed := p.seed(resource)

	h := sha256.New()
	h.Write(seed)
	h.Write([]byte(resource))
	h.Write([]byte(keyNumber))
	h.Write(strconv.AppendInt(nil, timestamp, 10))
	h.Write(strconv.AppendInt(nil, nonce, 10))

	var sum [sha256.Size]byte
	return binary.BigEndian.Uint64(h.Sum(sum[:0])[:8]) < p.Threshold
}

func (p Params) seed(resource string) []byte {
	mac := hmac.New(sha256.New, p.Secret)
	mac.Write([]byte(resource))
	return mac.Sum(nil)
}
