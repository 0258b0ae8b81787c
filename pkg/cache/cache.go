// Package cache stores routing reports between runs.
//
// A run is fully determined by the board description and the routing,
// clustering and solver options, so its report can be reused whenever both
// hash to the same key. Three backends implement [Cache]: [FileCache] for the
// CLI's local cache directory, [RedisCache] for a cache shared between
// machines, and [NullCache] when caching is disabled.
package cache

import (
	"context"
	"time"
)

// TTLReport is how long a cached report stays valid.
const TTLReport = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key and whether it was found. A missing or
	// expired entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// ReportKeyOpts are the run options that change a report.
type ReportKeyOpts struct {
	Decay         float64 `json:"decay"`
	Penalty       float64 `json:"penalty"`
	WidthWeight   float64 `json:"width_weight"`
	Capacity      int     `json:"capacity"`
	Epochs        int     `json:"epochs"`
	Seed          uint64  `json:"seed"`
	Tolerance     float64 `json:"tolerance"`
	MaxIterations int     `json:"max_iterations"`
}

// Keyer derives cache keys.
type Keyer interface {
	// ReportKey is the key of the report for a board (by content hash) run
	// with opts.
	ReportKey(boardHash string, opts ReportKeyOpts) string
}

// DefaultKeyer produces unscoped keys of the form "report:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ReportKey hashes the board hash together with the options.
func (k *DefaultKeyer) ReportKey(boardHash string, opts ReportKeyOpts) string {
	return hashKey("report", boardHash, opts)
}
