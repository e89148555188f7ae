// Package version implements the monotonic counters that order successive
// states of a member's routing bucket.
package version

import "github.com/cockroachdb/errors"

// Counter is a monotonically increasing version number. A larger counter is a
// more recent version.
type Counter uint64

// Increment returns the next version.
func (c Counter) Increment() Counter { return c + 1 }

// OlderThan returns true if c precedes other.
func (c Counter) OlderThan(other Counter) bool { return c < other }

// NewerThan returns true if c succeeds other.
func (c Counter) NewerThan(other Counter) bool { return c > other }

// EqualTo returns true if c and other are the same version.
func (c Counter) EqualTo(other Counter) bool { return c == other }

var (
	// ErrOld is returned when a version is not newer than the one it would
	// replace.
	ErrOld = errors.New("[version] - old version")
)

// Store persists the highest version a key has reached, so that a member that
// restarts never reissues a version its peers have already seen.
type Store interface {
	// Load returns the highest version saved for key, or 0 if none was saved.
	Load(key string) (Counter, error)
	// Save records v as the highest version for key.
	Save(key string, v Counter) error
}
