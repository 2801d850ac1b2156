package mediaid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix marks identifiers of media records.
const Prefix = "med_"

var (
	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
)

// ulid.MonotonicEntropy is not safe for concurrent use.
func nextULID(t time.Time) ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	if entropy == nil {
		entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	}
	return ulid.MustNew(ulid.Timestamp(t), entropy)
}

// New returns a med_* ULID string for a media record.
func New() string {
	return Prefix + NewObjectID()
}

// NewObjectID returns a bare lowercase ULID used inside storage keys.
func NewObjectID() string {
	return strings.ToLower(nextULID(time.Now()).String())
}

// IsValid reports whether the string is a med_* ULID.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, Prefix) {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the med_ prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, Prefix)
	return ulid.ParseStrict(strings.ToUpper(value))
}
