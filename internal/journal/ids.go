package journal

import (
	"github.com/dmitrijs2005/everkeep/internal/shared"
	"github.com/google/uuid"
)

// NewID returns prefix followed by an underscore and 8 random hex characters,
// e.g. "mem_3f9a0c1d".
func NewID(prefix string) string {
	suffix, err := shared.MakeRandHexString(4)
	if err != nil {
		suffix = uuid.NewString()[:8]
	}
	return prefix + "_" + suffix
}

// NewOwnerKey returns a fresh backup identity.
func NewOwnerKey() string {
	return uuid.NewString()
}
