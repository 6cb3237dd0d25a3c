// Package fingerprint reduces a byte snapshot to a short, stable identity token.
//
// Two equal byte sequences always yield equal fingerprints. Distinct sequences
// are not guaranteed to differ, but with a 40-bit prefix of a cryptographic
// digest the practical collision probability is negligible for the volumes a
// monitor handles. Fingerprints identify content; they are not a security
// boundary.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // identity token for legacy state files, not a security primitive
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/changemon/internal/model"
)

// Length is the number of hex characters kept from the digest.
const Length = 10

// Algorithm selects the digest a Fingerprint is cut from.
type Algorithm string

const (
	// Blake2b is the default digest.
	Blake2b Algorithm = "blake2b"

	// MD5 reads and extends history files written by older jsmon installs,
	// which keyed bodies by the first ten hex characters of their MD5.
	MD5 Algorithm = "md5"
)

// Default is the algorithm used when none is configured.
const Default = Blake2b

// ParseAlgorithm converts a configuration string into an Algorithm.
// An empty string selects Default.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "":
		return Default, nil
	case Blake2b, MD5:
		return Algorithm(s), nil
	default:
		return "", fmt.Errorf("unknown fingerprint algorithm %q (want %q or %q)", s, Blake2b, MD5)
	}
}

// Sum returns the fingerprint of b.
func (a Algorithm) Sum(b []byte) model.Fingerprint {
	var digest []byte
	switch a {
	case MD5:
		sum := md5.Sum(b) //nolint:gosec // see import comment
		digest = sum[:]
	default:
		sum := blake2b.Sum256(b)
		digest = sum[:]
	}
	return model.Fingerprint(hex.EncodeToString(digest)[:Length])
}

// Of returns the fingerprint of b using the default algorithm.
func Of(b []byte) model.Fingerprint {
	return Default.Sum(b)
}

// Valid reports whether fp has the shape of a fingerprint: exactly Length
// lowercase hex characters. Payload files are named by fingerprint, so the
// history store refuses anything else as a file name.
func Valid(fp model.Fingerprint) bool {
	if len(fp) != Length {
		return false
	}
	for _, c := range fp {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
