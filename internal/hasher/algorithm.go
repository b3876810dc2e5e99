package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
)

// Algorithm describes a digest that can be selected by name.
type Algorithm struct {
	Name string
	// Cryptographic is false for fast checksums whose collisions can be
	// constructed. Equal digests are still treated as equal content.
	Cryptographic bool
	New           func() hash.Hash
}

var algorithms = map[string]*Algorithm{
	"md5": {
		Name:          "md5",
		Cryptographic: true,
		New:           md5.New,
	},
	"sha1": {
		Name:          "sha1",
		Cryptographic: true,
		New:           sha1.New,
	},
	"sha256": {
		Name:          "sha256",
		Cryptographic: true,
		New:           sha256.New,
	},
	"sha512": {
		Name:          "sha512",
		Cryptographic: true,
		New:           sha512.New,
	},
	"blake2b": {
		Name:          "blake2b",
		Cryptographic: true,
		New: func() hash.Hash {
			// Only fails for keys longer than 64 bytes.
			h, _ := blake2b.New256(nil)
			return h
		},
	},
	"xxhash": {
		Name:          "xxhash",
		Cryptographic: false,
		New:           func() hash.Hash { return xxhash.New() },
	},
}

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "sha256"

// Lookup returns the algorithm registered under name, case-insensitively.
func Lookup(name string) (*Algorithm, error) {
	alg, ok := algorithms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, pferrors.HashAlgorithm(name)
	}
	return alg, nil
}

// Names returns every registered algorithm name, sorted.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
