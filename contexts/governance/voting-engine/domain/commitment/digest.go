// Package commitment defines how a sealed vote is bound to its digest.
//
// The preimage mirrors a packed ABI encoding: every choice and every weight
// is written as a 32-byte big-endian word, followed by the 32-byte salt and
// the raw bytes of the voter identity. Callers compute the digest off-engine
// and submit only the digest plus the reserved weight.
package commitment

import (
	"encoding/binary"
	"fmt"
	"strings"

	"sealedgov/contexts/governance/voting-engine/domain/entities"

	"github.com/decred/dcrd/crypto/blake256"
	"golang.org/x/crypto/sha3"
)

const wordSize = 32

const (
	HashBlake256  = "blake256"
	HashKeccak256 = "keccak256"
)

// Hasher is the collision-resistant hash used for commitments.
type Hasher interface {
	Name() string
	Sum(data []byte) entities.Digest
}

type Blake256 struct{}

func (Blake256) Name() string { return HashBlake256 }

func (Blake256) Sum(data []byte) entities.Digest {
	return entities.Digest(blake256.Sum256(data))
}

type Keccak256 struct{}

func (Keccak256) Name() string { return HashKeccak256 }

func (Keccak256) Sum(data []byte) entities.Digest {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)
	var digest entities.Digest
	copy(digest[:], h.Sum(nil))
	return digest
}

// ParseHasher resolves a configured hash name. An empty name selects BLAKE-256.
func ParseHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HashBlake256:
		return Blake256{}, nil
	case HashKeccak256, "keccak":
		return Keccak256{}, nil
	default:
		return nil, fmt.Errorf("unsupported commitment hash %q", name)
	}
}

// Encode returns the digest preimage for a vote.
func Encode(choices []uint64, weights []uint64, salt entities.Salt, voter string) []byte {
	buf := make([]byte, 0, (len(choices)+len(weights)+1)*wordSize+len(voter))
	for _, choice := range choices {
		buf = appendWord(buf, choice)
	}
	for _, weight := range weights {
		buf = appendWord(buf, weight)
	}
	buf = append(buf, salt[:]...)
	buf = append(buf, voter...)
	return buf
}

func Compute(h Hasher, choices []uint64, weights []uint64, salt entities.Salt, voter string) entities.Digest {
	if h == nil {
		h = Blake256{}
	}
	return h.Sum(Encode(choices, weights, salt, voter))
}

// Verify reports whether the reveal reproduces the stored digest.
func Verify(h Hasher, stored entities.Digest, choices []uint64, weights []uint64, salt entities.Salt, voter string) bool {
	return Compute(h, choices, weights, salt, voter) == stored
}

func appendWord(buf []byte, value uint64) []byte {
	var word [wordSize]byte
	binary.BigEndian.PutUint64(word[wordSize-8:], value)
	return append(buf, word[:]...)
}
