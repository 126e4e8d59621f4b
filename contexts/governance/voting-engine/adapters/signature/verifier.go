// Package signature holds the reveal-signature verifiers.
package signature

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	SchemeNone      = "none"
	SchemeSecp256k1 = "secp256k1"
)

// AcceptAll treats every supplied signature as valid.
type AcceptAll struct{}

func (AcceptAll) Verify(context.Context, string, entities.Digest, []byte) error {
	return nil
}

// Secp256k1 expects the voter identity to be a hex-encoded compressed public
// key and the signature to be a 65-byte compact recoverable signature over
// the commitment digest.
type Secp256k1 struct{}

func (Secp256k1) Verify(_ context.Context, voter string, digest entities.Digest, signature []byte) error {
	expected, err := hex.DecodeString(strings.TrimSpace(voter))
	if err != nil || len(expected) != secp256k1.PubKeyBytesLenCompressed {
		return fmt.Errorf("%w: voter is not a compressed secp256k1 key", domainerrors.ErrInvalidSignature)
	}
	recovered, _, err := ecdsa.RecoverCompact(signature, digest[:])
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrInvalidSignature, err)
	}
	if !bytes.Equal(recovered.SerializeCompressed(), expected) {
		return fmt.Errorf("%w: signer does not match voter", domainerrors.ErrInvalidSignature)
	}
	return nil
}

// Sign produces the compact signature Secp256k1 accepts.
func Sign(key *secp256k1.PrivateKey, digest entities.Digest) []byte {
	return ecdsa.SignCompact(key, digest[:], true)
}

// Identity renders the voter identity bound to key.
func Identity(key *secp256k1.PrivateKey) string {
	return hex.EncodeToString(key.PubKey().SerializeCompressed())
}

func New(scheme string) (ports.SignatureVerifier, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeNone:
		return AcceptAll{}, nil
	case SchemeSecp256k1:
		return Secp256k1{}, nil
	default:
		return nil, fmt.Errorf("unsupported signature scheme %q", scheme)
	}
}
