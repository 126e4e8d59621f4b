// Command govtool computes commitments and signatures offline so a voter
// never sends choices or salt before the reveal window opens.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sealedgov/contexts/governance/voting-engine/adapters/signature"
	"sealedgov/contexts/governance/voting-engine/domain/commitment"
	"sealedgov/contexts/governance/voting-engine/domain/entities"

	"github.com/decred/dcrd/crypto/rand"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	flags "github.com/jessevdk/go-flags"
)

type digestCommand struct {
	Voter   string   `long:"voter" required:"true" description:"voter identity exactly as sent in X-User-Id"`
	Choices []uint64 `long:"choice" required:"true" description:"option id; repeat once per choice"`
	Weights []uint64 `long:"weight" required:"true" description:"weight for the matching choice; repeat once per choice"`
	Salt    string   `long:"salt" required:"true" description:"32-byte salt as hex"`
	Hash    string   `long:"hash" default:"blake256" description:"commitment hash (blake256 or keccak256)"`

	out io.Writer
}

func (c *digestCommand) Execute(_ []string) error {
	if len(c.Choices) != len(c.Weights) {
		return errors.New("--choice and --weight must be given the same number of times")
	}
	salt, err := decode32(c.Salt)
	if err != nil {
		return fmt.Errorf("salt: %w", err)
	}
	hasher, err := commitment.ParseHasher(c.Hash)
	if err != nil {
		return err
	}
	digest := commitment.Compute(hasher, c.Choices, c.Weights, entities.Salt(salt), c.Voter)
	var total uint64
	for _, weight := range c.Weights {
		if total+weight < total {
			return errors.New("weights overflow uint64")
		}
		total += weight
	}
	fmt.Fprintf(c.out, "digest %s\nweight %d\n", hex.EncodeToString(digest[:]), total)
	return nil
}

type saltCommand struct {
	out io.Writer
}

func (c *saltCommand) Execute(_ []string) error {
	var salt [32]byte
	rand.Read(salt[:])
	fmt.Fprintln(c.out, hex.EncodeToString(salt[:]))
	return nil
}

type keygenCommand struct {
	out io.Writer
}

func (c *keygenCommand) Execute(_ []string) error {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "private %s\nidentity %s\n", hex.EncodeToString(key.Serialize()), signature.Identity(key))
	return nil
}

type signCommand struct {
	Key    string `long:"key" required:"true" description:"secp256k1 private key as hex"`
	Digest string `long:"digest" required:"true" description:"commitment digest as hex"`

	out io.Writer
}

func (c *signCommand) Execute(_ []string) error {
	rawKey, err := decode32(c.Key)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	digest, err := decode32(c.Digest)
	if err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	key := secp256k1.PrivKeyFromBytes(rawKey[:])
	fmt.Fprintln(c.out, hex.EncodeToString(signature.Sign(key, entities.Digest(digest))))
	return nil
}

func decode32(raw string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return out, err
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

func newParser(out io.Writer) *flags.Parser {
	parser := flags.NewNamedParser("govtool", flags.Default)
	_, _ = parser.AddCommand("digest", "Compute a vote commitment",
		"Compute the digest to submit at commit time.", &digestCommand{out: out})
	_, _ = parser.AddCommand("salt", "Generate a random salt",
		"Generate 32 random bytes to blind a commitment.", &saltCommand{out: out})
	_, _ = parser.AddCommand("keygen", "Generate a secp256k1 voter key",
		"Generate a private key and print the voter identity bound to it.", &keygenCommand{out: out})
	_, _ = parser.AddCommand("sign", "Sign a commitment digest",
		"Produce the compact signature sent with a reveal.", &signCommand{out: out})
	return parser
}

func main() {
	parser := newParser(os.Stdout)
	if _, err := parser.Parse(); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
