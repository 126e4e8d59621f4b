package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"sealedgov/contexts/governance/voting-engine/adapters/signature"
	"sealedgov/contexts/governance/voting-engine/domain/commitment"
	"sealedgov/contexts/governance/voting-engine/domain/entities"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	parser := newParser(&out)
	if _, err := parser.ParseArgs(args); err != nil {
		t.Fatalf("govtool %v: %v", args, err)
	}
	return out.String()
}

func field(t *testing.T, output string, name string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if value, ok := strings.CutPrefix(line, name+" "); ok {
			return value
		}
	}
	t.Fatalf("missing %q in output %q", name, output)
	return ""
}

func TestDigestMatchesEngineCommitment(t *testing.T) {
	salt := strings.Repeat("ab", 32)
	output := run(t, "digest", "--voter", "alice", "--choice", "1", "--choice", "3", "--weight", "4", "--weight", "6", "--salt", salt)

	var rawSalt entities.Salt
	decoded, _ := hex.DecodeString(salt)
	copy(rawSalt[:], decoded)
	want := commitment.Compute(commitment.Blake256{}, []uint64{1, 3}, []uint64{4, 6}, rawSalt, "alice")

	if got := field(t, output, "digest"); got != hex.EncodeToString(want[:]) {
		t.Fatalf("digest mismatch: got %s want %x", got, want)
	}
	if got := field(t, output, "weight"); got != "10" {
		t.Fatalf("expected total weight 10, got %s", got)
	}
}

func TestDigestRejectsMismatchedLists(t *testing.T) {
	var out bytes.Buffer
	parser := newParser(&out)
	_, err := parser.ParseArgs([]string{"digest", "--voter", "a", "--choice", "1", "--weight", "1", "--weight", "2", "--salt", strings.Repeat("00", 32)})
	if err == nil {
		t.Fatalf("expected error for mismatched choice/weight counts")
	}
}

func TestSaltIsRandom32Bytes(t *testing.T) {
	first := strings.TrimSpace(run(t, "salt"))
	second := strings.TrimSpace(run(t, "salt"))
	if len(first) != 64 || first == second {
		t.Fatalf("unexpected salts %q %q", first, second)
	}
}

func TestKeygenAndSignVerify(t *testing.T) {
	keys := run(t, "keygen")
	private := field(t, keys, "private")
	identity := field(t, keys, "identity")

	digest := strings.Repeat("11", 32)
	sig := strings.TrimSpace(run(t, "sign", "--key", private, "--digest", digest))
	rawSig, err := hex.DecodeString(sig)
	if err != nil {
		t.Fatalf("signature is not hex: %v", err)
	}

	var d entities.Digest
	rawDigest, _ := hex.DecodeString(digest)
	copy(d[:], rawDigest)
	if err := (signature.Secp256k1{}).Verify(context.Background(), identity, d, rawSig); err != nil {
		t.Fatalf("signature did not verify: %v", err)
	}
}
