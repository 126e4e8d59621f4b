package commitment

import (
	"encoding/hex"
	"testing"

	"sealedgov/contexts/governance/voting-engine/domain/entities"
)

func TestHashersMatchKnownEmptyDigests(t *testing.T) {
	cases := []struct {
		hasher Hasher
		want   string
	}{
		{Blake256{}, "716f6e863f744b9ac22c97ec7b76ea5f5908bc5b2f67c61510bfc4751384ea7a"},
		{Keccak256{}, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
	}
	for _, tc := range cases {
		got := tc.hasher.Sum(nil)
		if hex.EncodeToString(got[:]) != tc.want {
			t.Fatalf("%s: expected %s, got %x", tc.hasher.Name(), tc.want, got)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	var salt entities.Salt
	salt[0] = 0xaa
	preimage := Encode([]uint64{1, 2}, []uint64{300, 0}, salt, "alice")
	if len(preimage) != 4*wordSize+len(salt)+len("alice") {
		t.Fatalf("unexpected preimage length %d", len(preimage))
	}
	if preimage[wordSize-1] != 1 || preimage[2*wordSize-1] != 2 {
		t.Fatalf("choices must be right-aligned words")
	}
	if preimage[3*wordSize-2] != 0x01 || preimage[3*wordSize-1] != 0x2c {
		t.Fatalf("weights must be big-endian words, got %x", preimage[2*wordSize:3*wordSize])
	}
	if preimage[4*wordSize] != 0xaa {
		t.Fatalf("salt must follow the weights")
	}
	if string(preimage[len(preimage)-5:]) != "alice" {
		t.Fatalf("voter identity must close the preimage")
	}
}

func TestVerifyRejectsAnySingleBitChange(t *testing.T) {
	var salt entities.Salt
	for i := range salt {
		salt[i] = byte(i * 7)
	}
	choices := []uint64{3, 1}
	weights := []uint64{40, 60}
	stored := Compute(Blake256{}, choices, weights, salt, "voter-1")
	if !Verify(Blake256{}, stored, choices, weights, salt, "voter-1") {
		t.Fatalf("expected genuine reveal to verify")
	}

	for bit := 0; bit < len(salt)*8; bit++ {
		flipped := salt
		flipped[bit/8] ^= 1 << (bit % 8)
		if Verify(Blake256{}, stored, choices, weights, flipped, "voter-1") {
			t.Fatalf("salt bit %d flip still verified", bit)
		}
	}
	if Verify(Blake256{}, stored, []uint64{1, 3}, weights, salt, "voter-1") {
		t.Fatalf("reordered choices verified")
	}
	if Verify(Blake256{}, stored, choices, []uint64{41, 59}, salt, "voter-1") {
		t.Fatalf("shifted weights verified")
	}
	if Verify(Blake256{}, stored, choices, weights, salt, "voter-2") {
		t.Fatalf("digest replayed by another voter verified")
	}
	if Verify(Keccak256{}, stored, choices, weights, salt, "voter-1") {
		t.Fatalf("digest verified under a different hash")
	}
}

func TestParseHasher(t *testing.T) {
	for name, want := range map[string]string{
		"":          HashBlake256,
		"BLAKE256":  HashBlake256,
		"keccak":    HashKeccak256,
		"keccak256": HashKeccak256,
	} {
		h, err := ParseHasher(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if h.Name() != want {
			t.Fatalf("parse %q: expected %s, got %s", name, want, h.Name())
		}
	}
	if _, err := ParseHasher("md5"); err == nil {
		t.Fatalf("expected unsupported hash to fail")
	}
}
