package ledger

import "testing"

func TestFingerprintBindsAllFields(t *testing.T) {
	withdrawer := Identity{0x01}
	vault := [16]byte{0xaa}

	base := Fingerprint(withdrawer, 1, 100, vault)

	variants := []struct {
		name string
		fp   [32]byte
	}{
		{"different withdrawer", Fingerprint(Identity{0x02}, 1, 100, vault)},
		{"different deposit", Fingerprint(withdrawer, 2, 100, vault)},
		{"different expiry", Fingerprint(withdrawer, 1, 101, vault)},
		{"different vault", Fingerprint(withdrawer, 1, 100, [16]byte{0xbb})},
	}

	for _, v := range variants {
		if v.fp == base {
			t.Errorf("%s produced the same fingerprint", v.name)
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	withdrawer := Identity{0x07}
	vault := [16]byte{0x11}

	a := Fingerprint(withdrawer, 5, 500, vault)
	b := Fingerprint(withdrawer, 5, 500, vault)

	if a != b {
		t.Error("same inputs produced different fingerprints")
	}
}
