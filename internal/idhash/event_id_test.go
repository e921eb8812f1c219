package idhash

import "testing"

func TestComputeEventID_Deterministic(t *testing.T) {
	a := ComputeEventID("dao", "VOICE", "issue", "", "issuer", 100, 1700000000, 7, 1)
	b := ComputeEventID("dao", "VOICE", "issue", "", "issuer", 100, 1700000000, 7, 1)

	if a != b {
		t.Errorf("same inputs must produce the same ID: %s vs %s", a, b)
	}
	if a == "" {
		t.Error("ID must not be empty")
	}
}

func TestComputeEventID_SequenceDistinguishes(t *testing.T) {
	a := ComputeEventID("dao", "VOICE", "issue", "", "issuer", 100, 1700000000, 7, 1)
	b := ComputeEventID("dao", "VOICE", "issue", "", "issuer", 100, 1700000000, 7, 2)

	if a == b {
		t.Error("different sequence numbers must produce different IDs")
	}
}

func TestComputeEventID_NonceDistinguishes(t *testing.T) {
	// Two processes can mint IDs for identical operations with equal
	// sequence numbers; the per-process nonce keeps them apart.
	a := ComputeEventID("dao", "VOICE", "issue", "", "issuer", 100, 1700000000, 7, 1)
	b := ComputeEventID("dao", "VOICE", "issue", "", "issuer", 100, 1700000000, 8, 1)

	if a == b {
		t.Error("different nonces must produce different IDs")
	}
}

func TestComputeEventID_FieldOrderMatters(t *testing.T) {
	a := ComputeEventID("dao", "VOICE", "transfer", "alice", "bob", 5, 1700000000, 7, 1)
	b := ComputeEventID("dao", "VOICE", "transfer", "bob", "alice", 5, 1700000000, 7, 1)

	if a == b {
		t.Error("swapping from/to must produce different IDs")
	}
}
