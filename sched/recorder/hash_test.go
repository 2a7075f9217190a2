package recorder

import "testing"

// TestStableHash_Deterministic verifies identical part lists hash
// identically and order is significant.
func TestStableHash_Deterministic(t *testing.T) {
	if StableHash([]string{"a", "b"}) != StableHash([]string{"a", "b"}) {
		t.Error("identical inputs must hash identically")
	}
	if StableHash([]string{"a", "b"}) == StableHash([]string{"b", "a"}) {
		t.Error("part order must be significant")
	}
}

// TestStableHash_SeparatorPreventsConcatenationCollisions verifies
// ["ab"] and ["a","b"] do not collide.
func TestStableHash_SeparatorPreventsConcatenationCollisions(t *testing.T) {
	if StableHash([]string{"ab"}) == StableHash([]string{"a", "b"}) {
		t.Error("joined and split parts must not collide")
	}
}

func TestQueryHash(t *testing.T) {
	h1, ok := QueryHash("  Find Slow Partitions  ")
	if !ok {
		t.Fatal("non-empty query should hash")
	}
	h2, ok := QueryHash("find slow partitions")
	if !ok || h1 != h2 {
		t.Error("query hash should normalize case and whitespace")
	}

	if _, ok := QueryHash("   "); ok {
		t.Error("whitespace-only query should not hash")
	}
	if _, ok := QueryHash(""); ok {
		t.Error("empty query should not hash")
	}
}
