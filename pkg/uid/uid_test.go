package uid

import "testing"

func TestNewIsUniqueAndValid(t *testing.T) {
	a := New()
	b := New()
	if a == b {
		t.Fatal("two generated IDs collided")
	}
	if !IsValid(a) || !IsValid(b) {
		t.Errorf("generated IDs not valid UUIDs: %q %q", a, b)
	}
	if IsLocal(a) {
		t.Errorf("plain ID carries the local prefix: %q", a)
	}
}

func TestNewLocal(t *testing.T) {
	id := NewLocal()
	if !IsLocal(id) {
		t.Fatalf("placeholder ID missing prefix: %q", id)
	}
	if IsLocal("srv-123") || IsLocal("") {
		t.Error("IsLocal misclassified a non-placeholder ID")
	}
}
