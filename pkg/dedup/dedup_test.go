package dedup

import (
	"testing"
	"time"
)

func TestFirstSeen(t *testing.T) {
	c := New(time.Minute, 100)

	if !c.FirstSeen("a") {
		t.Error("first sighting must pass")
	}
	if c.FirstSeen("a") {
		t.Error("second sighting inside TTL must be dropped")
	}
	if !c.FirstSeen("b") {
		t.Error("different id must pass")
	}
}

func TestFirstSeenExpires(t *testing.T) {
	c := New(5*time.Millisecond, 100)

	c.FirstSeen("a")
	time.Sleep(10 * time.Millisecond)
	if !c.FirstSeen("a") {
		t.Error("id must pass again after the TTL")
	}
}

func TestEmptyIDAlwaysPasses(t *testing.T) {
	c := New(time.Minute, 100)
	if !c.FirstSeen("") || !c.FirstSeen("") {
		t.Error("empty ids are never deduped")
	}
}

func TestHashStable(t *testing.T) {
	a := Hash([]byte("payload"))
	b := Hash([]byte("payload"))
	if a != b {
		t.Errorf("hash not stable: %s vs %s", a, b)
	}
	if a == Hash([]byte("other")) {
		t.Error("different payloads must hash differently")
	}
}
