package domain

import (
	"strings"
	"testing"
)

func TestBlobPathDeterministic(t *testing.T) {
	a := BlobPath(42, 1700000000)
	b := BlobPath(42, 1700000000)
	if a != b {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}
}

func TestBlobPathShape(t *testing.T) {
	p := BlobPath(1, 1700000000)
	want := "/data/clipboards/00/00/00/00/00/00/01/1700000000"
	if p != want {
		t.Fatalf("got %q want %q", p, want)
	}
}

func TestBlobPathShardsDiffer(t *testing.T) {
	// 1 -> ...0001, 256 -> ...0100: shard prefixes must differ.
	p1 := BlobPath(1, 5)
	p256 := BlobPath(256, 5)
	if p1 == p256 {
		t.Fatal("distinct record ids produced identical paths")
	}
	s1 := p1[:strings.LastIndex(p1, "/")]
	s256 := p256[:strings.LastIndex(p256, "/")]
	if s1 == s256 {
		t.Fatalf("shard prefixes collide: %q", s1)
	}
}

func TestBlobPathTimestampSuffix(t *testing.T) {
	p := BlobPath(7, 123)
	if !strings.HasSuffix(p, "/123") {
		t.Fatalf("missing timestamp suffix: %q", p)
	}
	if !strings.HasPrefix(p, "/data/clipboards/") {
		t.Fatalf("missing namespace prefix: %q", p)
	}
}

func TestBlobPathStableDepth(t *testing.T) {
	for _, id := range []int64{0, 1, 255, 256, 1 << 40, (1 << 56) - 1} {
		p := BlobPath(id, 1)
		if got := strings.Count(p, "/"); got != 10 {
			t.Fatalf("id %d: depth %d want 10 (%q)", id, got, p)
		}
	}
}
