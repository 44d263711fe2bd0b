package dedup

import "testing"

func TestLookupAndAdd(t *testing.T) {
	s := NewSet(8)
	if _, ok := s.Lookup("Bitmap", "bmp:d:1:country"); ok {
		t.Fatalf("expected no entry before Add")
	}
	s.Add("Bitmap", "bmp:d:1:country", 0)
	idx, ok := s.Lookup("Bitmap", "bmp:d:1:country")
	if !ok || idx != 0 {
		t.Fatalf("Lookup() = %d, %v; want 0, true", idx, ok)
	}
}

func TestLookupDistinguishesKind(t *testing.T) {
	s := NewSet(8)
	s.Add("Bitmap", "bmp:d:1:country", 0)
	if _, ok := s.Lookup("Increment", "bmp:d:1:country"); ok {
		t.Fatalf("different kind with the same key string must not collide")
	}
}

func TestLookupDistinguishesKey(t *testing.T) {
	s := NewSet(8)
	s.Add("Bitmap", "bmp:d:1:country", 0)
	if _, ok := s.Lookup("Bitmap", "bmp:d:2:country"); ok {
		t.Fatalf("different key with the same kind must not collide")
	}
}

func TestReset(t *testing.T) {
	s := NewSet(4)
	s.Add("Bitmap", "a", 0)
	s.Reset()
	if _, ok := s.Lookup("Bitmap", "a"); ok {
		t.Fatalf("expected no entry after Reset")
	}
}
