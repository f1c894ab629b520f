package errs

import (
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := Wrap(KindCorruption, "checksum mismatch", errors.New("boom"))
	if KindOf(err) != KindCorruption {
		t.Fatalf("KindOf = %v, want %v", KindOf(err), KindCorruption)
	}
}

func TestIsSentinel(t *testing.T) {
	err := New(KindNotFound, "key absent")
	if !errors.Is(err, NotFound) {
		t.Fatalf("expected errors.Is(err, NotFound) to hold")
	}
	if errors.Is(err, Corruption) {
		t.Fatalf("expected errors.Is(err, Corruption) to be false")
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(KindIO, "open failed", nil)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error")
	}
	if e.Err != nil {
		t.Fatalf("expected nil cause")
	}
}

func TestUnknownDefault(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected KindUnknown for a plain error")
	}
}
