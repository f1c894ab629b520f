package zonefs

import (
	"testing"

	"ozonedb/internal/model"
)

func TestFormatAndParseFileNumber(t *testing.T) {
	for _, n := range []uint64{0, 1, 42, 999, 123456789} {
		s := FormatFileNumber(n)
		got, err := ParseFileNumber(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got != n {
			t.Fatalf("round trip mismatch: %d -> %q -> %d", n, s, got)
		}
	}
}

func TestOpenLiveAndListFileNumbers(t *testing.T) {
	dir, err := NewDir(t.TempDir(), 2000)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	pair, err := dir.OpenLive(1)
	if err != nil {
		t.Fatalf("OpenLive: %v", err)
	}
	defer pair.Close()
	if pair.DataOffset != 0 || pair.IndexOffset != 0 {
		t.Fatalf("expected zero offsets for a new file pair")
	}
	if _, err := pair.DataFile.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	nums, err := dir.ExistingFileNumbers()
	if err != nil {
		t.Fatalf("ExistingFileNumbers: %v", err)
	}
	if len(nums) != 1 || nums[0] != 1 {
		t.Fatalf("expected [1], got %v", nums)
	}
}

func TestWouldExceedLimit(t *testing.T) {
	dir := &Dir{FileSizeLimit: 100}
	if !dir.WouldExceedLimit(90, 20) {
		t.Fatalf("expected limit exceeded")
	}
	if dir.WouldExceedLimit(10, 20) {
		t.Fatalf("did not expect limit exceeded")
	}
}

func TestRemove(t *testing.T) {
	dir, _ := NewDir(t.TempDir(), 0)
	pair, err := dir.OpenLive(5)
	if err != nil {
		t.Fatalf("OpenLive: %v", err)
	}
	pair.Close()
	if err := dir.Remove(5); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := dir.OpenForRead(5, model.FileTypeData); err == nil {
		t.Fatalf("expected file to be gone after Remove")
	}
}
