package obslog

import (
	"path/filepath"
	"testing"

	"citymayor.ai/internal/protocol"
)

func testObservation(tick uint64) *protocol.Observation {
	return &protocol.Observation{
		APIVersion: protocol.APIVersion,
		At:         int64(1700000000000 + tick),
		City:       protocol.CityInfo{ID: "c1", Name: "Town"},
		Time:       protocol.TimeInfo{Tick: tick},
		Grid:       protocol.GridInfo{Size: 8},
	}
}

func TestArchive_AppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.jsonl.zst")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	for i := uint64(1); i <= 3; i++ {
		if err := w.Append(testObservation(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d observations, want 3", len(got))
	}
	for i, obs := range got {
		if obs.Time.Tick != uint64(i+1) {
			t.Fatalf("obs[%d] tick = %d", i, obs.Time.Tick)
		}
		if obs.City.ID != "c1" {
			t.Fatalf("obs[%d] city = %+v", i, obs.City)
		}
	}
}

func TestArchive_AppendAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.jsonl.zst")

	for run := uint64(0); run < 2; run++ {
		w, err := NewWriter(path)
		if err != nil {
			t.Fatalf("reopen %d: %v", run, err)
		}
		if err := w.Append(testObservation(run + 1)); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].Time.Tick != 1 || got[1].Time.Tick != 2 {
		t.Fatalf("reopened archive = %d observations", len(got))
	}
}

func TestArchive_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "obs.jsonl.zst")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	if _, err := ReadAll(filepath.Join(t.TempDir(), "absent.zst")); err == nil {
		t.Fatalf("missing archive accepted")
	}
}
