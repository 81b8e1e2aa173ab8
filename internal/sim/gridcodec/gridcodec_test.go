package gridcodec

import (
	"testing"

	"citymayor.ai/internal/sim/grid"
)

func TestEncode_RoundTrip(t *testing.T) {
	w := grid.New("c1", "Town", 16)
	w.Tick = 99
	for y := 0; y < 16; y++ {
		w.Cell(5, y).Building = grid.BuildingWater
	}
	w.Cell(2, 2).Building = grid.BuildingRoad
	w.Cell(3, 3).Zone = grid.ZoneIndustrial

	s := Encode(w)
	if s.Size != 16 || s.Tick != 99 {
		t.Fatalf("header = %+v", s)
	}

	buildings, zones, err := Decode(s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range w.Cells {
		if buildings[i] != w.Cells[i].Building {
			t.Fatalf("building mismatch at %d: %s vs %s", i, buildings[i], w.Cells[i].Building)
		}
		if zones[i] != w.Cells[i].Zone {
			t.Fatalf("zone mismatch at %d: %s vs %s", i, zones[i], w.Cells[i].Zone)
		}
	}
}

func TestEncode_PaletteFirstSeenOrder(t *testing.T) {
	w := grid.New("c1", "Town", 8)
	w.Cell(0, 0).Building = grid.BuildingRoad

	s := Encode(w)
	if len(s.Palette) != 2 || s.Palette[0] != grid.BuildingRoad || s.Palette[1] != grid.BuildingGrass {
		t.Fatalf("palette = %v", s.Palette)
	}
}

func TestEncode_UniformGridIsTiny(t *testing.T) {
	w := grid.New("c1", "Town", 64)
	s := Encode(w)
	// 4096 identical cells collapse to one (id, run) pair.
	if len(s.Cells) > 12 {
		t.Fatalf("uniform grid encoded to %d chars", len(s.Cells))
	}
}

func TestDecode_Corrupt(t *testing.T) {
	if _, _, err := Decode(Snapshot{Size: 8, Cells: "!!!", Zones: "!!!"}); err == nil {
		t.Fatalf("bad base64 accepted")
	}

	w := grid.New("c1", "Town", 8)
	s := Encode(w)
	s.Size = 9 // count mismatch
	if _, _, err := Decode(s); err == nil {
		t.Fatalf("size mismatch accepted")
	}
}
