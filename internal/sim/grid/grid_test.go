package grid

import "testing"

func TestNew_Defaults(t *testing.T) {
	w := New("c1", "Town", 16)
	if w.Money != 20000 || w.TaxRate != 9 || w.Speed != 1 {
		t.Fatalf("defaults = money %d tax %d speed %d", w.Money, w.TaxRate, w.Speed)
	}
	if len(w.Cells) != 256 {
		t.Fatalf("cells = %d", len(w.Cells))
	}
	for _, c := range FundingCategories {
		if w.Funding[c] != 100 {
			t.Fatalf("funding[%s] = %d", c, w.Funding[c])
		}
	}
	if w.Cell(0, 0).Building != BuildingGrass || w.Cell(0, 0).Zone != ZoneNone {
		t.Fatalf("corner cell = %+v", w.Cell(0, 0))
	}
}

func TestCell_OutOfRangeIsNil(t *testing.T) {
	w := New("c1", "Town", 8)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {8, 0}, {0, 8}, {100, 100}} {
		if w.Cell(p[0], p[1]) != nil {
			t.Fatalf("cell (%d,%d) not nil", p[0], p[1])
		}
	}
	if w.Cell(7, 7) == nil {
		t.Fatalf("in-range cell nil")
	}
}

func TestClone_Independent(t *testing.T) {
	w := New("c1", "Town", 8)
	w.Cell(2, 2).Building = BuildingRoad
	w.Services.Police[0] = 42
	w.Services.Power[1] = true

	c := w.Clone()
	c.Cell(2, 2).Building = BuildingRail
	c.Services.Police[0] = 7
	c.Services.Power[1] = false
	c.Funding[FundFire] = 5
	c.Money = 0

	if w.Cell(2, 2).Building != BuildingRoad {
		t.Fatalf("clone shares cells")
	}
	if w.Services.Police[0] != 42 || !w.Services.Power[1] {
		t.Fatalf("clone shares service layers")
	}
	if w.Funding[FundFire] != 100 {
		t.Fatalf("clone shares funding map")
	}
	if w.Money != 20000 {
		t.Fatalf("clone shares scalars")
	}
}

func TestToolTables_Consistent(t *testing.T) {
	for tool := range ToolCost {
		if !IsTool(string(tool)) {
			t.Fatalf("priced tool %q not recognized", tool)
		}
	}
	for tool := range ZoneTools {
		if _, ok := ZoneForTool(tool); !ok {
			t.Fatalf("zone tool %q has no zone mapping", tool)
		}
	}
	if _, ok := BuildingForTool(ToolRoad); !ok {
		t.Fatalf("road tool has no building")
	}
	if _, ok := BuildingForTool(ToolBulldoze); ok {
		t.Fatalf("bulldoze mapped to a building")
	}
}
