// Package grid holds the city world data model: a square grid of cells
// plus the global scalars (calendar, money, tax, funding, speed) that the
// executor and observation builder operate on.
package grid

// Zone is the zoning label of a cell.
type Zone string

const (
	ZoneNone        Zone = "none"
	ZoneResidential Zone = "residential"
	ZoneCommercial  Zone = "commercial"
	ZoneIndustrial  Zone = "industrial"
)

// Building is the building (or terrain) kind occupying a cell.
type Building string

const (
	BuildingGrass         Building = "grass"
	BuildingTree          Building = "tree"
	BuildingWater         Building = "water"
	BuildingBridge        Building = "bridge"
	BuildingRoad          Building = "road"
	BuildingRail          Building = "rail"
	BuildingPowerPlant    Building = "power_plant"
	BuildingWaterTower    Building = "water_tower"
	BuildingPoliceStation Building = "police_station"
	BuildingFireStation   Building = "fire_station"
	BuildingHospital      Building = "hospital"
	BuildingSchool        Building = "school"
	BuildingUniversity    Building = "university"
	BuildingSubwayStation Building = "subway_station"
)

// FundingCategory names one slice of the city budget.
type FundingCategory string

const (
	FundPolice    FundingCategory = "police"
	FundFire      FundingCategory = "fire"
	FundHealth    FundingCategory = "health"
	FundEducation FundingCategory = "education"
	FundTransport FundingCategory = "transport"
)

// FundingCategories lists the valid budget keys in a fixed order.
var FundingCategories = []FundingCategory{
	FundPolice, FundFire, FundHealth, FundEducation, FundTransport,
}

func IsFundingCategory(s string) bool {
	for _, c := range FundingCategories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Cell is one grid unit. Metrics are always >= 0.
type Cell struct {
	Zone       Zone
	Building   Building
	Level      int
	Population int
	Jobs       int
	Powered    bool
	Watered    bool

	Traffic   float64
	Pollution float64
	Crime     float64
	LandValue float64

	HasSubway bool
}

// Services holds the per-cell coverage layers, each size*size, row-major.
type Services struct {
	Police    []float64
	Fire      []float64
	Health    []float64
	Education []float64
	Power     []bool
	Water     []bool
}

func newServices(size int) Services {
	n := size * size
	return Services{
		Police:    make([]float64, n),
		Fire:      make([]float64, n),
		Health:    make([]float64, n),
		Education: make([]float64, n),
		Power:     make([]bool, n),
		Water:     make([]bool, n),
	}
}

func (s Services) clone() Services {
	c := Services{
		Police:    make([]float64, len(s.Police)),
		Fire:      make([]float64, len(s.Fire)),
		Health:    make([]float64, len(s.Health)),
		Education: make([]float64, len(s.Education)),
		Power:     make([]bool, len(s.Power)),
		Water:     make([]bool, len(s.Water)),
	}
	copy(c.Police, s.Police)
	copy(c.Fire, s.Fire)
	copy(c.Health, s.Health)
	copy(c.Education, s.Education)
	copy(c.Power, s.Power)
	copy(c.Water, s.Water)
	return c
}

// World is the full simulated city at one instant. The simulation loop
// owns the canonical value; executor/observer receive it by reference and
// must not mutate it concurrently with tick advancement.
type World struct {
	ID       string
	CityName string
	Size     int

	Tick  uint64
	Year  int
	Month int
	Day   int
	Hour  int

	Money   int
	TaxRate int
	Speed   int // 0..3; 0 is paused

	Funding map[FundingCategory]int // 0..100 per category

	Cells    []Cell // size*size, row-major
	Services Services
}

// New returns an all-grass world with default controls.
func New(id, name string, size int) *World {
	w := &World{
		ID:       id,
		CityName: name,
		Size:     size,
		Year:     2000,
		Month:    1,
		Day:      1,
		Money:    20000,
		TaxRate:  9,
		Speed:    1,
		Funding:  map[FundingCategory]int{},
		Cells:    make([]Cell, size*size),
		Services: newServices(size),
	}
	for _, c := range FundingCategories {
		w.Funding[c] = 100
	}
	for i := range w.Cells {
		w.Cells[i] = Cell{Zone: ZoneNone, Building: BuildingGrass}
	}
	return w
}

// InBounds reports whether (x,y) addresses a valid cell. Out-of-range
// coordinates are "absent": lookups never wrap.
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < w.Size && y < w.Size
}

func (w *World) idx(x, y int) int { return y*w.Size + x }

// Cell returns the cell at (x,y), or nil when out of range.
func (w *World) Cell(x, y int) *Cell {
	if !w.InBounds(x, y) {
		return nil
	}
	return &w.Cells[w.idx(x, y)]
}

// CoverageAt returns the continuous coverage value of a service layer at
// (x,y); zero when out of range.
func CoverageAt(layer []float64, w *World, x, y int) float64 {
	if !w.InBounds(x, y) {
		return 0
	}
	return layer[w.idx(x, y)]
}

// BoolAt returns a boolean service layer value at (x,y); false when out
// of range.
func BoolAt(layer []bool, w *World, x, y int) bool {
	if !w.InBounds(x, y) {
		return false
	}
	return layer[w.idx(x, y)]
}

// Clone returns a deep copy. The executor works on a clone so the caller
// observes either the old world or the fully applied one.
func (w *World) Clone() *World {
	c := *w
	c.Cells = make([]Cell, len(w.Cells))
	copy(c.Cells, w.Cells)
	c.Services = w.Services.clone()
	c.Funding = make(map[FundingCategory]int, len(w.Funding))
	for k, v := range w.Funding {
		c.Funding[k] = v
	}
	return &c
}
