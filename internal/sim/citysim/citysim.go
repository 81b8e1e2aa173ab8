// Package citysim is the simulation collaborator for the agent bridge:
// seeded world generation and the single-tick transition the executor
// drives through advanceTicks. It is intentionally a minimal model:
// the bridge only needs a live, deterministic world to observe and
// mutate, not simulation fidelity.
package citysim

import (
	"math/rand"

	"citymayor.ai/internal/sim/grid"
)

// Config parameterizes a fresh world.
type Config struct {
	ID       string
	CityName string
	Size     int
	Seed     int64
}

// NewWorld generates terrain from the seed: a meandering river band and
// scattered vegetation over open ground.
func NewWorld(cfg Config) *grid.World {
	w := grid.New(cfg.ID, cfg.CityName, cfg.Size)
	rng := rand.New(rand.NewSource(cfg.Seed))

	riverX := cfg.Size / 3
	for y := 0; y < cfg.Size; y++ {
		drift := rng.Intn(3) - 1
		riverX += drift
		if riverX < 1 {
			riverX = 1
		}
		if riverX > cfg.Size-3 {
			riverX = cfg.Size - 3
		}
		for dx := 0; dx < 2; dx++ {
			if c := w.Cell(riverX+dx, y); c != nil {
				c.Building = grid.BuildingWater
			}
		}
	}

	for i := range w.Cells {
		if w.Cells[i].Building == grid.BuildingGrass && rng.Intn(100) < 12 {
			w.Cells[i].Building = grid.BuildingTree
		}
	}
	return w
}

const (
	hoursPerDay   = 24
	daysPerMonth  = 30
	monthsPerYear = 12
)

type serviceSpread struct {
	building grid.Building
	radius   int
	funding  grid.FundingCategory
}

var coverageSpreads = []struct {
	spread serviceSpread
	layer  func(*grid.World) []float64
}{
	{serviceSpread{grid.BuildingPoliceStation, 8, grid.FundPolice}, func(w *grid.World) []float64 { return w.Services.Police }},
	{serviceSpread{grid.BuildingFireStation, 8, grid.FundFire}, func(w *grid.World) []float64 { return w.Services.Fire }},
	{serviceSpread{grid.BuildingHospital, 8, grid.FundHealth}, func(w *grid.World) []float64 { return w.Services.Health }},
	{serviceSpread{grid.BuildingSchool, 6, grid.FundEducation}, func(w *grid.World) []float64 { return w.Services.Education }},
	{serviceSpread{grid.BuildingUniversity, 10, grid.FundEducation}, func(w *grid.World) []float64 { return w.Services.Education }},
}

// Step advances the world by one tick and returns the new value; the
// input is not mutated. Deterministic for a given input.
func Step(w *grid.World) *grid.World {
	next := w.Clone()

	next.Tick++
	next.Hour++
	if next.Hour >= hoursPerDay {
		next.Hour = 0
		next.Day++
	}
	if next.Day > daysPerMonth {
		next.Day = 1
		next.Month++
		collectTaxes(next)
	}
	if next.Month > monthsPerYear {
		next.Month = 1
		next.Year++
	}

	refreshCoverage(next)
	growCells(next)
	updateMetrics(next)
	return next
}

func collectTaxes(w *grid.World) {
	var population, jobs int
	for i := range w.Cells {
		population += w.Cells[i].Population
		jobs += w.Cells[i].Jobs
	}
	income := (population + jobs/2) * w.TaxRate / 10

	outlay := 0
	for _, spread := range coverageSpreads {
		count := 0
		for i := range w.Cells {
			if w.Cells[i].Building == spread.spread.building {
				count++
			}
		}
		outlay += count * w.Funding[spread.spread.funding] / 4
	}
	w.Money += income - outlay
}

func refreshCoverage(w *grid.World) {
	for i := range w.Services.Police {
		w.Services.Police[i] = 0
		w.Services.Fire[i] = 0
		w.Services.Health[i] = 0
		w.Services.Education[i] = 0
		w.Services.Power[i] = false
		w.Services.Water[i] = false
	}

	for _, cs := range coverageSpreads {
		layer := cs.layer(w)
		scale := float64(w.Funding[cs.spread.funding]) / 100
		for y := 0; y < w.Size; y++ {
			for x := 0; x < w.Size; x++ {
				if w.Cells[y*w.Size+x].Building != cs.spread.building {
					continue
				}
				stamp(layer, w, x, y, cs.spread.radius, scale)
			}
		}
	}

	stampBool := func(layer []bool, x, y, radius int) {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				nx, ny := x+dx, y+dy
				if !w.InBounds(nx, ny) {
					continue
				}
				if dx*dx+dy*dy <= radius*radius {
					layer[ny*w.Size+nx] = true
				}
			}
		}
	}
	for y := 0; y < w.Size; y++ {
		for x := 0; x < w.Size; x++ {
			switch w.Cells[y*w.Size+x].Building {
			case grid.BuildingPowerPlant:
				stampBool(w.Services.Power, x, y, 12)
			case grid.BuildingWaterTower:
				stampBool(w.Services.Water, x, y, 8)
			}
		}
	}

	for i := range w.Cells {
		w.Cells[i].Powered = w.Services.Power[i]
		w.Cells[i].Watered = w.Services.Water[i]
	}
}

// stamp writes distance-decayed coverage around a station, keeping the
// best value where stations overlap.
func stamp(layer []float64, w *grid.World, x, y, radius int, scale float64) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := x+dx, y+dy
			if !w.InBounds(nx, ny) {
				continue
			}
			d2 := dx*dx + dy*dy
			if d2 > radius*radius {
				continue
			}
			v := (100 - float64(d2)*100/float64(radius*radius)) * scale
			i := ny*w.Size + nx
			if v > layer[i] {
				layer[i] = v
			}
		}
	}
}

func growCells(w *grid.World) {
	for i := range w.Cells {
		c := &w.Cells[i]
		if c.Zone == grid.ZoneNone || !c.Powered || !c.Watered {
			continue
		}
		x, y := i%w.Size, i/w.Size
		if !hasNearbyRoad(w, x, y) {
			continue
		}
		switch c.Zone {
		case grid.ZoneResidential:
			if c.Population < 50 {
				c.Population++
			}
		case grid.ZoneCommercial:
			if c.Jobs < 40 {
				c.Jobs++
			}
		case grid.ZoneIndustrial:
			if c.Jobs < 60 {
				c.Jobs++
			}
		}
		if c.Level < 1+(c.Population+c.Jobs)/20 {
			c.Level++
		}
	}
}

func hasNearbyRoad(w *grid.World, x, y int) bool {
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			c := w.Cell(x+dx, y+dy)
			if c != nil && (c.Building == grid.BuildingRoad || c.Building == grid.BuildingBridge) {
				return true
			}
		}
	}
	return false
}

func updateMetrics(w *grid.World) {
	for i := range w.Cells {
		c := &w.Cells[i]
		x, y := i%w.Size, i/w.Size

		switch c.Building {
		case grid.BuildingRoad, grid.BuildingBridge:
			load := float64(neighborhoodDemand(w, x, y))
			c.Traffic = decayToward(c.Traffic, load)
		default:
			c.Traffic = decayToward(c.Traffic, 0)
		}

		pollutionTarget := 0.0
		if c.Zone == grid.ZoneIndustrial {
			pollutionTarget = float64(c.Jobs)
		}
		if c.Building == grid.BuildingPowerPlant {
			pollutionTarget = 80
		}
		pollutionTarget += c.Traffic / 4
		c.Pollution = decayToward(c.Pollution, pollutionTarget)

		crimeTarget := float64(c.Population) - w.Services.Police[i]
		if crimeTarget < 0 {
			crimeTarget = 0
		}
		c.Crime = decayToward(c.Crime, crimeTarget)

		land := 50 - c.Pollution/2 - c.Crime/2 + w.Services.Education[i]/4
		if land < 0 {
			land = 0
		}
		c.LandValue = land
	}
}

func neighborhoodDemand(w *grid.World, x, y int) int {
	demand := 0
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if c := w.Cell(x+dx, y+dy); c != nil {
				demand += c.Population/4 + c.Jobs/4
			}
		}
	}
	return demand
}

// decayToward moves a metric a quarter of the way to its target; metrics
// never go negative.
func decayToward(current, target float64) float64 {
	v := current + (target-current)/4
	if v < 0 {
		return 0
	}
	return v
}
