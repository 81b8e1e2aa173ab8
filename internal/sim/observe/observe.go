// Package observe compresses a full world into the bounded observation
// snapshot the agent consumes: counts, coverage percentages, ranked
// hotspots, deficit maps and a few local ASCII windows.
package observe

import (
	"sort"
	"time"

	"citymayor.ai/internal/protocol"
	"citymayor.ai/internal/sim/grid"
)

const (
	hotspotLimit  = 10
	windowRadius  = 6
	maxWindows    = 3
	roadBFSRadius = 8
)

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func pct(covered, total int) float64 {
	if total <= 0 {
		return 0
	}
	return clampPct(float64(covered) / float64(total) * 100)
}

// topHotspots keeps the highest-valued entries, stable in scan order on
// ties, and drops non-positive values.
func topHotspots(all []protocol.Hotspot, limit int) []protocol.Hotspot {
	kept := make([]protocol.Hotspot, 0, len(all))
	for _, h := range all {
		if h.Value > 0 {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Value > kept[j].Value })
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func developed(c *grid.Cell) bool {
	return c.Zone != grid.ZoneNone || c.Population > 0 || c.Jobs > 0
}

// Build scans w once and produces an immutable observation. O(size²)
// time; the zone-confined road searches are bounded so the scan stays
// linear in practice.
func Build(w *grid.World) *protocol.Observation {
	size := w.Size
	total := size * size

	var zones protocol.ZoneCounts
	var buildings protocol.BuildingCounts

	var traffic, pollution, crime []protocol.Hotspot
	var policeCovered, fireCovered, healthCovered, educationCovered, powerCovered, waterCovered int

	var developedTiles, population, jobs int
	var policeDef, fireDef, healthDef, educationDef, powerDef, waterDef, roadDef []protocol.Hotspot

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*size + x
			cell := &w.Cells[i]

			switch cell.Zone {
			case grid.ZoneResidential:
				zones.Residential++
			case grid.ZoneCommercial:
				zones.Commercial++
			case grid.ZoneIndustrial:
				zones.Industrial++
			default:
				zones.None++
			}
			countBuilding(&buildings, cell.Building)

			population += cell.Population
			jobs += cell.Jobs

			if cell.Traffic > 0 {
				traffic = append(traffic, protocol.Hotspot{X: x, Y: y, Value: cell.Traffic})
			}
			if cell.Pollution > 0 {
				pollution = append(pollution, protocol.Hotspot{X: x, Y: y, Value: cell.Pollution})
			}
			if cell.Crime > 0 {
				crime = append(crime, protocol.Hotspot{X: x, Y: y, Value: cell.Crime})
			}

			if w.Services.Police[i] > 0 {
				policeCovered++
			}
			if w.Services.Fire[i] > 0 {
				fireCovered++
			}
			if w.Services.Health[i] > 0 {
				healthCovered++
			}
			if w.Services.Education[i] > 0 {
				educationCovered++
			}
			if w.Services.Power[i] {
				powerCovered++
			}
			if w.Services.Water[i] {
				waterCovered++
			}

			if !developed(cell) {
				continue
			}
			developedTiles++
			weight := float64(1 + cell.Population + cell.Jobs)

			policeDef = append(policeDef, protocol.Hotspot{X: x, Y: y, Value: deficit(w.Services.Police[i]) * weight})
			fireDef = append(fireDef, protocol.Hotspot{X: x, Y: y, Value: deficit(w.Services.Fire[i]) * weight})
			healthDef = append(healthDef, protocol.Hotspot{X: x, Y: y, Value: deficit(w.Services.Health[i]) * weight})
			educationDef = append(educationDef, protocol.Hotspot{X: x, Y: y, Value: deficit(w.Services.Education[i]) * weight})
			if !w.Services.Power[i] {
				powerDef = append(powerDef, protocol.Hotspot{X: x, Y: y, Value: weight * 100})
			}
			if !w.Services.Water[i] {
				waterDef = append(waterDef, protocol.Hotspot{X: x, Y: y, Value: weight * 100})
			}

			if cell.Zone != grid.ZoneNone && weight > 1 {
				if !hasAdjacentRoad(w, x, y) && !hasRoadAccessWithinZone(w, x, y) {
					roadDef = append(roadDef, protocol.Hotspot{X: x, Y: y, Value: weight})
				}
			}
		}
	}

	hs := protocol.Hotspots{
		Traffic:   topHotspots(traffic, hotspotLimit),
		Pollution: topHotspots(pollution, hotspotLimit),
		Crime:     topHotspots(crime, hotspotLimit),
	}
	deficits := protocol.ServiceDeficits{
		Police:     topHotspots(policeDef, hotspotLimit),
		Fire:       topHotspots(fireDef, hotspotLimit),
		Health:     topHotspots(healthDef, hotspotLimit),
		Education:  topHotspots(educationDef, hotspotLimit),
		Power:      topHotspots(powerDef, hotspotLimit),
		Water:      topHotspots(waterDef, hotspotLimit),
		RoadAccess: topHotspots(roadDef, hotspotLimit),
	}

	funding := make(map[string]int, len(w.Funding))
	for k, v := range w.Funding {
		funding[string(k)] = v
	}

	return &protocol.Observation{
		APIVersion: protocol.APIVersion,
		At:         time.Now().UnixMilli(),
		City:       protocol.CityInfo{ID: w.ID, Name: w.CityName},
		Time: protocol.TimeInfo{
			Tick: w.Tick, Year: w.Year, Month: w.Month, Day: w.Day, Hour: w.Hour,
		},
		Controls: protocol.Controls{Speed: w.Speed, TaxRate: w.TaxRate, Funding: funding},
		Stats:    protocol.CityStats{Money: w.Money, Population: population, Jobs: jobs},
		Grid:     protocol.GridInfo{Size: size, ZoneCounts: zones, BuildingCounts: buildings},
		Services: protocol.ServicesInfo{
			CoveragePct: protocol.CoveragePct{
				Police:    pct(policeCovered, total),
				Fire:      pct(fireCovered, total),
				Health:    pct(healthCovered, total),
				Education: pct(educationCovered, total),
				Power:     pct(powerCovered, total),
				Water:     pct(waterCovered, total),
			},
		},
		Hotspots: hs,
		Spatial: &protocol.Spatial{
			DevelopedTiles:  developedTiles,
			ServiceDeficits: deficits,
			Windows:         buildWindows(w, hs, deficits),
		},
	}
}

func deficit(coverage float64) float64 {
	d := 100 - coverage
	if d < 0 {
		return 0
	}
	return d
}

func countBuilding(bc *protocol.BuildingCounts, b grid.Building) {
	switch b {
	case grid.BuildingRoad:
		bc.Road++
	case grid.BuildingRail:
		bc.Rail++
	case grid.BuildingPowerPlant:
		bc.PowerPlant++
	case grid.BuildingWaterTower:
		bc.WaterTower++
	case grid.BuildingPoliceStation:
		bc.PoliceStation++
	case grid.BuildingFireStation:
		bc.FireStation++
	case grid.BuildingHospital:
		bc.Hospital++
	case grid.BuildingSchool:
		bc.School++
	case grid.BuildingUniversity:
		bc.University++
	}
}

func isRoadLike(c *grid.Cell) bool {
	return c != nil && (c.Building == grid.BuildingRoad || c.Building == grid.BuildingBridge)
}

func hasAdjacentRoad(w *grid.World, x, y int) bool {
	return isRoadLike(w.Cell(x-1, y)) || isRoadLike(w.Cell(x+1, y)) ||
		isRoadLike(w.Cell(x, y-1)) || isRoadLike(w.Cell(x, y+1))
}

// hasRoadAccessWithinZone runs a bounded BFS confined to cells of the
// start cell's zone (skipping water), looking for any road or bridge
// within roadBFSRadius steps. The zone confinement keeps a deficit from
// flooding across unrelated zones and bounds the search cost.
func hasRoadAccessWithinZone(w *grid.World, startX, startY int) bool {
	start := w.Cell(startX, startY)
	if start == nil {
		return false
	}
	zone := start.Zone
	if zone == grid.ZoneNone {
		return true
	}

	size := w.Size
	visited := make([]bool, size*size)
	visited[startY*size+startX] = true

	type node struct{ x, y, dist int }
	queue := []node{{startX, startY, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= roadBFSRadius {
			continue
		}

		neighbors := [4][2]int{
			{cur.x - 1, cur.y},
			{cur.x + 1, cur.y},
			{cur.x, cur.y - 1},
			{cur.x, cur.y + 1},
		}
		for _, n := range neighbors {
			nx, ny := n[0], n[1]
			if nx < 0 || nx >= size || ny < 0 || ny >= size {
				continue
			}
			i := ny*size + nx
			if visited[i] {
				continue
			}
			visited[i] = true

			cell := &w.Cells[i]
			if cell.Building == grid.BuildingRoad || cell.Building == grid.BuildingBridge {
				return true
			}
			if cell.Zone == zone && cell.Building != grid.BuildingWater {
				queue = append(queue, node{nx, ny, cur.dist + 1})
			}
		}
	}
	return false
}

func buildWindows(w *grid.World, hs protocol.Hotspots, deficits protocol.ServiceDeficits) []protocol.Window {
	type candidate struct {
		label string
		x, y  int
	}
	var candidates []candidate
	if len(hs.Crime) > 0 {
		candidates = append(candidates, candidate{"crime_hotspot", hs.Crime[0].X, hs.Crime[0].Y})
	}
	if len(hs.Pollution) > 0 {
		candidates = append(candidates, candidate{"pollution_hotspot", hs.Pollution[0].X, hs.Pollution[0].Y})
	}
	if len(deficits.RoadAccess) > 0 {
		candidates = append(candidates, candidate{"road_access_gap", deficits.RoadAccess[0].X, deficits.RoadAccess[0].Y})
	}
	if len(candidates) > maxWindows {
		candidates = candidates[:maxWindows]
	}

	windows := make([]protocol.Window, 0, len(candidates))
	for _, c := range candidates {
		win := protocol.Window{
			Label:  c.label,
			Radius: windowRadius,
			Rows:   renderWindow(w, c.x, c.y, windowRadius),
		}
		win.Center.X = c.x
		win.Center.Y = c.y
		windows = append(windows, win)
	}
	return windows
}

func clampCoord(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// renderWindow draws the neighborhood around (cx,cy) with one symbol per
// cell: terrain and infrastructure first, then zoning.
func renderWindow(w *grid.World, cx, cy, radius int) []string {
	minY := clampCoord(cy-radius, 0, w.Size-1)
	maxY := clampCoord(cy+radius, 0, w.Size-1)
	minX := clampCoord(cx-radius, 0, w.Size-1)
	maxX := clampCoord(cx+radius, 0, w.Size-1)

	rows := make([]string, 0, maxY-minY+1)
	for y := minY; y <= maxY; y++ {
		row := make([]byte, 0, maxX-minX+1)
		for x := minX; x <= maxX; x++ {
			row = append(row, cellSymbol(w.Cell(x, y)))
		}
		rows = append(rows, string(row))
	}
	return rows
}

func cellSymbol(c *grid.Cell) byte {
	if c == nil {
		return ' '
	}
	switch c.Building {
	case grid.BuildingWater:
		return '~'
	case grid.BuildingBridge:
		return '#'
	case grid.BuildingRoad:
		return '='
	case grid.BuildingRail:
		return '-'
	case grid.BuildingPowerPlant:
		return 'P'
	case grid.BuildingWaterTower:
		return 'W'
	case grid.BuildingPoliceStation:
		return 'p'
	case grid.BuildingFireStation:
		return 'f'
	case grid.BuildingHospital:
		return 'h'
	case grid.BuildingSchool:
		return 's'
	case grid.BuildingUniversity:
		return 'u'
	case grid.BuildingTree:
		return 't'
	}
	switch c.Zone {
	case grid.ZoneResidential:
		return 'R'
	case grid.ZoneCommercial:
		return 'C'
	case grid.ZoneIndustrial:
		return 'I'
	}
	return '.'
}
