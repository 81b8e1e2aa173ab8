// Package executor interprets agent intent batches against a world,
// producing the next world. Invalid or inapplicable intents degrade to
// no-ops rather than errors: a hallucinating agent must never be able to
// crash the loop, at the accepted cost of silently swallowing its
// mistakes.
package executor

import (
	"citymayor.ai/internal/protocol"
	"citymayor.ai/internal/sim/grid"
	"citymayor.ai/internal/sim/pathfind"
)

// StepFunc is the single-tick world transition, owned by the simulation
// collaborator.
type StepFunc func(*grid.World) *grid.World

// MaxAdvanceTicks bounds a single advanceTicks intent; the clamp doubles
// as crude backpressure against runaway agent requests.
const MaxAdvanceTicks = 500

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Apply executes a whole batch against w and returns the resulting
// world. The input is never mutated. Simulation speed is forced to 0 for
// the duration of the batch and restored afterwards unless the batch
// itself ran an explicit setSpeed, so a batch never interleaves with an
// autonomous tick.
func Apply(w *grid.World, batch protocol.Batch, step StepFunc) *grid.World {
	next := w.Clone()

	speedBefore := next.Speed
	didSetSpeed := false
	next.Speed = 0

	for _, in := range batch.Actions {
		if in.Type == protocol.IntentSetSpeed {
			didSetSpeed = true
		}
		next = applyIntent(next, in, step)
	}

	if !didSetSpeed {
		next.Speed = speedBefore
	}
	return next
}

func applyIntent(w *grid.World, in protocol.Intent, step StepFunc) *grid.World {
	switch in.Type {
	case protocol.IntentSetSpeed:
		w.Speed = in.Speed
		return w

	case protocol.IntentSetTaxRate:
		w.TaxRate = clamp(in.Rate, 0, 100)
		return w

	case protocol.IntentSetBudgetFunding:
		if _, ok := w.Funding[in.Key]; !ok {
			return w
		}
		w.Funding[in.Key] = clamp(in.Funding, 0, 100)
		return w

	case protocol.IntentPlace:
		placeTool(w, in.Tool, in.X, in.Y)
		return w

	case protocol.IntentZoneRect:
		x1, x2 := in.X1, in.X2
		if x1 > x2 {
			x1, x2 = x2, x1
		}
		y1, y2 := in.Y1, in.Y2
		if y1 > y2 {
			y1, y2 = y2, y1
		}
		// Row-major, each cell independent; a partially unaffordable run
		// applies as far as funds reach.
		for y := y1; y <= y2; y++ {
			for x := x1; x <= x2; x++ {
				placeTool(w, in.Tool, x, y)
			}
		}
		return w

	case protocol.IntentBuildTrackPath:
		path := pathfind.RoutePath(w, in.Path, in.TrackType)
		buildTrack(w, path, in.TrackType)
		return w

	case protocol.IntentBuildTrackBetween:
		if in.From == nil || in.To == nil {
			return w
		}
		path := pathfind.Route(w, *in.From, *in.To, in.TrackType)
		buildTrack(w, path, in.TrackType)
		return w

	case protocol.IntentAdvanceTicks:
		if step == nil {
			return w
		}
		count := clamp(in.Count, 0, MaxAdvanceTicks)
		for i := 0; i < count; i++ {
			w = step(w)
		}
		return w

	default:
		return w
	}
}

func buildTrack(w *grid.World, path []grid.Point, kind pathfind.TrackKind) {
	tool := grid.ToolRoad
	if kind == pathfind.TrackRail {
		tool = grid.ToolRail
	}
	for _, p := range path {
		placeTool(w, tool, p.X, p.Y)
	}
	bridgeWaterSpans(w, path)
}

// bridgeWaterSpans converts every contiguous water run the path crosses
// into bridge cells, so a routed track is traversable end to end.
func bridgeWaterSpans(w *grid.World, path []grid.Point) {
	i := 0
	for i < len(path) {
		c := w.Cell(path[i].X, path[i].Y)
		if c == nil || c.Building != grid.BuildingWater {
			i++
			continue
		}
		j := i
		for j < len(path) {
			sc := w.Cell(path[j].X, path[j].Y)
			if sc == nil || sc.Building != grid.BuildingWater {
				break
			}
			j++
		}
		for k := i; k < j; k++ {
			span := w.Cell(path[k].X, path[k].Y)
			span.Building = grid.BuildingBridge
		}
		i = j
	}
}

// placeTool resolves a tool to a zoning change or building placement and
// applies it when every precondition holds. Any failed precondition,
// including affordability, leaves the world untouched.
func placeTool(w *grid.World, tool grid.Tool, x, y int) {
	cell := w.Cell(x, y)
	if cell == nil {
		return
	}
	cost := grid.ToolCost[tool]
	if cost > 0 && w.Money < cost {
		return
	}

	switch tool {
	case grid.ToolBulldoze:
		// Water is terrain, not a structure; reclaiming it is what
		// zone_land charges for.
		if cell.Building == grid.BuildingWater {
			return
		}
		if cell.Building == grid.BuildingGrass && cell.Zone == grid.ZoneNone {
			return
		}
		cell.Building = grid.BuildingGrass
		cell.Zone = grid.ZoneNone
		cell.Level = 0
		cell.Population = 0
		cell.Jobs = 0

	case grid.ToolSubway:
		if cell.Building == grid.BuildingWater || cell.HasSubway {
			return
		}
		cell.HasSubway = true

	case grid.ToolZoneWater:
		if cell.Building == grid.BuildingWater || cell.Building == grid.BuildingBridge {
			return
		}
		cell.Building = grid.BuildingWater
		cell.Zone = grid.ZoneNone
		cell.Level = 0
		cell.Population = 0
		cell.Jobs = 0
		cell.HasSubway = false

	case grid.ToolZoneLand:
		if cell.Building != grid.BuildingWater {
			return
		}
		cell.Building = grid.BuildingGrass

	default:
		if zone, ok := grid.ZoneForTool(tool); ok {
			if cell.Zone == zone {
				return
			}
			if cell.Building == grid.BuildingWater || cell.Building == grid.BuildingBridge {
				return
			}
			cell.Zone = zone
			if zone == grid.ZoneNone {
				cell.Population = 0
				cell.Jobs = 0
				cell.Level = 0
			}
		} else if b, ok := grid.BuildingForTool(tool); ok {
			if cell.Building == b {
				return
			}
			// Water needs terraforming first; bridges stay bridges so a
			// reroute over an existing crossing cannot sink it.
			if cell.Building == grid.BuildingWater || cell.Building == grid.BuildingBridge {
				return
			}
			cell.Building = b
			cell.Level = 1
		} else {
			return
		}
	}

	if cost > 0 {
		w.Money -= cost
	}
}
