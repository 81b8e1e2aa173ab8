// Package pathfind answers shortest-path queries over the world's
// passability graph for road/rail construction.
package pathfind

import "citymayor.ai/internal/sim/grid"

// TrackKind selects the passability rules for a route.
type TrackKind string

const (
	TrackRoad TrackKind = "road"
	TrackRail TrackKind = "rail"
)

func IsTrackKind(s string) bool {
	return s == string(TrackRoad) || s == string(TrackRail)
}

// Passable reports whether a cell of the given building kind admits the
// track kind. Water never passes, a bridge always does; open ground,
// vegetation and existing tracks of either kind pass for both, so
// tracks may share space.
func Passable(b grid.Building, kind TrackKind) bool {
	switch b {
	case grid.BuildingWater:
		return false
	case grid.BuildingBridge:
		return true
	case grid.BuildingGrass, grid.BuildingTree, grid.BuildingRoad, grid.BuildingRail:
		return true
	default:
		return false
	}
}

// steppingPath is the fallback when BFS cannot run or finds no path:
// walk along x to the target column, then along y to the target row,
// truncated at max points. Any pair of in-grid endpoints fits within
// 2*size points, so the cap only bites on out-of-range requests.
// Callers must tolerate impassable cells on a fallback path.
func steppingPath(from, to grid.Point, max int) []grid.Point {
	path := []grid.Point{from}
	x, y := from.X, from.Y
	for x != to.X && len(path) < max {
		if x < to.X {
			x++
		} else {
			x--
		}
		path = append(path, grid.Point{X: x, Y: y})
	}
	for y != to.Y && len(path) < max {
		if y < to.Y {
			y++
		} else {
			y--
		}
		path = append(path, grid.Point{X: x, Y: y})
	}
	return path
}

// Route finds an unweighted shortest path from from to to over cells
// passable for kind, as a sequence of 4-connected points including both
// endpoints. Expansion order is fixed (west, east, north, south) so the
// result is deterministic for a given world. Falls back to the direct
// stepping path when either endpoint is absent or impassable, or when no
// path exists.
func Route(w *grid.World, from, to grid.Point, kind TrackKind) []grid.Point {
	size := w.Size

	start := w.Cell(from.X, from.Y)
	goal := w.Cell(to.X, to.Y)
	if start == nil || goal == nil {
		return steppingPath(from, to, 2*size)
	}
	if !Passable(start.Building, kind) || !Passable(goal.Building, kind) {
		return steppingPath(from, to, 2*size)
	}

	startIdx := int32(from.Y*size + from.X)
	goalIdx := int32(to.Y*size + to.X)

	// prev[i] == -1 means unvisited; the first reach of a cell fixes its
	// predecessor for good.
	prev := make([]int32, size*size)
	for i := range prev {
		prev[i] = -1
	}
	prev[startIdx] = startIdx

	qx := make([]int16, 0, size*size)
	qy := make([]int16, 0, size*size)
	qx = append(qx, int16(from.X))
	qy = append(qy, int16(from.Y))

	for head := 0; head < len(qx); head++ {
		cx := int(qx[head])
		cy := int(qy[head])
		cIdx := int32(cy*size + cx)
		if cIdx == goalIdx {
			break
		}

		neighbors := [4][2]int{
			{cx - 1, cy},
			{cx + 1, cy},
			{cx, cy - 1},
			{cx, cy + 1},
		}
		reached := false
		for _, n := range neighbors {
			nx, ny := n[0], n[1]
			if nx < 0 || nx >= size || ny < 0 || ny >= size {
				continue
			}
			nIdx := int32(ny*size + nx)
			if prev[nIdx] != -1 {
				continue
			}
			if !Passable(w.Cells[int(nIdx)].Building, kind) {
				continue
			}
			prev[nIdx] = cIdx
			qx = append(qx, int16(nx))
			qy = append(qy, int16(ny))
			if nIdx == goalIdx {
				reached = true
				break
			}
		}
		if reached {
			break
		}
	}

	if prev[goalIdx] == -1 {
		return steppingPath(from, to, 2*size)
	}

	var path []grid.Point
	cursor := goalIdx
	for cursor != startIdx {
		path = append(path, grid.Point{X: int(cursor) % size, Y: int(cursor) / size})
		cursor = prev[cursor]
		if cursor == -1 {
			return steppingPath(from, to, 2*size)
		}
	}
	path = append(path, from)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// RoutePath runs Route over each consecutive waypoint pair and
// concatenates the segments, dropping the duplicated junction cell
// between them.
func RoutePath(w *grid.World, waypoints []grid.Point, kind TrackKind) []grid.Point {
	var full []grid.Point
	for i := 0; i+1 < len(waypoints); i++ {
		segment := Route(w, waypoints[i], waypoints[i+1], kind)
		if i == 0 {
			full = append(full, segment...)
		} else if len(segment) > 0 {
			full = append(full, segment[1:]...)
		}
	}
	return full
}
