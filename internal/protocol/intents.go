package protocol

import (
	"encoding/json"
	"fmt"

	"citymayor.ai/internal/sim/grid"
	"citymayor.ai/internal/sim/pathfind"
)

// Intent type tags.
const (
	IntentSetSpeed          = "setSpeed"
	IntentSetTaxRate        = "setTaxRate"
	IntentSetBudgetFunding  = "setBudgetFunding"
	IntentPlace             = "place"
	IntentZoneRect          = "zoneRect"
	IntentBuildTrackPath    = "buildTrackPath"
	IntentBuildTrackBetween = "buildTrackBetween"
	IntentAdvanceTicks      = "advanceTicks"
)

// Intent is one agent-issued command. Exactly the fields named by the
// type tag are meaningful; DecodeBatch rejects anything else.
type Intent struct {
	Type string `json:"type"`

	Speed int `json:"speed,omitempty"`

	Rate int `json:"rate,omitempty"`

	Key     grid.FundingCategory `json:"key,omitempty"`
	Funding int                  `json:"funding,omitempty"`

	Tool grid.Tool `json:"tool,omitempty"`
	X    int       `json:"x,omitempty"`
	Y    int       `json:"y,omitempty"`

	X1 int `json:"x1,omitempty"`
	Y1 int `json:"y1,omitempty"`
	X2 int `json:"x2,omitempty"`
	Y2 int `json:"y2,omitempty"`

	TrackType pathfind.TrackKind `json:"trackType,omitempty"`
	Path      []grid.Point       `json:"path,omitempty"`
	From      *grid.Point        `json:"from,omitempty"`
	To        *grid.Point        `json:"to,omitempty"`

	Count int `json:"count,omitempty"`
}

// Batch is the unit of enqueue/dequeue: an ordered intent sequence plus
// an optional free-text reason. A consumer always receives a whole batch
// or nothing.
type Batch struct {
	Actions []Intent `json:"actions"`
	Reason  string   `json:"reason,omitempty"`
}

// intentWire mirrors Intent with pointer fields so decoding can tell
// "absent" from zero and fail closed on missing requirements.
type intentWire struct {
	Type string `json:"type"`

	Speed   *int     `json:"speed"`
	Rate    *float64 `json:"rate"`
	Key     *string  `json:"key"`
	Funding *float64 `json:"funding"`

	Tool *string `json:"tool"`
	X    *int    `json:"x"`
	Y    *int    `json:"y"`
	X1   *int    `json:"x1"`
	Y1   *int    `json:"y1"`
	X2   *int    `json:"x2"`
	Y2   *int    `json:"y2"`

	TrackType *string      `json:"trackType"`
	Path      []grid.Point `json:"path"`
	From      *grid.Point  `json:"from"`
	To        *grid.Point  `json:"to"`

	Count *float64 `json:"count"`
}

func decodeIntent(raw json.RawMessage) (Intent, error) {
	var w intentWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Intent{}, fmt.Errorf("intent: %w", err)
	}

	switch w.Type {
	case IntentSetSpeed:
		if w.Speed == nil || *w.Speed < 0 || *w.Speed > 3 {
			return Intent{}, fmt.Errorf("setSpeed: speed must be 0..3")
		}
		return Intent{Type: w.Type, Speed: *w.Speed}, nil

	case IntentSetTaxRate:
		if w.Rate == nil {
			return Intent{}, fmt.Errorf("setTaxRate: rate required")
		}
		return Intent{Type: w.Type, Rate: int(*w.Rate)}, nil

	case IntentSetBudgetFunding:
		if w.Key == nil || !grid.IsFundingCategory(*w.Key) {
			return Intent{}, fmt.Errorf("setBudgetFunding: unknown key")
		}
		if w.Funding == nil {
			return Intent{}, fmt.Errorf("setBudgetFunding: funding required")
		}
		return Intent{Type: w.Type, Key: grid.FundingCategory(*w.Key), Funding: int(*w.Funding)}, nil

	case IntentPlace:
		if w.Tool == nil || !grid.IsTool(*w.Tool) {
			return Intent{}, fmt.Errorf("place: unknown tool")
		}
		if w.X == nil || w.Y == nil {
			return Intent{}, fmt.Errorf("place: x,y required")
		}
		return Intent{Type: w.Type, Tool: grid.Tool(*w.Tool), X: *w.X, Y: *w.Y}, nil

	case IntentZoneRect:
		if w.Tool == nil || !grid.ZoneTools[grid.Tool(*w.Tool)] {
			return Intent{}, fmt.Errorf("zoneRect: tool must be a zoning tool")
		}
		if w.X1 == nil || w.Y1 == nil || w.X2 == nil || w.Y2 == nil {
			return Intent{}, fmt.Errorf("zoneRect: x1,y1,x2,y2 required")
		}
		return Intent{Type: w.Type, Tool: grid.Tool(*w.Tool), X1: *w.X1, Y1: *w.Y1, X2: *w.X2, Y2: *w.Y2}, nil

	case IntentBuildTrackPath:
		if w.TrackType == nil || !pathfind.IsTrackKind(*w.TrackType) {
			return Intent{}, fmt.Errorf("buildTrackPath: trackType must be road or rail")
		}
		if len(w.Path) < 2 {
			return Intent{}, fmt.Errorf("buildTrackPath: path needs at least 2 waypoints")
		}
		return Intent{Type: w.Type, TrackType: pathfind.TrackKind(*w.TrackType), Path: w.Path}, nil

	case IntentBuildTrackBetween:
		if w.TrackType == nil || !pathfind.IsTrackKind(*w.TrackType) {
			return Intent{}, fmt.Errorf("buildTrackBetween: trackType must be road or rail")
		}
		if w.From == nil || w.To == nil {
			return Intent{}, fmt.Errorf("buildTrackBetween: from,to required")
		}
		return Intent{Type: w.Type, TrackType: pathfind.TrackKind(*w.TrackType), From: w.From, To: w.To}, nil

	case IntentAdvanceTicks:
		if w.Count == nil {
			return Intent{}, fmt.Errorf("advanceTicks: count required")
		}
		return Intent{Type: w.Type, Count: int(*w.Count)}, nil

	default:
		return Intent{}, fmt.Errorf("unknown intent type %q", w.Type)
	}
}

// DecodeBatch validates and decodes an /act request body. The decode is
// exhaustive and fails closed: an unknown intent type or a missing field
// rejects the whole batch, before any mailbox is touched.
func DecodeBatch(body []byte) (Batch, error) {
	var wire struct {
		Actions []json.RawMessage `json:"actions"`
		Reason  *string           `json:"reason"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Batch{}, fmt.Errorf("batch: %w", err)
	}
	if wire.Actions == nil {
		return Batch{}, fmt.Errorf("batch: expected {actions: []}")
	}

	b := Batch{Actions: make([]Intent, 0, len(wire.Actions))}
	if wire.Reason != nil {
		b.Reason = *wire.Reason
	}
	for i, raw := range wire.Actions {
		in, err := decodeIntent(raw)
		if err != nil {
			return Batch{}, fmt.Errorf("actions[%d]: %w", i, err)
		}
		b.Actions = append(b.Actions, in)
	}
	return b, nil
}
