package protocol

import (
	"encoding/json"
	"fmt"
)

// Hotspot is one (location, value) entry in a ranked list.
type Hotspot struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Value float64 `json:"value"`
}

// Window is a small ASCII rendering of the neighborhood around a
// priority cell, giving the agent spatial context without the full grid.
type Window struct {
	Label  string   `json:"label"`
	Center struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"center"`
	Radius int      `json:"radius"`
	Rows   []string `json:"rows"`
}

type CityInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TimeInfo struct {
	Tick  uint64 `json:"tick"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Hour  int    `json:"hour"`
}

type Controls struct {
	Speed   int            `json:"speed"`
	TaxRate int            `json:"taxRate"`
	Funding map[string]int `json:"funding"`
}

type CityStats struct {
	Money      int `json:"money"`
	Population int `json:"population"`
	Jobs       int `json:"jobs"`
}

type ZoneCounts struct {
	Residential int `json:"residential"`
	Commercial  int `json:"commercial"`
	Industrial  int `json:"industrial"`
	None        int `json:"none"`
}

type BuildingCounts struct {
	Road          int `json:"road"`
	Rail          int `json:"rail"`
	PowerPlant    int `json:"power_plant"`
	WaterTower    int `json:"water_tower"`
	PoliceStation int `json:"police_station"`
	FireStation   int `json:"fire_station"`
	Hospital      int `json:"hospital"`
	School        int `json:"school"`
	University    int `json:"university"`
}

type GridInfo struct {
	Size           int            `json:"size"`
	ZoneCounts     ZoneCounts     `json:"zoneCounts"`
	BuildingCounts BuildingCounts `json:"buildingCounts"`
}

// CoveragePct holds per-service covered-cell percentages, each in
// [0,100].
type CoveragePct struct {
	Police    float64 `json:"police"`
	Fire      float64 `json:"fire"`
	Health    float64 `json:"health"`
	Education float64 `json:"education"`
	Power     float64 `json:"power"`
	Water     float64 `json:"water"`
}

type ServicesInfo struct {
	CoveragePct CoveragePct `json:"coveragePct"`
}

type Hotspots struct {
	Traffic   []Hotspot `json:"traffic"`
	Pollution []Hotspot `json:"pollution"`
	Crime     []Hotspot `json:"crime"`
}

type ServiceDeficits struct {
	Police     []Hotspot `json:"police"`
	Fire       []Hotspot `json:"fire"`
	Health     []Hotspot `json:"health"`
	Education  []Hotspot `json:"education"`
	Power      []Hotspot `json:"power"`
	Water      []Hotspot `json:"water"`
	RoadAccess []Hotspot `json:"roadAccess"`
}

type Spatial struct {
	DevelopedTiles  int             `json:"developedTiles"`
	ServiceDeficits ServiceDeficits `json:"serviceDeficits"`
	Windows         []Window        `json:"windows"`
}

// Observation is a versioned, compressed snapshot of the world for agent
// consumption. Immutable once built; only the latest one is retained.
type Observation struct {
	APIVersion int          `json:"apiVersion"`
	At         int64        `json:"at"`
	City       CityInfo     `json:"city"`
	Time       TimeInfo     `json:"time"`
	Controls   Controls     `json:"controls"`
	Stats      CityStats    `json:"stats"`
	Grid       GridInfo     `json:"grid"`
	Services   ServicesInfo `json:"services"`
	Hotspots   Hotspots     `json:"hotspots"`
	Spatial    *Spatial     `json:"spatial,omitempty"`
}

// DecodeObservation validates the required identity fields of an
// externally published observation (the /observe POST path) and fails
// closed on anything structurally off.
func DecodeObservation(body []byte) (*Observation, error) {
	var wire struct {
		Observation json.RawMessage `json:"observation"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("observation: %w", err)
	}
	if len(wire.Observation) == 0 {
		return nil, fmt.Errorf("observation: expected {observation}")
	}

	var obs Observation
	if err := json.Unmarshal(wire.Observation, &obs); err != nil {
		return nil, fmt.Errorf("observation: %w", err)
	}
	if obs.APIVersion != APIVersion {
		return nil, fmt.Errorf("observation: apiVersion must be %d", APIVersion)
	}
	if obs.At == 0 {
		return nil, fmt.Errorf("observation: at required")
	}
	if obs.City.ID == "" || obs.City.Name == "" {
		return nil, fmt.Errorf("observation: city id and name required")
	}
	if obs.Grid.Size <= 0 {
		return nil, fmt.Errorf("observation: grid size required")
	}
	return &obs, nil
}
