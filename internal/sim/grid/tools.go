package grid

// Tool is one placeable instrument the agent can apply to a cell.
type Tool string

const (
	ToolZoneResidential Tool = "zone_residential"
	ToolZoneCommercial  Tool = "zone_commercial"
	ToolZoneIndustrial  Tool = "zone_industrial"
	ToolZoneDezone      Tool = "zone_dezone"

	ToolRoad          Tool = "road"
	ToolRail          Tool = "rail"
	ToolPoliceStation Tool = "police_station"
	ToolFireStation   Tool = "fire_station"
	ToolHospital      Tool = "hospital"
	ToolSchool        Tool = "school"
	ToolUniversity    Tool = "university"
	ToolPowerPlant    Tool = "power_plant"
	ToolWaterTower    Tool = "water_tower"
	ToolSubwayStation Tool = "subway_station"

	ToolBulldoze  Tool = "bulldoze"
	ToolSubway    Tool = "subway"
	ToolZoneWater Tool = "zone_water"
	ToolZoneLand  Tool = "zone_land"
)

// ToolCost is the fixed placement cost per tool. Affordability is
// checked against World.Money before any mutation.
var ToolCost = map[Tool]int{
	ToolZoneResidential: 100,
	ToolZoneCommercial:  100,
	ToolZoneIndustrial:  100,
	ToolZoneDezone:      5,

	ToolRoad:          10,
	ToolRail:          20,
	ToolPoliceStation: 500,
	ToolFireStation:   500,
	ToolHospital:      500,
	ToolSchool:        250,
	ToolUniversity:    1000,
	ToolPowerPlant:    3000,
	ToolWaterTower:    500,
	ToolSubwayStation: 250,

	ToolBulldoze:  1,
	ToolSubway:    100,
	ToolZoneWater: 50,
	ToolZoneLand:  50,
}

// IsTool reports whether s names a known tool.
func IsTool(s string) bool {
	_, ok := ToolCost[Tool(s)]
	return ok
}

// ZoneForTool maps a zoning tool to its zone label, or "" for non-zoning
// tools.
func ZoneForTool(t Tool) (Zone, bool) {
	switch t {
	case ToolZoneResidential:
		return ZoneResidential, true
	case ToolZoneCommercial:
		return ZoneCommercial, true
	case ToolZoneIndustrial:
		return ZoneIndustrial, true
	case ToolZoneDezone:
		return ZoneNone, true
	default:
		return "", false
	}
}

// BuildingForTool maps a building tool to its building kind.
func BuildingForTool(t Tool) (Building, bool) {
	switch t {
	case ToolRoad, ToolRail, ToolPoliceStation, ToolFireStation,
		ToolHospital, ToolSchool, ToolUniversity, ToolPowerPlant,
		ToolWaterTower, ToolSubwayStation:
		return Building(t), true
	default:
		return "", false
	}
}

// ZoneTools lists the tools accepted by the zone_rect intent.
var ZoneTools = map[Tool]bool{
	ToolZoneResidential: true,
	ToolZoneCommercial:  true,
	ToolZoneIndustrial:  true,
	ToolZoneDezone:      true,
}
