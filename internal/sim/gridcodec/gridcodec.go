// Package gridcodec serializes a full world grid as a compact
// palette + RLE form for local debug tooling. The agent never sees
// this; observations stay bounded.
package gridcodec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"citymayor.ai/internal/sim/grid"
)

// Snapshot is the wire form of a full grid dump. Cells holds
// base64(varint pairs) of (palette id, run length) over the row-major
// cell sequence; Palette maps ids back to building kinds.
type Snapshot struct {
	Size    int             `json:"size"`
	Tick    uint64          `json:"tick"`
	Palette []grid.Building `json:"palette"`
	Cells   string          `json:"cells"`
	Zones   string          `json:"zones"`
}

var zonePalette = []grid.Zone{
	grid.ZoneNone, grid.ZoneResidential, grid.ZoneCommercial, grid.ZoneIndustrial,
}

// Encode dumps w's terrain and zoning. The building palette is built
// per snapshot in first-seen order, so common worlds stay small.
func Encode(w *grid.World) Snapshot {
	palette := make([]grid.Building, 0, 16)
	index := make(map[grid.Building]uint16, 16)

	cells := make([]uint16, len(w.Cells))
	zones := make([]uint16, len(w.Cells))
	for i := range w.Cells {
		b := w.Cells[i].Building
		id, ok := index[b]
		if !ok {
			id = uint16(len(palette))
			index[b] = id
			palette = append(palette, b)
		}
		cells[i] = id

		for zi, z := range zonePalette {
			if w.Cells[i].Zone == z {
				zones[i] = uint16(zi)
				break
			}
		}
	}

	return Snapshot{
		Size:    w.Size,
		Tick:    w.Tick,
		Palette: palette,
		Cells:   encodeRLE(cells),
		Zones:   encodeRLE(zones),
	}
}

// Decode reconstructs the building and zone grids of a snapshot.
func Decode(s Snapshot) ([]grid.Building, []grid.Zone, error) {
	cellIDs, err := decodeRLE(s.Cells)
	if err != nil {
		return nil, nil, fmt.Errorf("cells: %w", err)
	}
	zoneIDs, err := decodeRLE(s.Zones)
	if err != nil {
		return nil, nil, fmt.Errorf("zones: %w", err)
	}
	want := s.Size * s.Size
	if len(cellIDs) != want || len(zoneIDs) != want {
		return nil, nil, fmt.Errorf("cell count %d/%d does not match size %d", len(cellIDs), len(zoneIDs), s.Size)
	}

	buildings := make([]grid.Building, want)
	for i, id := range cellIDs {
		if int(id) >= len(s.Palette) {
			return nil, nil, fmt.Errorf("palette id %d out of range", id)
		}
		buildings[i] = s.Palette[id]
	}
	zones := make([]grid.Zone, want)
	for i, id := range zoneIDs {
		if int(id) >= len(zonePalette) {
			return nil, nil, fmt.Errorf("zone id %d out of range", id)
		}
		zones[i] = zonePalette[id]
	}
	return buildings, zones, nil
}

// encodeRLE packs ids as base64(varint pairs) of (id, run length).
func encodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		id := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == id; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(id))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		id, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if id > 0xFFFF {
			return nil, fmt.Errorf("palette id too large: %d", id)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint16(id))
		}
	}
	return out, nil
}
