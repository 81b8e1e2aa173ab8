package grid

// Point addresses one cell.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}
