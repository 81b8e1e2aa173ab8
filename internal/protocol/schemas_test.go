package protocol

import "testing"

func TestValidateActBody(t *testing.T) {
	good := []string{
		`{"actions": []}`,
		`{"actions": [{"type": "setSpeed", "speed": 0}], "reason": "pause"}`,
		`{"actions": [{"type": "setBudgetFunding", "key": "transport", "funding": 55}]}`,
		`{"actions": [{"type": "buildTrackBetween", "trackType": "rail", "from": {"x":1,"y":1}, "to": {"x":5,"y":5}}]}`,
	}
	for i, body := range good {
		if err := ValidateActBody([]byte(body)); err != nil {
			t.Fatalf("good[%d] rejected: %v", i, err)
		}
	}

	bad := []string{
		`{}`,
		`{"actions": [{"type": "setSpeed", "speed": 5}]}`,
		`{"actions": [{"type": "setBudgetFunding", "key": "navy", "funding": 55}]}`,
		`{"actions": [{"type": "buildTrackPath", "trackType": "road", "path": [{"x":1,"y":1}]}]}`,
		`{"actions": [{"type": "teleport"}]}`,
		`{"actions": [{"type": "place", "tool": "road", "x": 1.5, "y": 2}]}`,
	}
	for i, body := range bad {
		if err := ValidateActBody([]byte(body)); err == nil {
			t.Fatalf("bad[%d] accepted: %s", i, body)
		}
	}
}

func TestValidateObservationBody(t *testing.T) {
	good := `{"observation": {"apiVersion": 1, "at": 1700000000000, "city": {"id": "c1", "name": "Town"}, "time": {"tick": 0}, "grid": {"size": 64}}}`
	if err := ValidateObservationBody([]byte(good)); err != nil {
		t.Fatalf("good body rejected: %v", err)
	}

	bad := []string{
		`{}`,
		`{"observation": "not an object"}`,
		`{"observation": {"apiVersion": "one"}}`,
	}
	for i, body := range bad {
		if err := ValidateObservationBody([]byte(body)); err == nil {
			t.Fatalf("bad[%d] accepted: %s", i, body)
		}
	}
}
