package protocol

import (
	"strings"
	"testing"
)

func TestDecodeBatch_AllIntentTypes(t *testing.T) {
	body := `{
		"reason": "startup plan",
		"actions": [
			{"type": "setSpeed", "speed": 2},
			{"type": "setTaxRate", "rate": 12},
			{"type": "setBudgetFunding", "key": "police", "funding": 80},
			{"type": "place", "tool": "road", "x": 3, "y": 4},
			{"type": "zoneRect", "tool": "zone_residential", "x1": 0, "y1": 0, "x2": 5, "y2": 5},
			{"type": "buildTrackPath", "trackType": "road", "path": [{"x":0,"y":0},{"x":5,"y":0}]},
			{"type": "buildTrackBetween", "trackType": "rail", "from": {"x":0,"y":0}, "to": {"x":9,"y":9}},
			{"type": "advanceTicks", "count": 50}
		]
	}`

	b, err := DecodeBatch([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Reason != "startup plan" || len(b.Actions) != 8 {
		t.Fatalf("batch = %+v", b)
	}
	if b.Actions[0].Speed != 2 || b.Actions[1].Rate != 12 {
		t.Fatalf("scalar intents = %+v %+v", b.Actions[0], b.Actions[1])
	}
	if b.Actions[2].Key != "police" || b.Actions[2].Funding != 80 {
		t.Fatalf("funding intent = %+v", b.Actions[2])
	}
	if b.Actions[6].From == nil || b.Actions[6].To.X != 9 {
		t.Fatalf("between intent = %+v", b.Actions[6])
	}
}

func TestDecodeBatch_FailClosed(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{{`, "batch"},
		{"missing actions", `{"reason": "x"}`, "expected {actions"},
		{"unknown type", `{"actions": [{"type": "launchRockets"}]}`, "unknown intent type"},
		{"speed missing", `{"actions": [{"type": "setSpeed"}]}`, "speed must be 0..3"},
		{"speed out of range", `{"actions": [{"type": "setSpeed", "speed": 4}]}`, "speed must be 0..3"},
		{"rate missing", `{"actions": [{"type": "setTaxRate"}]}`, "rate required"},
		{"funding bad key", `{"actions": [{"type": "setBudgetFunding", "key": "navy", "funding": 50}]}`, "unknown key"},
		{"funding missing value", `{"actions": [{"type": "setBudgetFunding", "key": "police"}]}`, "funding required"},
		{"place bad tool", `{"actions": [{"type": "place", "tool": "nuke", "x": 1, "y": 1}]}`, "unknown tool"},
		{"place missing coords", `{"actions": [{"type": "place", "tool": "road"}]}`, "x,y required"},
		{"zoneRect non-zone tool", `{"actions": [{"type": "zoneRect", "tool": "road", "x1": 0, "y1": 0, "x2": 1, "y2": 1}]}`, "zoning tool"},
		{"track bad kind", `{"actions": [{"type": "buildTrackPath", "trackType": "monorail", "path": [{"x":0,"y":0},{"x":1,"y":0}]}]}`, "road or rail"},
		{"track short path", `{"actions": [{"type": "buildTrackPath", "trackType": "road", "path": [{"x":0,"y":0}]}]}`, "at least 2"},
		{"between missing to", `{"actions": [{"type": "buildTrackBetween", "trackType": "road", "from": {"x":0,"y":0}}]}`, "from,to required"},
		{"ticks missing count", `{"actions": [{"type": "advanceTicks"}]}`, "count required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBatch([]byte(tc.body))
			if err == nil {
				t.Fatalf("decode accepted %s", tc.body)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDecodeBatch_OneBadIntentRejectsWhole(t *testing.T) {
	body := `{"actions": [
		{"type": "setSpeed", "speed": 1},
		{"type": "bogus"}
	]}`
	_, err := DecodeBatch([]byte(body))
	if err == nil {
		t.Fatalf("mixed batch accepted")
	}
	if !strings.Contains(err.Error(), "actions[1]") {
		t.Fatalf("error does not locate the bad intent: %v", err)
	}
}

func TestDecodeBatch_EmptyActionsOK(t *testing.T) {
	b, err := DecodeBatch([]byte(`{"actions": []}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(b.Actions) != 0 {
		t.Fatalf("actions = %+v", b.Actions)
	}
}

func TestDecodeBatch_FractionalNumbersTruncate(t *testing.T) {
	b, err := DecodeBatch([]byte(`{"actions": [{"type": "advanceTicks", "count": 10.9}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Actions[0].Count != 10 {
		t.Fatalf("count = %d", b.Actions[0].Count)
	}
}

func TestDecodeObservation_FailClosed(t *testing.T) {
	good := `{"observation": {"apiVersion": 1, "at": 123, "city": {"id": "c1", "name": "Town"}, "grid": {"size": 8}}}`
	obs, err := DecodeObservation([]byte(good))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if obs.City.ID != "c1" || obs.Grid.Size != 8 {
		t.Fatalf("observation = %+v", obs)
	}

	bad := []string{
		`{}`,
		`{"observation": {"at": 123, "city": {"id": "c1", "name": "Town"}, "grid": {"size": 8}}}`,
		`{"observation": {"apiVersion": 2, "at": 123, "city": {"id": "c1", "name": "Town"}, "grid": {"size": 8}}}`,
		`{"observation": {"apiVersion": 1, "city": {"id": "c1", "name": "Town"}, "grid": {"size": 8}}}`,
		`{"observation": {"apiVersion": 1, "at": 123, "city": {"id": "", "name": "Town"}, "grid": {"size": 8}}}`,
		`{"observation": {"apiVersion": 1, "at": 123, "city": {"id": "c1", "name": "Town"}, "grid": {"size": 0}}}`,
	}
	for i, body := range bad {
		if _, err := DecodeObservation([]byte(body)); err == nil {
			t.Fatalf("bad[%d] accepted: %s", i, body)
		}
	}
}

func TestErrorCodes_Known(t *testing.T) {
	for _, c := range []string{
		ErrDisabled, ErrUnauthorized, ErrBadRequest,
		ErrInvalidRequest, ErrNoObservation, ErrInternal, ErrGeneric,
	} {
		if !IsKnownCode(c) {
			t.Fatalf("code %q not known", c)
		}
	}
	if IsKnownCode("TEAPOT") {
		t.Fatalf("unknown code accepted")
	}
}
