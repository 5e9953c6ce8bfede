package main

import "testing"

func TestMarshalEvent(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Toggle{}, `{"type":"toggle"}`},
		{status{}, `{"type":"status"}`},
		{SetRemaining{Seconds: 90}, `{"type":"set_remaining","data":{"seconds":90}}`},
		{RotaryTurn{Ring: "hours", Steps: -1}, `{"type":"rotary_turn","data":{"ring":"hours","steps":-1}}`},
		{DialDragEnd{Ring: "minutes"}, `{"type":"dial_drag_end","data":{"ring":"minutes"}}`},
	}
	for _, tc := range cases {
		got, err := marshalEvent(tc.ev)
		if err != nil {
			t.Fatalf("%T: unexpected error: %v", tc.ev, err)
		}
		if string(got) != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}

	if _, err := marshalEvent(42); err == nil {
		t.Fatalf("expected an error for an unknown event")
	}
}

func TestParseSeconds(t *testing.T) {
	for in, want := range map[string]int{"90": 90, "3m": 180, "1h30m": 5400, "0": 0} {
		got, err := parseSeconds(in)
		if err != nil || got != want {
			t.Fatalf("%s: expected %d, got %d (err=%v)", in, want, got, err)
		}
	}
	for _, in := range []string{"soon", "1.5s"} {
		if _, err := parseSeconds(in); err == nil {
			t.Fatalf("%s: expected an error", in)
		}
	}
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint("3.5,-2")
	if err != nil || p != [2]float64{3.5, -2} {
		t.Fatalf("expected {3.5 -2}, got %v (err=%v)", p, err)
	}
	for _, in := range []string{"3", "a,1", "1,b"} {
		if _, err := parsePoint(in); err == nil {
			t.Fatalf("%s: expected an error", in)
		}
	}
}
