package chat

import (
	"errors"
	"testing"
)

func knownSkills(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestParseDirective(t *testing.T) {
	known := knownSkills("searchVideo", "getWeather")

	t.Run("plain conversation", func(t *testing.T) {
		dir, err := parseDirective(`{"reply":"hello!","action":{"type":"none","params":{}}}`, known)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if dir.Reply != "hello!" {
			t.Errorf("reply = %q, want hello!", dir.Reply)
		}
		if dir.Action != nil {
			t.Errorf("expected no action, got %+v", dir.Action)
		}
	})

	t.Run("action omitted entirely", func(t *testing.T) {
		dir, err := parseDirective(`{"reply":"sure"}`, known)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if dir.Action != nil {
			t.Error("expected nil action when the model omits it")
		}
	})

	t.Run("skill directive", func(t *testing.T) {
		dir, err := parseDirective(
			`{"reply":"Here you go!","action":{"type":"searchVideo","params":{"query":"despacito"}}}`, known)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if dir.Action == nil || dir.Action.Type != "searchVideo" {
			t.Fatalf("expected searchVideo action, got %+v", dir.Action)
		}
		if dir.Action.Params["query"] != "despacito" {
			t.Errorf("params = %v, want query despacito", dir.Action.Params)
		}
	})

	t.Run("fenced output", func(t *testing.T) {
		raw := "```json\n{\"reply\":\"ok\",\"action\":{\"type\":\"none\",\"params\":{}}}\n```"
		dir, err := parseDirective(raw, known)
		if err != nil {
			t.Fatalf("parse failed on fenced output: %v", err)
		}
		if dir.Reply != "ok" {
			t.Errorf("reply = %q, want ok", dir.Reply)
		}
	})

	t.Run("bare fence without language tag", func(t *testing.T) {
		raw := "```\n{\"reply\":\"ok\"}\n```"
		if _, err := parseDirective(raw, known); err != nil {
			t.Fatalf("parse failed on bare fence: %v", err)
		}
	})

	t.Run("prose is malformed", func(t *testing.T) {
		_, err := parseDirective("Sure! Here's a video for you.", known)
		if !errors.Is(err, ErrMalformedModelResponse) {
			t.Errorf("expected ErrMalformedModelResponse, got %v", err)
		}
	})

	t.Run("trailing prose is malformed", func(t *testing.T) {
		_, err := parseDirective(`{"reply":"hi"} hope that helps`, known)
		if !errors.Is(err, ErrMalformedModelResponse) {
			t.Errorf("expected ErrMalformedModelResponse, got %v", err)
		}
	})

	t.Run("empty reply is malformed", func(t *testing.T) {
		_, err := parseDirective(`{"reply":"  ","action":{"type":"none"}}`, known)
		if !errors.Is(err, ErrMalformedModelResponse) {
			t.Errorf("expected ErrMalformedModelResponse, got %v", err)
		}
	})

	t.Run("unknown action type is malformed", func(t *testing.T) {
		_, err := parseDirective(`{"reply":"ok","action":{"type":"launchRocket","params":{}}}`, known)
		if !errors.Is(err, ErrMalformedModelResponse) {
			t.Errorf("expected ErrMalformedModelResponse, got %v", err)
		}
	})

	t.Run("wrong reply type is malformed", func(t *testing.T) {
		_, err := parseDirective(`{"reply":42}`, known)
		if !errors.Is(err, ErrMalformedModelResponse) {
			t.Errorf("expected ErrMalformedModelResponse, got %v", err)
		}
	})
}

func TestStringParams(t *testing.T) {
	action := &directiveAction{
		Type: "getWeather",
		Params: map[string]interface{}{
			"city":    "Paris",
			"days":    float64(3),
			"precise": true,
			"skip":    nil,
			"extra":   map[string]interface{}{"unit": "C"},
		},
	}

	params := action.stringParams()

	if params["city"] != "Paris" {
		t.Errorf("city = %q, want Paris", params["city"])
	}
	if params["days"] != "3" {
		t.Errorf("days = %q, want 3 (no trailing zeros)", params["days"])
	}
	if params["precise"] != "true" {
		t.Errorf("precise = %q, want true", params["precise"])
	}
	if _, ok := params["skip"]; ok {
		t.Error("nil values should be omitted")
	}
	if params["extra"] != `{"unit":"C"}` {
		t.Errorf("extra = %q, want JSON re-encoding", params["extra"])
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"reply":"hi"}`, `{"reply":"hi"}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace around fence", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"fence inside string survives", `{"reply":"use ` + "```" + ` for code"}`, `{"reply":"use ` + "```" + ` for code"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripFences(tc.in); got != tc.want {
				t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
