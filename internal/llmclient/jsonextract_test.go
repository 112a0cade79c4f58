package llmclient

import "testing"

func TestStripFencesRemovesJSONFence(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	got := StripFences(in)
	if got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}

func TestStripFencesRemovesBareFence(t *testing.T) {
	in := "```\n{\"a\":1}\n```"
	got := StripFences(in)
	if got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}

func TestStripFencesLeavesUnfencedContentUnchanged(t *testing.T) {
	in := `{"a":1}`
	if got := StripFences(in); got != in {
		t.Fatalf("got %q", got)
	}
}

func TestParseJSONUnmarshalsFencedObject(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	if err := ParseJSON("```json\n{\"a\":7}\n```", &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.A != 7 {
		t.Fatalf("got %d", v.A)
	}
}

func TestParseJSONReturnsErrorOnMalformedContent(t *testing.T) {
	var v struct{}
	if err := ParseJSON("not json at all", &v); err == nil {
		t.Fatal("expected an error for unparseable content")
	}
}
