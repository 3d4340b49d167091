package wire

import (
	"encoding/json"
	"testing"
)

// decodeParams runs a JSON object through the stdlib decoder so the tests
// exercise the same dynamic types the dispatcher sees.
func decodeParams(t *testing.T, raw string) Params {
	t.Helper()
	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return p
}

func TestParamsInt(t *testing.T) {
	p := decodeParams(t, `{"a":5,"b":5.5,"c":"5","d":-1}`)

	if v, ok := p.Int("a"); !ok || v != 5 {
		t.Errorf("Int(a) = %d,%v, want 5,true", v, ok)
	}
	if _, ok := p.Int("b"); ok {
		t.Error("fractional number should not pass as integer")
	}
	if _, ok := p.Int("c"); ok {
		t.Error("string should not pass as integer")
	}
	if v, ok := p.Int("d"); !ok || v != -1 {
		t.Errorf("Int(d) = %d,%v, want -1,true", v, ok)
	}
	if _, ok := p.Int("missing"); ok {
		t.Error("missing key should report false")
	}
}

func TestParamsIntOr(t *testing.T) {
	p := decodeParams(t, `{"intensity":80,"bad":"x"}`)

	if v, ok := p.IntOr("intensity", 100); !ok || v != 80 {
		t.Errorf("IntOr present = %d,%v", v, ok)
	}
	if v, ok := p.IntOr("duration_ms", 500); !ok || v != 500 {
		t.Errorf("IntOr absent = %d,%v, want default 500", v, ok)
	}
	if _, ok := p.IntOr("bad", 1); ok {
		t.Error("present-but-invalid value must not fall back to the default")
	}
}

func TestParamsFloat(t *testing.T) {
	p := decodeParams(t, `{"x":0.5,"y":1,"s":"0.5"}`)

	if v, ok := p.Float("x"); !ok || v != 0.5 {
		t.Errorf("Float(x) = %v,%v", v, ok)
	}
	// Integers are valid coordinates: x=1 means the far edge.
	if v, ok := p.Float("y"); !ok || v != 1.0 {
		t.Errorf("Float(y) = %v,%v", v, ok)
	}
	if _, ok := p.Float("s"); ok {
		t.Error("string should not pass as number")
	}
}

func TestParamsStringAndBool(t *testing.T) {
	p := decodeParams(t, `{"panel":"front","empty":"","force":true}`)

	if v, ok := p.String("panel"); !ok || v != "front" {
		t.Errorf("String(panel) = %q,%v", v, ok)
	}
	if _, ok := p.String("empty"); ok {
		t.Error("empty string should report false")
	}
	if p.StringOr("glove", "left") != "left" {
		t.Error("StringOr default not applied")
	}
	if !p.BoolOr("force", false) {
		t.Error("BoolOr should read the present value")
	}
	if p.BoolOr("missing", false) {
		t.Error("BoolOr should use the default for missing keys")
	}
}

func TestParamsList(t *testing.T) {
	p := decodeParams(t, `{"dots":[{"index":0,"intensity":100}],"empty":[],"notlist":3}`)

	if l, ok := p.List("dots"); !ok || len(l) != 1 {
		t.Errorf("List(dots) = %v,%v", l, ok)
	}
	if _, ok := p.List("empty"); ok {
		t.Error("empty list should report false")
	}
	if _, ok := p.List("notlist"); ok {
		t.Error("non-list should report false")
	}
}
