package schema

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	if _, err := String().Validate("x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := String().Validate(3.0)
	if err == nil || err.Error() != "expected string, received number" {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := String().NonEmpty().Validate("  "); err == nil {
		t.Fatal("expected non-empty error")
	}
}

func TestString_Format(t *testing.T) {
	v := String().Format("url")
	if _, err := v.Validate("https://example.com/path"); err != nil {
		t.Fatalf("valid url rejected: %v", err)
	}
	_, err := v.Validate("not a url")
	if err == nil || err.Error() != "must be a valid URL" {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = String().Format("ipv4").Validate("nope")
	if err == nil || !strings.Contains(err.Error(), `"ipv4"`) {
		t.Fatalf("expected generic format reason, got %v", err)
	}
}

func TestUUID(t *testing.T) {
	if _, err := UUID().Validate("8F3E1A52-5B2C-4C3B-9D7E-1E2F3A4B5C6D"); err != nil {
		t.Fatalf("valid uuid rejected: %v", err)
	}
	for _, bad := range []any{"x", "{8F3E1A52-5B2C-4C3B-9D7E-1E2F3A4B5C6D}", 12.0} {
		if _, err := UUID().Validate(bad); err == nil {
			t.Errorf("expected %v to be rejected", bad)
		}
	}
}

func TestEnum(t *testing.T) {
	v := Enum("Debug", "Release")
	if _, err := v.Validate("Release"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	_, err := v.Validate("Profile")
	if err == nil || err.Error() != "must be one of: Debug, Release" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInt(t *testing.T) {
	v := Int().Min(0).Max(10)
	got, err := v.Validate(4.0)
	if err != nil || got != 4 {
		t.Fatalf("expected 4, got %v (%v)", got, err)
	}
	if got, _ := v.Validate(json.Number("7")); got != 7 {
		t.Fatalf("json.Number not coerced: %v", got)
	}
	if _, err := v.Validate(2.5); err == nil {
		t.Fatal("fractional number should be rejected")
	}
	if _, err := v.Validate(-1); err == nil || err.Error() != "must be >= 0" {
		t.Fatalf("unexpected: %v", err)
	}
	if _, err := v.Validate(11); err == nil || err.Error() != "must be <= 10" {
		t.Fatalf("unexpected: %v", err)
	}
	if _, err := v.Validate("3"); err == nil {
		t.Fatal("string should be rejected")
	}
}

func TestInt_BeyondInt64(t *testing.T) {
	if _, err := Int().Max(10).Validate(1e20); err == nil || err.Error() != "must be <= 10" {
		t.Fatalf("1e20 against max 10: %v", err)
	}
	if _, err := Int().Min(0).Validate(1e20); err == nil || err.Error() != "integer out of range" {
		t.Fatalf("1e20 against min 0: %v", err)
	}
	if _, err := Int().Min(0).Validate(-1e20); err == nil || err.Error() != "must be >= 0" {
		t.Fatalf("-1e20 against min 0: %v", err)
	}
	if _, err := Int().Validate(9.3e18); err == nil || err.Error() != "integer out of range" {
		t.Fatalf("unbounded overflow: %v", err)
	}
	if _, err := Int().Validate(json.Number("100000000000000000000")); err == nil || err.Error() != "integer out of range" {
		t.Fatalf("json.Number overflow: %v", err)
	}
	if _, err := Int().Validate(math.Inf(1)); err == nil || !strings.Contains(err.Error(), "expected integer") {
		t.Fatalf("infinity: %v", err)
	}
}

func TestNumber(t *testing.T) {
	v := Number().Min(0.5)
	if got, err := v.Validate(3); err != nil || got != 3.0 {
		t.Fatalf("expected 3.0, got %v (%v)", got, err)
	}
	if _, err := v.Validate(0.1); err == nil {
		t.Fatal("expected lower bound error")
	}
}

func TestBool(t *testing.T) {
	if _, err := Bool().Validate(true); err != nil {
		t.Fatal(err)
	}
	if _, err := Bool().Validate("true"); err == nil {
		t.Fatal("string should be rejected")
	}
}

func TestArrayOf(t *testing.T) {
	v := ArrayOf(String())
	got, err := v.Validate([]any{"-a", "-b"})
	if err != nil || len(got.([]any)) != 2 {
		t.Fatalf("unexpected: %v %v", got, err)
	}
	if _, err := v.Validate([]string{"x"}); err != nil {
		t.Fatalf("[]string should be accepted: %v", err)
	}
	_, err = v.Validate([]any{"ok", 1.0})
	if err == nil || !strings.HasPrefix(err.Error(), "[1]") {
		t.Fatalf("expected indexed error, got %v", err)
	}
	if _, err := v.Validate("x"); err == nil {
		t.Fatal("scalar should be rejected")
	}
}

func TestStringMap(t *testing.T) {
	got, err := StringMap().Validate(map[string]any{"A": "1"})
	if err != nil {
		t.Fatal(err)
	}
	if got.(map[string]string)["A"] != "1" {
		t.Fatalf("unexpected: %v", got)
	}
	if _, err := StringMap().Validate(map[string]any{"A": 1.0}); err == nil {
		t.Fatal("non-string value should be rejected")
	}
}

func TestJSONSchemaFragments(t *testing.T) {
	if Int().Min(1).JSONSchema()["minimum"] != 1 {
		t.Fatal("missing minimum")
	}
	if ArrayOf(Bool()).JSONSchema()["items"].(map[string]any)["type"] != "boolean" {
		t.Fatal("unexpected items schema")
	}
	if Enum("a").JSONSchema()["enum"].([]string)[0] != "a" {
		t.Fatal("unexpected enum schema")
	}
}
