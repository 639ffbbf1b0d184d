package session

import (
	"testing"

	"github.com/dawikk/hubbridge/internal/hub"
)

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	return c
}

func TestCatalogDefaults(t *testing.T) {
	c := loadTestCatalog(t)
	cases := map[string]string{
		"variant":     "normal",
		"book":        "true",
		"book-ply":    "4",
		"book-margin": "4",
		"threads":     "1",
		"tt-size":     "24",
		"bb-size":     "5",
		"ponder":      "false",
	}
	for name, want := range cases {
		got, ok := c.Get(name)
		if !ok || got != want {
			t.Fatalf("%s = %q (%v), want %q", name, got, ok, want)
		}
	}
}

func TestCatalogClampsInts(t *testing.T) {
	c := loadTestCatalog(t)
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"threads", "999", "16"},
		{"threads", "0", "1"},
		{"tt-size", "8", "16"},
		{"bb-size", "100", "7"},
		{"book-ply", "10", "10"},
	}
	for _, tc := range cases {
		got, perr := c.Set(tc.name, tc.value)
		if perr != nil {
			t.Fatalf("Set(%s, %s): %v", tc.name, tc.value, perr)
		}
		if got != tc.want {
			t.Fatalf("Set(%s, %s) = %q, want %q", tc.name, tc.value, got, tc.want)
		}
	}
}

func TestCatalogRejectsBadValues(t *testing.T) {
	c := loadTestCatalog(t)
	cases := []struct {
		name  string
		value string
		kind  hub.ErrKind
	}{
		{"variant", "chess", hub.InvalidParameterValue},
		{"book", "maybe", hub.InvalidParameterValue},
		{"threads", "many", hub.InvalidParameterValue},
		{"elo", "1500", hub.UnknownParameter},
	}
	for _, tc := range cases {
		_, perr := c.Set(tc.name, tc.value)
		if perr == nil || perr.Kind != tc.kind {
			t.Fatalf("Set(%s, %s) err = %v, want kind %s", tc.name, tc.value, perr, tc.kind)
		}
	}
	if got, _ := c.Get("variant"); got != "normal" {
		t.Fatalf("variant changed to %q by rejected set", got)
	}
}

func TestCatalogEnumAccepts(t *testing.T) {
	c := loadTestCatalog(t)
	for _, v := range []string{"normal", "killer", "bt", "frisian", "losing"} {
		if _, perr := c.Set("variant", v); perr != nil {
			t.Fatalf("Set(variant, %s): %v", v, perr)
		}
	}
}

func TestCatalogEvents(t *testing.T) {
	c := loadTestCatalog(t)
	events := c.Events()
	if len(events) != 8 {
		t.Fatalf("%d events", len(events))
	}
	if events[0].Name != "variant" || events[0].Type != "enum" {
		t.Fatalf("first event = %+v, want variant first", events[0])
	}
	if len(events[0].Values) != 5 {
		t.Fatalf("variant values = %v", events[0].Values)
	}
}
