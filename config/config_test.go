package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/BurntSushi/toml"
)

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]interface{}); ok {
			out[k] = cloneMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}

func mapsEqual(a, b map[string]interface{}) bool {
	return reflect.DeepEqual(a, b)
}

func TestDefaultParsesAndValidates(t *testing.T) {
	cfg := Default()
	if err := validate(cfg); err != nil {
		t.Fatalf("built-in default failed validation: %v", err)
	}
	if cfg.Bindings["q"] != Quit {
		t.Fatalf(`bindings["q"] = %v, want Quit`, cfg.Bindings["q"])
	}
	if !cfg.Viewer.URIHint.Enabled {
		t.Fatal("expected uri_hint enabled by default")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	var def map[string]interface{}
	mustDecode(t, defaultTOML, &def)

	current := map[string]interface{}{
		"viewer": map[string]interface{}{
			"scroll_speed":     "not-a-number",
			"render_precision": 1.5,
			"memory_limit":     int64(1000),
			"scale_min":        0.2,
			"scale_amount":     0.5,
			"margin_bottom":    10.0,
			"pages_preloaded":  int64(3),
			"inverse_scroll":   false,
			"extra_stale_key":  "gone",
		},
	}

	first := migrate(current, cloneMap(def))
	if !first {
		t.Fatal("expected first migrate pass to report a change")
	}
	snapshot := cloneMap(current)

	second := migrate(current, cloneMap(def))
	if second {
		t.Fatal("expected second migrate pass to be a no-op")
	}
	if !mapsEqual(snapshot, current) {
		t.Fatal("migrate was not idempotent: second pass altered the config")
	}
}

// TestMigrateReconcilesExtraAndMissingKeys exercises spec.md §8 scenario 7:
// an unknown key is dropped, a missing key is filled in from the default,
// and a user value whose type matches the default survives untouched.
func TestMigrateReconcilesExtraAndMissingKeys(t *testing.T) {
	var def map[string]interface{}
	mustDecode(t, defaultTOML, &def)

	current := cloneMap(def)
	viewer := current["viewer"].(map[string]interface{})
	viewer["unknown_legacy_key"] = "drop me"
	delete(viewer, "pages_preloaded")
	viewer["scroll_speed"] = 99.0 // a legitimate user override, must survive

	changed := migrate(current, cloneMap(def))
	if !changed {
		t.Fatal("expected a change to be reported")
	}

	viewer = current["viewer"].(map[string]interface{})
	if _, present := viewer["unknown_legacy_key"]; present {
		t.Fatal("unknown key was not removed")
	}
	if viewer["pages_preloaded"] != def["viewer"].(map[string]interface{})["pages_preloaded"] {
		t.Fatal("missing key was not restored from default")
	}
	if viewer["scroll_speed"] != 99.0 {
		t.Fatal("user override was clobbered by migration")
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meowpdf.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.RenderPrecision != Default().Viewer.RenderPrecision {
		t.Fatal("loaded config does not match default")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
}

func mustDecode(t *testing.T, s string, v interface{}) {
	t.Helper()
	if _, err := toml.Decode(s, v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
