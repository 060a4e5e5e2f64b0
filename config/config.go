// Package config implements the TOML configuration system: typed defaults,
// the key-wise migration pass that reconciles a stored config against the
// built-in default, and the keybinding action table. Grounded on
// original_source's src/config.rs (Config/ConfigViewer/ConfigAction,
// fix_config_toml) and src/globals.rs (DEFAULT_CONFIG, the `[bar]`
// section); the teacher's config/config.go contributed the
// Default()/Load()/Path() function shapes (it used JSON against a
// fixed theme map; here the same shapes carry a TOML document instead).
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/BurntSushi/toml"
)

// Action names the semantic actions a key can be bound to, per spec.md §6.
type Action string

const (
	ToggleAlpha   Action = "ToggleAlpha"
	ToggleInverse Action = "ToggleInverse"
	CenterViewer  Action = "CenterViewer"
	MoveUp        Action = "MoveUp"
	MoveDown      Action = "MoveDown"
	MoveLeft      Action = "MoveLeft"
	MoveRight     Action = "MoveRight"
	ZoomIn        Action = "ZoomIn"
	ZoomOut       Action = "ZoomOut"
	JumpFirstPage Action = "JumpFirstPage"
	JumpLastPage  Action = "JumpLastPage"
	PrevPage      Action = "PrevPage"
	NextPage      Action = "NextPage"
	CopyLinkURI   Action = "CopyLinkURI"
	Quit          Action = "Quit"
)

// ViewerURIHint configures the link-hover hint bar (supplemental feature,
// see SPEC_FULL.md).
type ViewerURIHint struct {
	Enabled    bool    `toml:"enabled"`
	Background string  `toml:"background"`
	Foreground string  `toml:"foreground"`
	Width      float64 `toml:"width"`
}

// Viewer holds the `[viewer]` table from spec.md §6.
type Viewer struct {
	ScrollSpeed     float64       `toml:"scroll_speed"`
	RenderPrecision float64       `toml:"render_precision"`
	MemoryLimit     int64         `toml:"memory_limit"`
	ScaleMin        float64       `toml:"scale_min"`
	ScaleAmount     float64       `toml:"scale_amount"`
	MarginBottom    float64       `toml:"margin_bottom"`
	PagesPreloaded  int           `toml:"pages_preloaded"`
	InverseScroll   bool          `toml:"inverse_scroll"`
	URIHint         ViewerURIHint `toml:"uri_hint"`
}

// Bar holds the supplemental `[bar]` table (see SPEC_FULL.md).
type Bar struct {
	Position string `toml:"position"`
}

// Config is the fully-typed, post-migration configuration.
type Config struct {
	Viewer   Viewer            `toml:"viewer"`
	Bar      Bar               `toml:"bar"`
	Bindings map[string]Action `toml:"bindings"`
}

const filename = "meowpdf.toml"

// defaultTOML is the built-in default configuration, serving both as the
// reconciliation target in migrate and as the file written the first time
// a user runs the program.
const defaultTOML = `[viewer]
# how fast the document scrolls per tick
scroll_speed = 20.0
# multiplier applied to the 72 DPI baseline when rasterizing pages
render_precision = 1.5
# image cache budget in bytes
memory_limit = 314572800
# minimum allowed zoom
scale_min = 0.2
# zoom-in multiplies the scale by (1 + scale_amount), zoom-out divides by it
scale_amount = 0.5
# space reserved below each page, in PDF points
margin_bottom = 10.0
# pages rendered ahead of/behind the visible range
pages_preloaded = 3
# invert the direction of every scroll move (vertical and horizontal)
inverse_scroll = false

[viewer.uri_hint]
enabled = true
background = "blue"
foreground = "white"
width = 0.2

[bar]
# "top" or "bottom"
position = "bottom"

[bindings]
"Ctrl+a" = "ToggleAlpha"
"Ctrl+o" = "ToggleInverse"
"C" = "CenterViewer"
"h" = "MoveLeft"
"j" = "MoveDown"
"k" = "MoveUp"
"l" = "MoveRight"
"Up" = "MoveUp"
"Down" = "MoveDown"
"Left" = "MoveLeft"
"Right" = "MoveRight"
"+" = "ZoomIn"
"-" = "ZoomOut"
"g" = "JumpFirstPage"
"G" = "JumpLastPage"
"PageUp" = "PrevPage"
"PageDown" = "NextPage"
"Ctrl+b" = "PrevPage"
"Ctrl+f" = "NextPage"
"y" = "CopyLinkURI"
"q" = "Quit"
"Q" = "Quit"
`

// Default returns the parsed built-in default configuration.
func Default() *Config {
	var cfg Config
	if _, err := toml.Decode(defaultTOML, &cfg); err != nil {
		panic(fmt.Errorf("built-in default config does not parse: %w", err))
	}
	return &cfg
}

// Path returns the platform config file location, matching the teacher's
// ConfigPath() XDG-under-home convention.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "meowpdf", filename), nil
}

// migrate reconciles current against def in place, per spec.md §6: unknown
// keys are removed, missing keys are added from defaults, keys whose value
// type differs from the default are replaced by the default, and
// sub-tables recurse. Returns whether anything changed.
func migrate(current, def map[string]interface{}) bool {
	changed := false

	keys := make(map[string]struct{}, len(current)+len(def))
	for k := range current {
		keys[k] = struct{}{}
	}
	for k := range def {
		keys[k] = struct{}{}
	}

	for key := range keys {
		_, inCurrent := current[key]
		defVal, inDefault := def[key]

		switch {
		case inCurrent && !inDefault:
			delete(current, key)
			changed = true
		case !inCurrent && inDefault:
			current[key] = defVal
			changed = true
		case !sameKind(current[key], defVal):
			current[key] = defVal
			changed = true
		default:
			curTable, curIsTable := current[key].(map[string]interface{})
			defTable, defIsTable := defVal.(map[string]interface{})
			if curIsTable && defIsTable {
				if migrate(curTable, defTable) {
					changed = true
				}
			}
		}
	}
	return changed
}

// sameKind compares the TOML value "variant" the way toml::Value's
// discriminant does in original_source's fix_config_toml: same underlying
// Go type after decoding (int64, float64, bool, string, slice, map).
func sameKind(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// Load reads the config at path (creating it from the default if absent),
// migrates it against the built-in default, writes back the normalized
// TOML if anything changed, and parses the result into a typed Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultTOML), 0o644); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var current map[string]interface{}
	if _, err := toml.Decode(string(raw), &current); err != nil {
		return nil, fmt.Errorf("parse config as TOML: %w", err)
	}
	var def map[string]interface{}
	if _, err := toml.Decode(defaultTOML, &def); err != nil {
		return nil, fmt.Errorf("parse default config as TOML: %w", err)
	}

	if migrate(current, def) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(current); err != nil {
			return nil, fmt.Errorf("serialize migrated config: %w", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write migrated config: %w", err)
		}
		raw = buf.Bytes()
	}

	var cfg Config
	if _, err := toml.Decode(string(raw), &cfg); err != nil {
		return nil, fmt.Errorf("parse migrated config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Viewer.RenderPrecision <= 0 {
		return fmt.Errorf("config.viewer.render_precision must be > 0")
	}
	if cfg.Viewer.ScaleMin <= 0 {
		return fmt.Errorf("config.viewer.scale_min must be > 0")
	}
	if cfg.Viewer.MarginBottom < 0 {
		return fmt.Errorf("config.viewer.margin_bottom must be >= 0")
	}
	if len(cfg.Bindings) == 0 {
		return fmt.Errorf("config.bindings must not be empty")
	}
	return nil
}
