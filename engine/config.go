package engine

import (
	"time"

	"gopkg.in/ini.v1"
)

// Config holds the three INI sections §6 names: engine, clique, ui.
// Load mirrors the teacher's config.Load shape (a struct of defaults,
// overridden by whatever the file on disk actually sets) rather than
// failing when the file is partially specified or absent entirely —
// the Python original's ConfigParser has the same forgiving read-what's-
// there behaviour.
type Config struct {
	Engine EngineConfig
	Clique CliqueConfig
	UI     UIConfig
}

// EngineConfig is the [engine] section.
type EngineConfig struct {
	OutputSuffix string
	FFmpegPath   string
}

// CliqueConfig is the [clique] section (sequence-assembly tuning).
type CliqueConfig struct {
	MinimumItems   int
	ContiguousOnly bool
}

// UIConfig is the [ui] section. The worker engine never reads these
// itself; they are carried through for the UI shell that owns the Proxy.
type UIConfig struct {
	EnginePollInterval time.Duration
	DetailsStyle       string
}

// defaultConfig matches config.py's hard-coded defaults exactly.
func defaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			OutputSuffix: "_prores.mov",
			FFmpegPath:   "",
		},
		Clique: CliqueConfig{
			MinimumItems:   2,
			ContiguousOnly: true,
		},
		UI: UIConfig{
			EnginePollInterval: 200 * time.Millisecond,
			DetailsStyle:       "long",
		},
	}
}

// LoadConfig reads path as an INI file and layers it over defaultConfig.
// A missing file is not an error — it just means every default applies,
// matching ConfigParser.read's "silently ignore missing files" behaviour.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	f, err := ini.LooseLoad(path)
	if err != nil {
		return cfg, err
	}

	if sec := f.Section("engine"); sec != nil {
		if k := sec.Key("output_suffix"); k.String() != "" {
			cfg.Engine.OutputSuffix = k.String()
		}
		if k := sec.Key("ffmpeg_path"); k.String() != "" {
			cfg.Engine.FFmpegPath = k.String()
		}
	}

	if sec := f.Section("clique"); sec != nil {
		if sec.HasKey("minimum_items") {
			if n, err := sec.Key("minimum_items").Int(); err == nil {
				cfg.Clique.MinimumItems = n
			}
		}
		if sec.HasKey("contiguous_only") {
			if b, err := sec.Key("contiguous_only").Bool(); err == nil {
				cfg.Clique.ContiguousOnly = b
			}
		}
	}

	if sec := f.Section("ui"); sec != nil {
		if sec.HasKey("engine_poll_interval") {
			if n, err := sec.Key("engine_poll_interval").Int(); err == nil {
				cfg.UI.EnginePollInterval = time.Duration(n) * time.Millisecond
			}
		}
		if k := sec.Key("details_style"); k.String() != "" {
			cfg.UI.DetailsStyle = k.String()
		}
	}

	return cfg, nil
}
