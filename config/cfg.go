package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// CanvasConfig describes the fixed virtual canvas panels and map are
	// drawn into. All values are virtual pixels.
	CanvasConfig struct {
		Width            int `yaml:"width" validate:"min=320"`
		Height           int `yaml:"height" validate:"min=240"`
		Padding          int `yaml:"padding" validate:"gte=0"`
		PanelGap         int `yaml:"panel_gap" validate:"gte=0"`
		HeaderSafeMin    int `yaml:"header_safe_min" validate:"gte=0"`
		HeaderSafeMax    int `yaml:"header_safe_max" validate:"gtecsfield=HeaderSafeMin"`
		MobileBreakpoint int `yaml:"mobile_breakpoint" validate:"gte=0"`
	}

	// ScrollConfig tunes how scroll offsets map to step activation.
	ScrollConfig struct {
		// Offset is the activation threshold as a fraction of viewport height.
		Offset           float64 `yaml:"offset" validate:"gt=0,lt=1"`
		ResizeDebounceMs int     `yaml:"resize_debounce_ms" validate:"gte=0"`
	}

	AnimationConfig struct {
		DurationMs int `yaml:"duration_ms" validate:"gt=0"`
	}

	// ThemeConfig carries the few colors the engine itself needs. Everything
	// else is up to per-chart configuration which the engine treats as opaque.
	ThemeConfig struct {
		Highlight  string `yaml:"highlight" validate:"required,hexcolor"`
		Muted      string `yaml:"muted" validate:"required,hexcolor"`
		Background string `yaml:"background" validate:"required,hexcolor"`
	}

	// FilesConfig names narrative inputs relative to the source directory.
	FilesConfig struct {
		Steps    string `yaml:"steps" validate:"required"`
		Episodes string `yaml:"episodes"`
		Topology string `yaml:"topology"`
		DataDir  string `yaml:"data_dir"`
	}

	NarrativeConfig struct {
		Files     FilesConfig     `yaml:"files"`
		Canvas    CanvasConfig    `yaml:"canvas"`
		Scroll    ScrollConfig    `yaml:"scroll"`
		Animation AnimationConfig `yaml:"animation"`
		Theme     ThemeConfig     `yaml:"theme"`
		// DataCacheSize bounds the number of parsed chart data files kept in
		// memory between panel renders.
		DataCacheSize int `yaml:"data_cache_size" validate:"min=1"`
	}

	PreviewConfig struct {
		Listen        string `yaml:"listen" validate:"required,hostname_port"`
		SessionDBPath string `yaml:"session_db_path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Narrative NarrativeConfig `yaml:"narrative"`
		Preview   PreviewConfig   `yaml:"preview"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
