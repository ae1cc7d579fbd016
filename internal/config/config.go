// Package config handles exporter configuration loading and management.
package config

// Config holds all exporter settings.
type Config struct {
	Export     ExportConfig     `yaml:"export"`
	Primitives PrimitivesConfig `yaml:"primitives"`
	Material   MaterialConfig   `yaml:"material"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ExportConfig holds scene file output settings.
type ExportConfig struct {
	Output      string `yaml:"output"`       // Destination .glb path
	Generator   string `yaml:"generator"`    // asset.generator in the manifest
	TightBounds bool   `yaml:"tight_bounds"` // Per-mesh accessor bounds instead of whole-array bounds
}

// PrimitivesConfig overrides the built-in primitive OBJ assets.
// Empty paths select the embedded assets.
type PrimitivesConfig struct {
	Plane  string `yaml:"plane"`
	Sphere string `yaml:"sphere"`
}

// MaterialConfig describes the single flat material shared by every mesh.
type MaterialConfig struct {
	BaseColor [4]float64 `yaml:"base_color"`
	Metallic  float64    `yaml:"metallic"`
	Roughness float64    `yaml:"roughness"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Output:      "scene.glb",
			Generator:   "simscene",
			TightBounds: false,
		},
		Material: MaterialConfig{
			BaseColor: [4]float64{1, 1, 1, 1},
			Metallic:  0,
			Roughness: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
