package telemetry

// LoggingConfig configures NewLogger. A process() batch is one goroutine
// logging a few hundred lines at most, so there is no sampling knob here —
// sampling exists to cap a high-frequency stream, and this engine never
// produces one.
type LoggingConfig struct {
	Output       string `yaml:"output"`
	Format       string `yaml:"format"`
	Level        string `yaml:"level"`
	TimeFormat   string `yaml:"timeFormat"`
	EnableCaller bool   `yaml:"enableCaller"`
}

// MetricsConfig configures NewMetrics.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// Config bundles the engine's ambient observability configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns sensible defaults for a CLI invocation: console
// logging at info level to stderr, metrics under the "tmplengine"
// namespace.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Output:     "stderr",
			Format:     "console",
			Level:      "info",
			TimeFormat: "rfc3339",
		},
		Metrics: MetricsConfig{
			Namespace: "tmplengine",
			Subsystem: "expansion",
		},
	}
}
