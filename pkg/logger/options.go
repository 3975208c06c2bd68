package logger

// Config is what NewLogger is built from. Options mutate it.
type Config struct {
	Level         string
	Encoding      string // json or console
	OutputPaths   []string
	Rotation      Rotation
	Development   bool
	InitialFields map[string]interface{}
}

// Rotation applies to file sinks only.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Level:         "info",
		Encoding:      "json",
		OutputPaths:   []string{"stdout"},
		Rotation:      Rotation{MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 7, Compress: true},
		InitialFields: map[string]interface{}{},
	}
}

func WithLevel(level string) Option {
	return func(c *Config) { c.Level = level }
}

func WithEncoding(encoding string) Option {
	return func(c *Config) { c.Encoding = encoding }
}

func WithOutputPaths(paths []string) Option {
	return func(c *Config) { c.OutputPaths = paths }
}

func WithRotation(r Rotation) Option {
	return func(c *Config) { c.Rotation = r }
}

// WithDevelopment turns on zap's development mode.
func WithDevelopment(dev bool) Option {
	return func(c *Config) { c.Development = dev }
}

// WithInitialFields adds fields such as the service name to every entry.
func WithInitialFields(fields map[string]interface{}) Option {
	return func(c *Config) {
		for k, v := range fields {
			c.InitialFields[k] = v
		}
	}
}
