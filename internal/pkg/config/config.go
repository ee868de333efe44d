package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Scout        ScoutConfig             `mapstructure:"scout"`
	Pipelines    PipelinesConfig         `mapstructure:"pipelines"`
	Transmission VoltageConfig           `mapstructure:"transmission"`
	Substations  SubstationsConfig       `mapstructure:"substations"`
	Sources      map[string]SourceConfig `mapstructure:"sources"`
	Broadband    BroadbandConfig         `mapstructure:"broadband"`
	Census       CensusConfig            `mapstructure:"census"`
	Upstream     UpstreamConfig          `mapstructure:"upstream"`
	Reference    ReferenceConfig         `mapstructure:"reference"`
	Cache        CacheConfig             `mapstructure:"cache"`
	Server       ServerConfig            `mapstructure:"server"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Telemetry    TelemetryConfig         `mapstructure:"telemetry"`
	Temporal     TemporalConfig          `mapstructure:"temporal"`
	Log          LogConfig               `mapstructure:"log"`
}

type ScoutConfig struct {
	DefaultRadiusKm float64 `mapstructure:"default_radius_km"`
	Region          string  `mapstructure:"region"`
	State           string  `mapstructure:"state"`
	MapProvider     string  `mapstructure:"map_provider"`
	TopN            int     `mapstructure:"top_n"`
	VertexOnly      bool    `mapstructure:"vertex_only"`
}

type PipelinesConfig struct {
	Operators []string `mapstructure:"operators"`
	// OnlyWatched restricts the upstream query to the watch-listed operators.
	OnlyWatched bool `mapstructure:"only_watched"`
}

type VoltageConfig struct {
	MinVoltageKV float64 `mapstructure:"min_voltage_kv"`
}

type SubstationsConfig struct {
	MinVoltageKV float64 `mapstructure:"min_voltage_kv"`
	StateFilter  string  `mapstructure:"state_filter"`
}

// SourceConfig overrides the catalog entry of one category.
type SourceConfig struct {
	URL     string              `mapstructure:"url"`
	Where   string              `mapstructure:"where"`
	Enabled *bool               `mapstructure:"enabled"`
	Fields  map[string][]string `mapstructure:"fields"` // tried before the built-in fallbacks
}

type BroadbandConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type CensusConfig struct {
	GeocoderURL string `mapstructure:"geocoder_url"`
	Benchmark   string `mapstructure:"benchmark"`
	Vintage     string `mapstructure:"vintage"`
}

type UpstreamConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxRetries        int     `mapstructure:"max_retries"`
	UserAgent         string  `mapstructure:"user_agent"`
}

type ReferenceConfig struct {
	Source   string `mapstructure:"source"` // "file" or "postgres"
	CacheDir string `mapstructure:"cache_dir"`
}

type CacheConfig struct {
	Addr       string `mapstructure:"addr"` // empty disables the upstream response cache
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
	RateLimit      int `mapstructure:"rate_limit"` // requests per minute per IP
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. When file is
// non-empty it must exist; otherwise config.yaml is looked up in . and ./configs.
func Load(service, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig() // OK if missing
	}

	// Environment variables: SITESCOUT_SCOUT_DEFAULT_RADIUS_KM → scout.default_radius_km
	v.SetEnvPrefix("SITESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("scout.default_radius_km", 15)
	v.SetDefault("scout.region", "Texas")
	v.SetDefault("scout.state", "TX")
	v.SetDefault("scout.map_provider", "maps.google.com")
	v.SetDefault("scout.top_n", 10)
	v.SetDefault("scout.vertex_only", false)
	v.SetDefault("pipelines.operators", []string{"Kinder Morgan", "Targa"})
	v.SetDefault("pipelines.only_watched", false)
	v.SetDefault("transmission.min_voltage_kv", 69)
	v.SetDefault("substations.min_voltage_kv", 69)
	v.SetDefault("substations.state_filter", "TX")
	v.SetDefault("broadband.url", "https://broadbandmap.fcc.gov/api/public/map/listAvailabilities")
	v.SetDefault("broadband.enabled", true)
	v.SetDefault("census.geocoder_url", "https://geocoding.geo.census.gov/geocoder/geographies/coordinates")
	v.SetDefault("census.benchmark", "Public_AR_Current")
	v.SetDefault("census.vintage", "Current_Current")
	v.SetDefault("upstream.timeout_seconds", 30)
	v.SetDefault("upstream.requests_per_second", 5)
	v.SetDefault("upstream.max_retries", 3)
	v.SetDefault("upstream.user_agent", "sitescout/1.0")
	v.SetDefault("reference.source", "file")
	v.SetDefault("reference.cache_dir", "cache")
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.request_timeout", 90)
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "sitescout")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "sitescout")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "site-scout")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Scout.DefaultRadiusKm <= 0 {
		errs = append(errs, fmt.Sprintf("scout.default_radius_km must be positive, got %g", c.Scout.DefaultRadiusKm))
	}
	if c.Scout.MapProvider == "" {
		errs = append(errs, "scout.map_provider is required")
	}
	if c.Scout.TopN <= 0 {
		errs = append(errs, fmt.Sprintf("scout.top_n must be positive, got %d", c.Scout.TopN))
	}
	if c.Transmission.MinVoltageKV < 0 {
		errs = append(errs, "transmission.min_voltage_kv must not be negative")
	}
	if c.Substations.MinVoltageKV < 0 {
		errs = append(errs, "substations.min_voltage_kv must not be negative")
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		errs = append(errs, "upstream.timeout_seconds must be positive")
	}
	if c.Upstream.RequestsPerSecond <= 0 {
		errs = append(errs, "upstream.requests_per_second must be positive")
	}
	if c.Upstream.MaxRetries < 0 {
		errs = append(errs, "upstream.max_retries must not be negative")
	}
	if c.Census.GeocoderURL == "" {
		errs = append(errs, "census.geocoder_url is required")
	}
	if c.Broadband.Enabled && c.Broadband.URL == "" {
		errs = append(errs, "broadband.url is required when broadband.enabled is set")
	}

	switch c.Reference.Source {
	case "file":
		if c.Reference.CacheDir == "" {
			errs = append(errs, "reference.cache_dir is required for the file source")
		}
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("reference.source must be file or postgres, got %q", c.Reference.Source))
	}

	if c.Cache.Addr != "" && c.Cache.TTLSeconds <= 0 {
		errs = append(errs, "cache.ttl_seconds must be positive when cache.addr is set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
