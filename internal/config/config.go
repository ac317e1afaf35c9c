// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Territory TerritoryConfig `mapstructure:"territory"`
	DB        DBConfig        `mapstructure:"db"`
	Eurostat  EurostatConfig  `mapstructure:"eurostat"`
	Istat     IstatConfig     `mapstructure:"istat"`
	Nominatim NominatimConfig `mapstructure:"nominatim"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Synthetic SyntheticConfig `mapstructure:"synthetic"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TerritoryConfig names the metropolitan area being tracked.
type TerritoryConfig struct {
	Name     string `mapstructure:"name"`      // display name, e.g. "Napoli"
	GeoCode  string `mapstructure:"geo_code"`  // NUTS-2 code for the region, e.g. "ITF3"
	AreaHint string `mapstructure:"area_hint"` // appended to geocoding queries
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// EurostatConfig points at the regional statistics dissemination API.
type EurostatConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Dataset        string `mapstructure:"dataset"`
	FromYear       int    `mapstructure:"from_year"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// IstatConfig points at the primary statistical source.
type IstatConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// NominatimConfig controls the geocoding client.
type NominatimConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// OverpassConfig controls the POI fetcher.
type OverpassConfig struct {
	URL            string `mapstructure:"url"`
	MaxResults     int    `mapstructure:"max_results"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ScraperConfig governs the job-listing scraper.
type ScraperConfig struct {
	Mode              string   `mapstructure:"mode"` // "headless" or "static"
	BaseURL           string   `mapstructure:"base_url"`
	Keywords          []string `mapstructure:"keywords"`
	MaxPerKeyword     int      `mapstructure:"max_per_keyword"`
	UserAgent         string   `mapstructure:"user_agent"`
	AcceptLanguage    string   `mapstructure:"accept_language"`
	NavTimeoutSeconds int      `mapstructure:"nav_timeout_seconds"`
	ArchiveHTML       bool     `mapstructure:"archive_html"`
}

// SyntheticConfig parameterizes the synthetic series generator. The clamp
// bounds and drift slopes are territory statistics, not hard-coded law.
type SyntheticConfig struct {
	StartRate    float64 `mapstructure:"start_rate"`
	MinRate      float64 `mapstructure:"min_rate"`
	MaxRate      float64 `mapstructure:"max_rate"`
	MonthlyDrift float64 `mapstructure:"monthly_drift"`
	NoiseBand    float64 `mapstructure:"noise_band"`
	FromMonth    string  `mapstructure:"from_month"` // YYYY-MM

	RentStart      float64 `mapstructure:"rent_start"`
	HouseStart     float64 `mapstructure:"house_start"`
	CostIndexStart float64 `mapstructure:"cost_index_start"`
	TransportBase  float64 `mapstructure:"transport_base"`
	GroceriesBase  float64 `mapstructure:"groceries_base"`
}

// ScheduleConfig holds the cron expressions for the three pipelines.
type ScheduleConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Stats    string `mapstructure:"stats"`
	POIs     string `mapstructure:"pois"`
	Listings string `mapstructure:"listings"`
}

// PubSubConfig holds metadata for run-summary notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// StorageConfig selects the blob archive backend.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // "gcs", "local" or "none"
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("territory.name", "Napoli")
	v.SetDefault("territory.geo_code", "ITF3")
	v.SetDefault("territory.area_hint", "Napoli, Italia")

	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)

	v.SetDefault("eurostat.base_url", "https://ec.europa.eu/eurostat/api/dissemination/statistics/1.0/data")
	v.SetDefault("eurostat.dataset", "lfst_r_lfu3rt")
	v.SetDefault("eurostat.from_year", 2020)
	v.SetDefault("eurostat.timeout_seconds", 30)

	v.SetDefault("istat.url", "http://sdmx.istat.it/SDMXWS/rest/data/47_850/")
	v.SetDefault("istat.timeout_seconds", 30)

	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "pulse-ingest/0.1 (contact@napolipulse.example)")
	v.SetDefault("nominatim.timeout_seconds", 10)

	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.max_results", 1000)
	v.SetDefault("overpass.timeout_seconds", 120)

	v.SetDefault("scraper.mode", "headless")
	v.SetDefault("scraper.base_url", "https://it.indeed.com")
	v.SetDefault("scraper.keywords", []string{"sviluppatore", "cameriere", "commesso", "magazziniere", "impiegato"})
	v.SetDefault("scraper.max_per_keyword", 10)
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.accept_language", "it-IT,it;q=0.9,en-US;q=0.8,en;q=0.7")
	v.SetDefault("scraper.nav_timeout_seconds", 15)
	v.SetDefault("scraper.archive_html", false)

	// Napoli labor-force statistics; adjust together with territory.*.
	v.SetDefault("synthetic.start_rate", 16.2)
	v.SetDefault("synthetic.min_rate", 13.5)
	v.SetDefault("synthetic.max_rate", 17.0)
	v.SetDefault("synthetic.monthly_drift", -0.02)
	v.SetDefault("synthetic.noise_band", 0.15)
	v.SetDefault("synthetic.from_month", "2022-01")
	v.SetDefault("synthetic.rent_start", 11.5)
	v.SetDefault("synthetic.house_start", 2800)
	v.SetDefault("synthetic.cost_index_start", 95)
	v.SetDefault("synthetic.transport_base", 35)
	v.SetDefault("synthetic.groceries_base", 280)

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.stats", "0 2 * * 0")
	v.SetDefault("schedule.pois", "0 3 1,15 * *")
	v.SetDefault("schedule.listings", "0 4 * * *")

	v.SetDefault("storage.provider", "none")
	v.SetDefault("storage.prefix", "scrapes")

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Territory.Name == "" {
		return fmt.Errorf("territory.name is required")
	}
	if c.Territory.GeoCode == "" {
		return fmt.Errorf("territory.geo_code is required")
	}
	if c.Eurostat.TimeoutSeconds <= 0 {
		return fmt.Errorf("eurostat.timeout_seconds must be > 0")
	}
	if c.Overpass.MaxResults <= 0 {
		return fmt.Errorf("overpass.max_results must be > 0")
	}
	if c.Scraper.Mode != "headless" && c.Scraper.Mode != "static" {
		return fmt.Errorf("scraper.mode must be \"headless\" or \"static\", got %q", c.Scraper.Mode)
	}
	if c.Scraper.MaxPerKeyword <= 0 {
		return fmt.Errorf("scraper.max_per_keyword must be > 0")
	}
	if c.Synthetic.MinRate >= c.Synthetic.MaxRate {
		return fmt.Errorf("synthetic.min_rate must be < synthetic.max_rate")
	}
	if c.Synthetic.MinRate < 0 || c.Synthetic.MaxRate > 100 {
		return fmt.Errorf("synthetic rate clamp must stay within [0,100]")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.provider is \"gcs\" but storage.gcs_bucket is not set")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.provider is \"local\" but storage.local_dir is not set")
		}
	case "none":
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	return nil
}
