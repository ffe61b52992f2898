package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Serve    ServeConfig    `yaml:"serve" mapstructure:"serve"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the raw inputs: region boundaries, the indicator
// table and the store point file, plus the local cache directory the fetch
// phase downloads into.
type DataConfig struct {
	Dir           string       `yaml:"dir" mapstructure:"dir"`
	Regions       SourceConfig `yaml:"regions" mapstructure:"regions"`
	Indicators    SourceConfig `yaml:"indicators" mapstructure:"indicators"`
	Stores        SourceConfig `yaml:"stores" mapstructure:"stores"`
	VariablesFile string       `yaml:"variables_file" mapstructure:"variables_file"`
	FTP           FTPConfig    `yaml:"ftp" mapstructure:"ftp"`
	Fetch         FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
}

// SourceConfig describes one remote input file.
type SourceConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	Format    string `yaml:"format" mapstructure:"format"`
	IDField   string `yaml:"id_field" mapstructure:"id_field"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// FTPConfig holds credentials for FTP-hosted sources.
type FTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// FetchConfig bounds download behavior.
type FetchConfig struct {
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries        int     `yaml:"retries" mapstructure:"retries"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxConcurrency int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// StoreConfig configures the run-archive backend.
type StoreConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// AnalysisConfig holds the statistical settings for an analysis run.
type AnalysisConfig struct {
	Contiguity  string   `yaml:"contiguity" mapstructure:"contiguity"`
	Weights     string   `yaml:"weights" mapstructure:"weights"`
	Sims        int      `yaml:"sims" mapstructure:"sims"`
	Seed        int64    `yaml:"seed" mapstructure:"seed"`
	Alternative string   `yaml:"alternative" mapstructure:"alternative"`
	Islands     string   `yaml:"islands" mapstructure:"islands"`
	Regression  string   `yaml:"regression" mapstructure:"regression"`
	Response    string   `yaml:"response" mapstructure:"response"`
	Covariates  []string `yaml:"covariates" mapstructure:"covariates"`
	Workers     int      `yaml:"workers" mapstructure:"workers"`
}

// ServeConfig configures the HTTP results server.
type ServeConfig struct {
	Addr                string `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file: FOODACCESS_CONFIG wins, else ./foodaccess.yaml.
	if path := os.Getenv("FOODACCESS_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("foodaccess")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("FOODACCESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.variables_file", "./variables.yaml")
	v.SetDefault("data.regions.url", "https://data.cityofchicago.org/api/geospatial/cauq-8yn6?method=export&format=Shapefile")
	v.SetDefault("data.regions.format", "shapefile")
	v.SetDefault("data.regions.id_field", "area_numbe")
	v.SetDefault("data.regions.name_field", "community")
	v.SetDefault("data.indicators.url", "https://data.cityofchicago.org/api/views/kn9c-c2s2/rows.csv?accessType=DOWNLOAD")
	v.SetDefault("data.indicators.format", "csv")
	v.SetDefault("data.stores.url", "https://data.cityofchicago.org/api/views/53t8-wyrc/rows.csv?accessType=DOWNLOAD")
	v.SetDefault("data.stores.format", "csv")
	v.SetDefault("data.fetch.timeout_secs", 120)
	v.SetDefault("data.fetch.retries", 3)
	v.SetDefault("data.fetch.rate_per_sec", 2.0)
	v.SetDefault("data.fetch.max_concurrency", 3)
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/foodaccess.db")
	v.SetDefault("analysis.contiguity", "queen")
	v.SetDefault("analysis.weights", "row")
	v.SetDefault("analysis.sims", 999)
	v.SetDefault("analysis.seed", 0)
	v.SetDefault("analysis.alternative", "greater")
	v.SetDefault("analysis.islands", "include")
	v.SetDefault("analysis.regression", "spatial-lag")
	v.SetDefault("analysis.response", "access_rate")
	v.SetDefault("analysis.covariates", []string{"pct_below_poverty", "per_capita_income", "pct_no_vehicle"})
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.shutdown_timeout_secs", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command mode depends on, collecting every
// problem rather than stopping at the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Backend {
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required")
			}
		case "postgres":
			if c.Store.PostgresDSN == "" {
				problems = append(problems, "store.postgres_dsn is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("store.backend must be sqlite or postgres, got %q", c.Store.Backend))
		}
	}
	checkAnalysis := func() {
		switch c.Analysis.Contiguity {
		case "queen", "rook":
		default:
			problems = append(problems, fmt.Sprintf("analysis.contiguity must be queen or rook, got %q", c.Analysis.Contiguity))
		}
		switch c.Analysis.Weights {
		case "row", "binary":
		default:
			problems = append(problems, fmt.Sprintf("analysis.weights must be row or binary, got %q", c.Analysis.Weights))
		}
		switch c.Analysis.Alternative {
		case "greater", "less", "two-sided":
		default:
			problems = append(problems, fmt.Sprintf("analysis.alternative must be greater, less or two-sided, got %q", c.Analysis.Alternative))
		}
		switch c.Analysis.Islands {
		case "include", "exclude":
		default:
			problems = append(problems, fmt.Sprintf("analysis.islands must be include or exclude, got %q", c.Analysis.Islands))
		}
		switch c.Analysis.Regression {
		case "spatial-lag", "none":
		default:
			problems = append(problems, fmt.Sprintf("analysis.regression must be spatial-lag or none, got %q", c.Analysis.Regression))
		}
		if c.Analysis.Sims < 1 {
			problems = append(problems, "analysis.sims must be >= 1")
		}
		if c.Analysis.Response == "" {
			problems = append(problems, "analysis.response is required")
		}
	}

	switch mode {
	case "fetch":
		if c.Data.Dir == "" {
			problems = append(problems, "data.dir is required")
		}
		if c.Data.Regions.URL == "" {
			problems = append(problems, "data.regions.url is required")
		}
	case "ingest":
		if c.Data.Dir == "" {
			problems = append(problems, "data.dir is required")
		}
		checkStore()
	case "analyze":
		checkStore()
		checkAnalysis()
	case "serve":
		if c.Serve.Addr == "" {
			problems = append(problems, "serve.addr is required")
		}
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
