// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Serial   SerialConfig   `mapstructure:"serial"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Run      RunConfig      `mapstructure:"run"`
	Output   OutputConfig   `mapstructure:"output"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
}

// AppConfig represents application metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SerialConfig represents the serial line parameters shared by all
// instruments on the bus. The port and read timeout come from the
// device configuration resolver, not from here.
type SerialConfig struct {
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
}

// ScanConfig represents bus scan configuration.
type ScanConfig struct {
	KnownAddressesFile string `mapstructure:"known_addresses_file"`
}

// RunConfig represents the logging run parameters.
type RunConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Duration time.Duration `mapstructure:"duration"`
}

// OutputConfig represents file output configuration.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	CSVFileName  string `mapstructure:"csv_file_name"`
	CSVDelimiter string `mapstructure:"csv_delimiter"`
}

// ServerConfig represents the optional HTTP API server.
type ServerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents the optional Postgres measurement sink.
type DatabaseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// Load loads configuration from file and environment variables. A
// missing config file is not an error: the defaults describe a
// complete standalone run.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("SENSOLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "sensolog")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Serial defaults
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")

	// Scan defaults
	v.SetDefault("scan.known_addresses_file", "configs/known_addresses.json")

	// Run defaults
	v.SetDefault("run.interval", "1s")
	v.SetDefault("run.duration", "0s")

	// Output defaults
	v.SetDefault("output.dir", "")
	v.SetDefault("output.csv_file_name", "measurements.csv")
	v.SetDefault("output.csv_delimiter", ";")

	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sensolog")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")
}

// validate validates the configuration.
func validate(config *Config) error {
	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	if config.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive")
	}
	if config.Run.Interval <= 0 {
		return fmt.Errorf("run.interval must be positive")
	}
	if config.Run.Duration < 0 {
		return fmt.Errorf("run.duration must be 0 (infinite) or positive")
	}
	if len(config.Output.CSVDelimiter) > 1 {
		return fmt.Errorf("output.csv_delimiter must be a single character")
	}

	if config.Server.Enabled {
		if config.Server.Host == "" {
			return fmt.Errorf("server.host is required")
		}
		if config.Server.Port == "" {
			return fmt.Errorf("server.port is required")
		}
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}

	return nil
}

// GetDatabaseDSN returns the database connection string.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the HTTP server address.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// CSVDelimiterRune returns the configured CSV delimiter.
func (c *Config) CSVDelimiterRune() rune {
	if c.Output.CSVDelimiter == "" {
		return ';'
	}
	return rune(c.Output.CSVDelimiter[0])
}

// IsProduction checks if the environment is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
