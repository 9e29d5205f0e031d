package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig    BasicConfig               `json:"basic_config"`
	Databases      map[string]DatabaseConfig `json:"databases"`
	Redis          RedisConfig               `json:"redis"`
	Log            LogConfig                 `json:"log"`
	Data           DataConfig                `json:"data"`
	DashboardRoles map[string][]string       `json:"dashboard_roles"`
}

type BasicConfig struct {
	ServerAddress      string   `json:"server_address"`
	TokenTTL           int      `json:"token_ttl"`            // minutes
	TokenCleanInterval int      `json:"token_clean_interval"` // minutes
	BcryptCost         int      `json:"bcrypt_cost"`
	SelfRegisterRoles  []string `json:"self_register_roles"`  // empty means user only
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type LogConfig struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// DataConfig points at the CSV or XLSX files behind the dashboards.
type DataConfig struct {
	CyberIncidentsPath string `json:"cyber_incidents_path"`
	ITTicketsPath      string `json:"it_tickets_path"`
}

// Load reads configuration from the provided path (defaults to config.json).
// A .env file next to the working directory is applied first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("INSIGHTPORTAL_CONFIG")
	}
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if addr := os.Getenv("INSIGHTPORTAL_ADDR"); addr != "" {
		cfg.BasicConfig.ServerAddress = addr
	}
	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}

	base := filepath.Dir(absPath)
	cfg.Data.CyberIncidentsPath = resolve(base, cfg.Data.CyberIncidentsPath)
	cfg.Data.ITTicketsPath = resolve(base, cfg.Data.ITTicketsPath)
	for name, db := range cfg.Databases {
		if (name == "sqlite" || name == "sqlite3") && db.DSN != "" && db.DSN != ":memory:" {
			db.DSN = resolve(base, db.DSN)
			cfg.Databases[name] = db
		}
	}
	return &cfg, nil
}

// DatabaseType returns the driver selected through INSIGHTPORTAL_DB, defaulting to sqlite3.
func DatabaseType() string {
	if v := os.Getenv("INSIGHTPORTAL_DB"); v != "" {
		return v
	}
	return "sqlite3"
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
