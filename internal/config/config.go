package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Драйверы хранилища сессий и смет.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
		PollTimeout int   `mapstructure:"poll_timeout"`
		Workers     int
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Storage struct {
		Driver     string
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"storage"`

	Catalog struct {
		Path     string
		PageSize int `mapstructure:"page_size"`
	} `mapstructure:"catalog"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	NATS struct {
		URL     string
		Subject string
	} `mapstructure:"nats"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	// APP_TELEGRAM_TOKEN -> telegram.token
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("telegram.workers", 8)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("storage.sqlite_path", "data/estimates.db")
	v.SetDefault("catalog.path", "config/services.json")
	v.SetDefault("catalog.page_size", 10)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "estimates.confirmed")
}

// Validate проверяет то, без чего бот не запустится.
func (c Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for storage.driver=postgres"))
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for storage.driver=sqlite"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog.path is required"))
	}
	if c.Catalog.PageSize <= 0 {
		errs = append(errs, errors.New("catalog.page_size must be positive"))
	}
	if c.Telegram.Workers <= 0 {
		errs = append(errs, errors.New("telegram.workers must be positive"))
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required when nats.url is set"))
	}
	return errors.Join(errs...)
}
