package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	AppName      string
	Env          string
	Build        string
	Debug        bool
	RollbarToken string

	API struct {
		BaseURL string
		Timeout time.Duration
	}

	Session struct {
		Token     string // JWT issued by the backend
		SecretKey string // optional; when set the token signature is verified locally
	}

	List struct {
		DebounceDelay time.Duration
		PageSize      int
	}

	Database struct {
		Engine string // sqlite | postgres
		DSN    string
	}
}

// NewConfig loads the configuration from defaults, an optional `<dir>/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. DEV_API_BASEURL.
func NewConfig(dir ...string) (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Klabu")
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("api.baseURL", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("session.token", "")
	v.SetDefault("session.secretKey", "")
	v.SetDefault("list.debounceDelay", 300*time.Millisecond)
	v.SetDefault("list.pageSize", 10)
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.dsn", "klabu.db")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	confDir := "config"
	if len(dir) > 0 && dir[0] != "" {
		confDir = dir[0]
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.API.BaseURL = strings.TrimRight(v.GetString("api.baseURL"), "/")
	conf.API.Timeout = v.GetDuration("api.timeout")
	conf.Session.Token = v.GetString("session.token")
	conf.Session.SecretKey = v.GetString("session.secretKey")
	conf.List.DebounceDelay = v.GetDuration("list.debounceDelay")
	conf.List.PageSize = v.GetInt("list.pageSize")
	conf.Database.Engine = CleanString(v.GetString("database.engine"), true /* lower */)
	conf.Database.DSN = v.GetString("database.dsn")

	if conf.List.PageSize <= 0 {
		return nil, errors.Errorf("list.pageSize must be positive (got %d)", conf.List.PageSize)
	}
	if conf.List.DebounceDelay < 0 {
		return nil, errors.Errorf("list.debounceDelay cannot be negative (got %s)", conf.List.DebounceDelay)
	}
	return conf, nil
}
