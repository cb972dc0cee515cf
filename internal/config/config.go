package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env                string        `yaml:"env" env:"ENV" env-default:"local"`
	SnapshotsPath      string        `yaml:"snapshots_path" env-default:"./snapshots"`
	DevicesFile        string        `yaml:"devices_file" env-default:"./IP.txt"`
	OpencastConfigPath string        `yaml:"opencast_config_path" env:"OPENCAST_CONFIG_PATH"`
	TokenTTL           time.Duration `yaml:"token_ttl" env-default:"12h"`
	Secret             string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	HTTPServer         `yaml:"http_server"`
	Capture            `yaml:"capture"`
	Schedule           `yaml:"schedule"`
	Metrics            `yaml:"metrics"`
	DB                 `yaml:"db"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type Capture struct {
	SnapshotPath string        `yaml:"snapshot_path" env-default:"snap.jpeg"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env-default:"3s"`
	Interval     int           `yaml:"interval_seconds" env-default:"5"`
	Framerate    int           `yaml:"framerate" env-default:"60"`
	Encoder      string        `yaml:"encoder" env:"ENCODER_PATH" env-default:"ffmpeg"`
	Resolution   string        `yaml:"resolution" env-default:"1920x1080"`
}

type Schedule struct {
	Start         string        `yaml:"start" env-default:"09:00"`
	End           string        `yaml:"end" env-default:"17:00"`
	CheckInterval time.Duration `yaml:"check_interval" env-default:"10s"`
	Engage        bool          `yaml:"engage" env:"SCHEDULE_ENGAGE"`
}

type Metrics struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" env-default:"1s"`
}

type DB struct {
	Driver   string `yaml:"driver" env-default:"postgres"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	Username string `yaml:"username" env-default:"postgres"`
	DBName   string `yaml:"dbname" env-default:"timelapse"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
	Path     string `yaml:"path" env-default:"./timelapse.db"`
	Password string `yaml:"-" env:"POSTGRES_PASSWORD"`
}

func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

// PathOrEnv returns path, falling back to CONFIG_PATH.
func PathOrEnv(path string) string {
	if path != "" {
		return path
	}

	return os.Getenv("CONFIG_PATH")
}

func MustLoadPath(configPath string) *Config {
	if configPath == "" {
		panic("config path is empty")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
func fetchConfigPath() string {
	var res string

	if flag.Lookup("config") == nil {
		flag.StringVar(&res, "config", "", "path to config file")
		flag.Parse()
	}

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
