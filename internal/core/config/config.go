package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`
	// BaseURL 邮件里拼链接用，例如 https://ideas.example.com
	BaseURL string `mapstructure:"base_url"`
}
type AdminHTTP struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type App struct {
	Name  string    `mapstructure:"name"`
	Env   string    `mapstructure:"env"`
	HTTP  HTTP      `mapstructure:"http"`
	Admin AdminHTTP `mapstructure:"admin"`
}

type LogFile struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level string  `mapstructure:"level"`
	JSON  bool    `mapstructure:"json"`
	File  LogFile `mapstructure:"file"`
}

type JWT struct {
	Secret            string `mapstructure:"secret"`
	Issuer            string `mapstructure:"issuer"`
	AccessTokenTTLMin int    `mapstructure:"access_token_ttl_min"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

// Queue 通知任务队列：memory 仅限单进程，redis 可由 ideactl worker 独立消费
type Queue struct {
	Driver      string `mapstructure:"driver"`
	Key         string `mapstructure:"key"`
	Workers     int    `mapstructure:"workers"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Mail struct {
	Driver string `mapstructure:"driver"` // log | smtp
	From   string `mapstructure:"from"`
	SMTP   SMTP   `mapstructure:"smtp"`
}

type Session struct {
	Driver     string `mapstructure:"driver"` // memory | redis
	CookieName string `mapstructure:"cookie_name"`
	TTLMin     int    `mapstructure:"ttl_min"`
	Secure     bool   `mapstructure:"secure"`
}

type Board struct {
	IdeasPerPage    int `mapstructure:"ideas_per_page"`
	CommentsPerPage int `mapstructure:"comments_per_page"`
}

type Cache struct {
	Enable bool `mapstructure:"enable"`
	TTLSec int  `mapstructure:"ttl_sec"`
}

type Config struct {
	App     App     `mapstructure:"app"`
	Log     Log     `mapstructure:"log"`
	JWT     JWT     `mapstructure:"jwt"`
	DB      DB      `mapstructure:"db"`
	Redis   Redis   `mapstructure:"redis"`
	Queue   Queue   `mapstructure:"queue"`
	Mail    Mail    `mapstructure:"mail"`
	Session Session `mapstructure:"session"`
	Board   Board   `mapstructure:"board"`
	Cache   Cache   `mapstructure:"cache"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "idea-board")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.read_timeout_sec", 5)
	v.SetDefault("app.http.write_timeout_sec", 10)
	v.SetDefault("app.http.idle_timeout_sec", 60)
	v.SetDefault("app.http.base_url", "http://127.0.0.1:8080")
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 30)

	v.SetDefault("jwt.issuer", "idea-board")
	v.SetDefault("jwt.access_token_ttl_min", 120)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "data/idea_board.db")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("redis.addr", "127.0.0.1:6379")

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.key", "ideaboard:queue")
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.max_attempts", 3)

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.from", "ideas@example.com")
	v.SetDefault("mail.smtp.port", 587)

	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.cookie_name", "ib_session")
	v.SetDefault("session.ttl_min", 120)

	v.SetDefault("board.ideas_per_page", 10)
	v.SetDefault("board.comments_per_page", 20)

	v.SetDefault("cache.ttl_sec", 600)
}

// Load 读取 YAML + APP_ 前缀环境变量；失败直接 Fatal（启动阶段）
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}

// Read 同 Load，但把错误交给调用方
func Read(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
