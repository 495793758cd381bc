package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	OutboundTimeout time.Duration
	PublicURL       string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	BucketDocuments string
	BucketAudit     string
	UseSSL          bool
	Region          string
	UploadURLTTL    time.Duration
}

type SecurityConfig struct {
	SessionSecret    string
	SessionMaxAge    time.Duration
	RefreshThreshold time.Duration
	SecureCookies    bool
	MFACodeTTL       time.Duration
	MFACodeDigits    int
}

// EmbeddedAuthConfig describes the external identity provider. All three of
// Domain, AppID and RedirectURI are required to begin a sign-in.
type EmbeddedAuthConfig struct {
	Domain      string
	AppID       string
	RedirectURI string
	Region      string
}

type GateConfig struct {
	DevBypass         bool
	RateLimitWindow   time.Duration
	RateLimitMax      int
	RateLimitBackend  string
	MaxTrackedClients int
	DefaultDashboard  string
}

type RBACConfig struct {
	Routes map[string]string
}

type AuditConfig struct {
	Sink       string
	Endpoint   string
	Stream     string
	BufferSize int
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Auth             EmbeddedAuthConfig
	Gate             GateConfig
	RBAC             RBACConfig
	Audit            AuditConfig
	Worker           WorkerConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return LoadFrom(v)
}

// LoadFrom applies env bindings and defaults to v and decodes it.
func LoadFrom(v *viper.Viper) (*AppConfig, error) {
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Security.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("security.sessionsecret is required in production")
		}
		cfg.Security.SessionSecret = "dev-only-session-secret"
	}
	if cfg.Security.SessionMaxAge <= cfg.Security.RefreshThreshold {
		return nil, fmt.Errorf("security.sessionmaxage must exceed security.refreshthreshold")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.outboundtimeout", "5s")
	v.SetDefault("http.publicurl", "http://localhost:8080")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketdocuments", "portal-documents")
	v.SetDefault("storage.bucketaudit", "portal-audit")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.uploadurlttl", "15m")

	v.SetDefault("security.sessionmaxage", "24h")
	v.SetDefault("security.refreshthreshold", "5m")
	v.SetDefault("security.securecookies", false)
	v.SetDefault("security.mfacodettl", "5m")
	v.SetDefault("security.mfacodedigits", 6)

	v.SetDefault("gate.devbypass", false)
	v.SetDefault("gate.ratelimitwindow", "60s")
	v.SetDefault("gate.ratelimitmax", 100)
	v.SetDefault("gate.ratelimitbackend", "memory")
	v.SetDefault("gate.maxtrackedclients", 65536)
	v.SetDefault("gate.defaultdashboard", "/client-dashboard")

	v.SetDefault("rbac.routes", map[string]string{
		"/admin-dashboard":      "admin",
		"/client-dashboard":     "client",
		"/employee-dashboard":   "employee",
		"/contractor-dashboard": "contractor",
	})

	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.stream", "portal:audit")
	v.SetDefault("audit.buffersize", 256)

	v.SetDefault("worker.stream", "portal:audit")
	v.SetDefault("worker.group", "audit-archivers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "10s")

	v.SetDefault("logging.level", "")

	// Keys without a meaningful default are still registered so that
	// AutomaticEnv can populate them during Unmarshal.
	for _, key := range []string{
		"postgres.dsn",
		"redis.addr", "redis.password",
		"storage.endpoint", "storage.accesskey", "storage.secretkey",
		"security.sessionsecret",
		"auth.domain", "auth.appid", "auth.redirecturi", "auth.region",
		"audit.endpoint",
		"allowcorsorigins",
	} {
		v.SetDefault(key, "")
	}
}
