package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Upload providers.
const (
	UploadProviderLocal      = "local"
	UploadProviderCloudinary = "cloudinary"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	CORS      CORSConfig
	Log       LogConfig
	Upload    UploadConfig
	Reconcile ReconcileConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// JWTConfig covers the patient/doctor token channel.
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
	// RejectDualCredentials turns a request carrying both a doctor and a
	// patient token into an authentication failure instead of preferring the doctor.
	RejectDualCredentials bool
}

// AdminConfig holds the static admin identity exchanged for an admin token.
type AdminConfig struct {
	Email           string
	Password        string
	TokenExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadConfig selects the blob store used for profile and doctor images.
type UploadConfig struct {
	Provider      string
	LocalDir      string
	PublicBaseURL string
	MaxBytes      int64
	Cloudinary    CloudinaryConfig
}

// CloudinaryConfig configures the Cloudinary upload API client.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	APIKey       string
	APISecret    string
	BaseURL      string
}

// ReconcileConfig drives the slot registry sweep.
type ReconcileConfig struct {
	Enabled  bool
	Interval time.Duration
	Workers  int
	LockTTL  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		CacheTTL: parseDuration(v.GetString("REDIS_CACHE_TTL"), 30*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:                v.GetString("JWT_SECRET"),
		Expiration:            parseDuration(v.GetString("JWT_EXPIRATION"), 7*24*time.Hour),
		Issuer:                v.GetString("JWT_ISSUER"),
		RejectDualCredentials: v.GetBool("AUTH_REJECT_DUAL_CREDENTIALS"),
	}

	cfg.Admin = AdminConfig{
		Email:           v.GetString("ADMIN_EMAIL"),
		Password:        v.GetString("ADMIN_PASSWORD"),
		TokenExpiration: parseDuration(v.GetString("ADMIN_JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_BYTES")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{
		Provider:      strings.ToLower(v.GetString("UPLOAD_PROVIDER")),
		LocalDir:      v.GetString("UPLOAD_LOCAL_DIR"),
		PublicBaseURL: v.GetString("UPLOAD_PUBLIC_BASE_URL"),
		MaxBytes:      maxUpload,
		Cloudinary: CloudinaryConfig{
			CloudName:    v.GetString("CLOUDINARY_CLOUD_NAME"),
			UploadPreset: v.GetString("CLOUDINARY_UPLOAD_PRESET"),
			APIKey:       v.GetString("CLOUDINARY_API_KEY"),
			APISecret:    v.GetString("CLOUDINARY_API_SECRET"),
			BaseURL:      v.GetString("CLOUDINARY_BASE_URL"),
		},
	}

	cfg.Reconcile = ReconcileConfig{
		Enabled:  v.GetBool("RECONCILE_ENABLED"),
		Interval: parseDuration(v.GetString("RECONCILE_INTERVAL"), 15*time.Minute),
		Workers:  v.GetInt("RECONCILE_WORKERS"),
		LockTTL:  parseDuration(v.GetString("RECONCILE_LOCK_TTL"), 5*time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultJWTSecret = "dev_secret"

// validate refuses development credentials outside development.
func (c *Config) validate() error {
	if c.Env != EnvProduction {
		return nil
	}
	if secret := strings.TrimSpace(c.JWT.Secret); secret == "" || secret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set to a non-default value in production")
	}
	if strings.TrimSpace(c.Admin.Password) == "" {
		return errors.New("ADMIN_PASSWORD must be set in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "clinic")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL", "30s")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "clinic-api")
	v.SetDefault("AUTH_REJECT_DUAL_CREDENTIALS", false)

	v.SetDefault("ADMIN_EMAIL", "admin@clinic.local")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOAD_PROVIDER", UploadProviderLocal)
	v.SetDefault("UPLOAD_LOCAL_DIR", "./uploads")
	v.SetDefault("UPLOAD_PUBLIC_BASE_URL", "http://localhost:8000/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5*1024*1024)
	v.SetDefault("CLOUDINARY_BASE_URL", "https://api.cloudinary.com/v1_1")

	v.SetDefault("RECONCILE_ENABLED", false)
	v.SetDefault("RECONCILE_INTERVAL", "15m")
	v.SetDefault("RECONCILE_WORKERS", 2)
	v.SetDefault("RECONCILE_LOCK_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
