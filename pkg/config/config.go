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

// Upload drivers supported by the upload collaborator.
const (
	UploadDriverLocal      = "local"
	UploadDriverCloudinary = "cloudinary"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Migrations MigrationsConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Forms      FormsConfig
	Upload     UploadConfig
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

// MigrationsConfig points golang-migrate at the SQL files.
type MigrationsConfig struct {
	Dir         string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FormsConfig tunes the dynamic form subsystem.
type FormsConfig struct {
	PublicBaseURL     string
	DefaultSubmitText string
	CacheEnabled      bool
	CacheTTL          time.Duration
	MaxUploadBytes    int64
}

// UploadConfig selects and configures the upload collaborator.
type UploadConfig struct {
	Driver     string
	LocalDir   string
	PublicURL  string
	Cloudinary CloudinaryConfig
}

// CloudinaryConfig holds media library credentials and upload settings.
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	Folder       string
	UploadPreset string
	APIURL       string
	Timeout      time.Duration
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

	cfg.Migrations = MigrationsConfig{
		Dir:         v.GetString("MIGRATIONS_DIR"),
		AutoMigrate: v.GetBool("AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("FORMS_MAX_UPLOAD_SIZE")
	if maxUpload <= 0 {
		maxUpload = 20 * 1024 * 1024
	}
	cfg.Forms = FormsConfig{
		PublicBaseURL:     strings.TrimRight(v.GetString("FORMS_PUBLIC_BASE_URL"), "/"),
		DefaultSubmitText: v.GetString("FORMS_DEFAULT_SUBMIT_TEXT"),
		CacheEnabled:      v.GetBool("FORMS_CACHE_ENABLED"),
		CacheTTL:          parseDuration(v.GetString("FORMS_CACHE_TTL"), 5*time.Minute),
		MaxUploadBytes:    maxUpload,
	}

	cfg.Upload = UploadConfig{
		Driver:    strings.ToLower(v.GetString("UPLOAD_DRIVER")),
		LocalDir:  v.GetString("UPLOAD_LOCAL_DIR"),
		PublicURL: strings.TrimRight(v.GetString("UPLOAD_PUBLIC_URL"), "/"),
		Cloudinary: CloudinaryConfig{
			CloudName:    v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:       v.GetString("CLOUDINARY_API_KEY"),
			APISecret:    v.GetString("CLOUDINARY_API_SECRET"),
			Folder:       v.GetString("CLOUDINARY_FOLDER"),
			UploadPreset: v.GetString("CLOUDINARY_UPLOAD_PRESET"),
			APIURL:       strings.TrimRight(v.GetString("CLOUDINARY_API_URL"), "/"),
			Timeout:      parseDuration(v.GetString("CLOUDINARY_TIMEOUT"), 30*time.Second),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "jobfair_forms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "jobfair-portal")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FORMS_PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("FORMS_DEFAULT_SUBMIT_TEXT", "Submit")
	v.SetDefault("FORMS_CACHE_ENABLED", false)
	v.SetDefault("FORMS_CACHE_TTL", "5m")
	v.SetDefault("FORMS_MAX_UPLOAD_SIZE", 20*1024*1024)

	v.SetDefault("UPLOAD_DRIVER", UploadDriverLocal)
	v.SetDefault("UPLOAD_LOCAL_DIR", "./uploads")
	v.SetDefault("UPLOAD_PUBLIC_URL", "http://localhost:8080/uploads")
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("CLOUDINARY_FOLDER", "jobfair-forms")
	v.SetDefault("CLOUDINARY_UPLOAD_PRESET", "")
	v.SetDefault("CLOUDINARY_API_URL", "https://api.cloudinary.com")
	v.SetDefault("CLOUDINARY_TIMEOUT", "30s")
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
