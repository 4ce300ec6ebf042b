package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port        string `yaml:"port"`
	MongoURI    string `yaml:"mongo_uri"`
	DBName      string `yaml:"db_name"`
	StoreDriver string `yaml:"store_driver"`
	JWTSecret   string `yaml:"jwt_secret"`

	ImagesDir         string `yaml:"images_dir"`
	TempDir           string `yaml:"temp_dir"`
	MaxImageDimension int    `yaml:"max_image_dimension"`
	ImageQuality      int    `yaml:"image_quality"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`
	PublicBaseURL     string `yaml:"public_base_url"`

	Debug          bool    `yaml:"debug"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	CleanupInterval     time.Duration `yaml:"cleanup_interval"`
	AuditExportInterval time.Duration `yaml:"audit_export_interval"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
}

func defaults() Config {
	return Config{
		Port:                "4000",
		MongoURI:            "mongodb://localhost:27017",
		DBName:              "vieux_grimoire",
		StoreDriver:         DriverMongo,
		ImagesDir:           "images",
		TempDir:             os.TempDir(),
		MaxImageDimension:   2000,
		ImageQuality:        80,
		MaxUploadBytes:      10 << 20,
		RateLimitRPS:        10,
		RateLimitBurst:      20,
		CleanupInterval:     time.Minute,
		AuditExportInterval: 5 * time.Minute,
		RequestTimeout:      5 * time.Second,
	}
}

// LoadConfig reads .env, then the YAML file named by CONFIG_FILE, then environment
// variables. Later sources win.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.DBName, "DB_NAME")
	setString(&cfg.StoreDriver, "STORE_DRIVER")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.ImagesDir, "IMAGES_DIR")
	setString(&cfg.TempDir, "TEMP_DIR")
	setString(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")

	return errors.Join(
		setInt(&cfg.MaxImageDimension, "MAX_IMAGE_DIMENSION"),
		setInt(&cfg.ImageQuality, "IMAGE_QUALITY"),
		setInt64(&cfg.MaxUploadBytes, "MAX_UPLOAD_BYTES"),
		setBool(&cfg.Debug, "DEBUG"),
		setFloat(&cfg.RateLimitRPS, "RATE_LIMIT_RPS"),
		setInt(&cfg.RateLimitBurst, "RATE_LIMIT_BURST"),
		setDuration(&cfg.CleanupInterval, "CLEANUP_INTERVAL"),
		setDuration(&cfg.AuditExportInterval, "AUDIT_EXPORT_INTERVAL"),
		setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT"),
	)
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MaxImageDimension <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_DIMENSION must be positive, got %d", c.MaxImageDimension))
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		errs = append(errs, fmt.Errorf("IMAGE_QUALITY must be within 1..100, got %d", c.ImageQuality))
	}
	if c.StoreDriver != DriverMongo && c.StoreDriver != DriverMemory {
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMongo, DriverMemory, c.StoreDriver))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
