package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	KeyGate  KeyGateConfig // การตรวจ token ก่อนส่ง key
	Storage  StorageConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Log      LogConfig
	Limit    RateLimitConfig
	Schedule ScheduleConfig
}

type AppConfig struct {
	Name string
	Port string
	Env  string
	URL  string // public base URL ที่ใช้สร้าง playlist URL และ redirect URL

	CORSOrigins string // comma-separated
}

// JWTConfig สำหรับ playback token
type JWTConfig struct {
	Secret string        // ห้ามว่าง (server จะไม่ start)
	TTL    time.Duration // อายุ token (default 1h)
	Issuer string
}

// KeyGateConfig ตั้งค่า playback/key endpoint
type KeyGateConfig struct {
	DefaultVideoID  string // video ที่ใช้เมื่อ client ไม่ระบุ
	Provider        string // provider tag ใน response ของ /token
	KeyPathPrefix   string // prefix ของ key URL (ใช้ทั้ง route และ client interceptor)
	AllowQueryToken bool   // รับ ?token= สำหรับ client ที่ตั้ง header ไม่ได้
}

type StorageConfig struct {
	Type     string // local, s3
	KeyDir   string // ./keys
	HLSDir   string // ./protected_hls
	CacheTTL time.Duration

	S3 S3Config
}

type S3Config struct {
	Endpoint  string // minio:9000 หรือ xxx.r2.cloudflarestorage.com
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool   // false สำหรับ MinIO local, true สำหรับ R2
	Region    string // auto สำหรับ R2
	Prefix    string // keys/
	HLSPrefix string // protected_hls/
}

// RedisConfig สำหรับ cache key material (optional)
type RedisConfig struct {
	URL      string // redis://localhost:6379
	Password string
	DB       int
}

// NATSConfig สำหรับ publish checkout events (optional)
type NATSConfig struct {
	URL string // nats://localhost:4222
}

type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, text
	Output     string // stdout, file, both
	FilePath   string // logs/app.log
	MaxSize    int    // MB
	MaxBackups int    // จำนวน backup files
	MaxAge     int    // วัน
	Compress   bool   // บีบอัด backup
}

// RateLimitConfig จำกัด request ต่อ IP บน /token และ /key
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type ScheduleConfig struct {
	KeyInventoryCron string // "" = ปิด
}

func LoadConfig() (*Config, error) {
	// ไม่มี .env ก็ใช้ environment variables ตรง ๆ
	_ = godotenv.Load()

	logMaxSize, _ := strconv.Atoi(getEnv("LOG_MAX_SIZE", "100"))
	logMaxBackups, _ := strconv.Atoi(getEnv("LOG_MAX_BACKUPS", "5"))
	logMaxAge, _ := strconv.Atoi(getEnv("LOG_MAX_AGE", "30"))
	logCompress := getEnv("LOG_COMPRESS", "true") == "true"

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	rateLimitMax, _ := strconv.Atoi(getEnv("RATE_LIMIT_MAX", "120"))
	s3UseSSL := getEnv("S3_USE_SSL", "false") == "true"

	port := getEnv("APP_PORT", "3000")

	config := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "Keygate"),
			Port: port,
			Env:  getEnv("APP_ENV", "development"),
			URL:  strings.TrimSuffix(getEnv("APP_URL", "http://localhost:"+port), "/"),

			CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getDuration("TOKEN_TTL", time.Hour),
			Issuer: getEnv("TOKEN_ISSUER", "keygate"),
		},
		KeyGate: KeyGateConfig{
			DefaultVideoID:  getEnv("DEFAULT_VIDEO_ID", "video1"),
			Provider:        getEnv("PLAYBACK_PROVIDER", "local"),
			KeyPathPrefix:   getEnv("KEY_PATH_PREFIX", "/key/"),
			AllowQueryToken: getEnv("KEYGATE_ALLOW_QUERY_TOKEN", "true") == "true",
		},
		Storage: StorageConfig{
			Type:     getEnv("KEY_STORE", "local"),
			KeyDir:   getEnv("KEY_DIR", "./keys"),
			HLSDir:   getEnv("HLS_DIR", "./protected_hls"),
			CacheTTL: getDuration("KEY_CACHE_TTL", 10*time.Minute),
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("S3_ACCESS_KEY", "minioadmin"),
				SecretKey: getEnv("S3_SECRET_KEY", "minioadmin"),
				Bucket:    getEnv("S3_BUCKET", "videos"),
				UseSSL:    s3UseSSL,
				Region:    getEnv("S3_REGION", "auto"),
				Prefix:    getEnv("S3_KEY_PREFIX", "keys/"),
				HLSPrefix: getEnv("S3_HLS_PREFIX", "protected_hls/"),
			},
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			FilePath:   getEnv("LOG_FILE", "logs/app.log"),
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAge,
			Compress:   logCompress,
		},
		Limit: RateLimitConfig{
			Max:    rateLimitMax,
			Window: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Schedule: ScheduleConfig{
			KeyInventoryCron: getEnv("KEY_INVENTORY_CRON", "*/5 * * * *"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getDuration อ่านค่าแบบ "1h", "90s" และ fallback เป็นวินาทีถ้าเป็นตัวเลขล้วน
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// IsDevelopment ตรวจสอบว่าเป็น development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction ตรวจสอบว่าเป็น production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
