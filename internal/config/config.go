package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Services ServicesConfig
	MinIO    MinIOConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ServicesConfig points at the three remote batch services. Their
// internals are opaque; only the request/response contracts matter.
type ServicesConfig struct {
	UploadURL  string
	AnalyzeURL string
	IngestURL  string
	Timeout    time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECS", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECS", 60)) * time.Second,
		},
		Services: ServicesConfig{
			UploadURL:  getEnv("UPLOAD_SERVICE_URL", "http://localhost:9101/upload"),
			AnalyzeURL: getEnv("ANALYZE_SERVICE_URL", "http://localhost:9102/analyze"),
			IngestURL:  getEnv("INGEST_SERVICE_URL", "http://localhost:9103/ingest"),
			Timeout:    time.Duration(getEnvInt("SERVICE_TIMEOUT_SECS", 300)) * time.Second,
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "stevedore"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "stevedore123"),
			Bucket:    getEnv("MINIO_BUCKET", "stevedore"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
