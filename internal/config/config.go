package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	// Evaluator service endpoints, one per pipeline.
	AIServiceURL         string
	SpeakingAIServiceURL string

	// WorkerID identifies this process in worker_instances.
	WorkerID string

	// UploadDir is the root for submission blobs (chart images, audio).
	UploadDir string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",

		AIServiceURL:         getenv("AI_SERVICE_URL", "http://localhost:8000"),
		SpeakingAIServiceURL: getenv("SPEAKING_AI_SERVICE_URL", "http://localhost:8001"),

		WorkerID:  getenv("WORKER_ID", defaultWorkerID()),
		UploadDir: getenv("UPLOAD_DIR", "uploads"),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	return cfg, nil
}

// defaultWorkerID is stable per process: host plus pid.
func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
