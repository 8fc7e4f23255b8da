package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/engeseg/sstcontrol/internal/auth"
)

// Backends de registro suportados.
const (
	BackendPostgres = "postgres"
	BackendPlanilha = "planilha"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port          int
	StoreBackend  string
	DBDSN         string
	PlanilhaPath  string
	RedisURL      string
	JWTSecret     string
	JWTSessionTTL time.Duration
	// SenhaHash é o hash Argon2id do segredo compartilhado dos analistas.
	SenhaHash       string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Storage         StorageConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// StorageConfig descreve o armazenamento de documentos anexados.
type StorageConfig struct {
	Provider    string // "s3", "local" ou "noop"
	DocsDir     string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", BackendPlanilha))
	switch cfg.StoreBackend {
	case BackendPostgres:
		cfg.DBDSN = getEnv("DB_DSN", "")
		if cfg.DBDSN == "" {
			return nil, errors.New("DB_DSN obrigatório para STORE_BACKEND=postgres")
		}
	case BackendPlanilha:
		cfg.PlanilhaPath = getEnv("PLANILHA_PATH", "sstcontrol.xlsx")
	default:
		return nil, errors.New("STORE_BACKEND deve ser postgres ou planilha")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	sessionTTL, err := parseDurationEnv("JWT_SESSION_TTL", 8*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTSessionTTL = sessionTTL

	cfg.SenhaHash = strings.TrimSpace(getEnv("ANALISTA_SENHA_HASH", ""))
	if cfg.SenhaHash == "" {
		// Conveniência para ambiente local; em produção use o hash
		// gerado por cmd/hashpass.
		senha := getEnv("ANALISTA_SENHA", "")
		if senha == "" {
			return nil, errors.New("ANALISTA_SENHA_HASH (ou ANALISTA_SENHA) obrigatório")
		}
		hash, err := auth.Hash(senha)
		if err != nil {
			return nil, err
		}
		cfg.SenhaHash = hash
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Storage = StorageConfig{
		Provider:    strings.ToLower(getEnv("STORAGE_PROVIDER", "noop")),
		DocsDir:     getEnv("DOCS_DIR", "documentos"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
