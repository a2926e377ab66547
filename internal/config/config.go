package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is assembled once at process start and handed by reference into
// every constructor. Nothing in the repo reads the environment after Load
// returns, which keeps alternate configs in tests and secret rotation on
// restart straightforward.
type Config struct {
	Profile string

	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	DatabaseURL string
	RedisAddr   string

	JWTIssuer        string
	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	RefreshTokenPepper string
	BcryptCost         int

	CookieSecure   bool
	CookieSameSite http.SameSite

	AuthRateLimitRPM int
	APIRateLimitRPM  int

	SessionSweepInterval time.Duration

	LogLevelName string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
}

func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Profile: getEnv("APP_PROFILE", "dev"),

		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		ReadHeaderTimeout: 10 * time.Second,

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		JWTIssuer:        getEnv("JWT_ISSUER", "storelane-auth"),
		JWTAccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),

		RefreshTokenPepper: os.Getenv("REFRESH_TOKEN_PEPPER"),

		CookieSecure: true,

		LogLevelName: getEnv("LOG_LEVEL", "info"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "storelane-auth-engine"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.SessionSweepInterval, err = getDuration("SESSION_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.AuthRateLimitRPM, err = getInt("AUTH_RATE_LIMIT_RPM", 30); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.APIRateLimitRPM, err = getInt("API_RATE_LIMIT_RPM", 300); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", true); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.CookieSameSite, err = getSameSite("COOKIE_SAMESITE", http.SameSiteLaxMode); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.OTELMetricsEnabled, err = getBool("OTEL_METRICS_ENABLED", false); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.OTELTracingEnabled, err = getBool("OTEL_TRACING_ENABLED", false); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.OTELLogsEnabled, err = getBool("OTEL_LOGS_ENABLED", false); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}
	if cfg.OTELExporterOTLPInsecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, loadFailed(ctx, cfg.Profile, err)
	}

	if err := cfg.Validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "invalid", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, cfg.Profile, "valid", "none")
	return cfg, nil
}

// Validate enforces the startup contract: both signing secrets must be
// present and distinct, and the cookie posture must be internally
// consistent. A process with a broken config refuses to start.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTAccessSecret == "" {
		missing = append(missing, "JWT_ACCESS_SECRET")
	}
	if c.JWTRefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}
	if c.RefreshTokenPepper == "" {
		missing = append(missing, "REFRESH_TOKEN_PEPPER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("validate config: %s required", strings.Join(missing, ", "))
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return fmt.Errorf("validate config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.CookieSameSite == http.SameSiteNoneMode && !c.CookieSecure {
		return fmt.Errorf("validate config: COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("validate config: token TTLs must be positive")
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("validate config: REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	return nil
}

func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.LogLevelName) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadFailed(ctx context.Context, profile string, err error) error {
	recordConfigValidationEvent(ctx, profile, "invalid", classifyConfigLoadError(err))
	return err
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getSameSite(key string, def http.SameSite) (http.SameSite, error) {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return def, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("parse %s: must be lax, strict or none", key)
	}
}
