package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "idauth/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MetricsAddr     string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	LogLevel        string
	// AdminToken guards operator endpoints; empty disables them.
	AdminToken string
	// MinAppVersions is "platform=version" pairs, e.g. "android=3.4.0,ios=3.4.1".
	MinAppVersions map[string]string
}

// RedisConfig configures the shared redis client. An empty URL disables redis and
// the process falls back to in-memory stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the document store. An empty DSN selects in-memory stores.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig configures the message bus.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string
	CreateTopics  bool
	Topics        Topics
}

// Topics names every topic the service publishes to or consumes.
type Topics struct {
	Audit                 string
	EmailOtp              string
	NfcResults            string
	EResidentQrRequests   string
	EResidentQrResults    string
	AttestationRequests   string
	AttestationResults    string
	AndroidIntegrityCheck string
	AndroidIntegrityDone  string
	IOSAppAttestCheck     string
	IOSAppAttestDone      string
}

// TokenConfig configures refresh token lifetimes and JWT signing.
type TokenConfig struct {
	UserLifetime                time.Duration
	EResidentLifetime           time.Duration
	TemporaryLifetime           time.Duration
	AccessTokenTTL              time.Duration
	RotationRevocationTTL       time.Duration
	ExpirationCacheSize         int
	ExpirationCacheTTL          time.Duration
	EntryPointHistoryLimit      int
	SweepInterval               time.Duration
	JWTSigningKey               string
	JWTIssuer                   string
	JWTAudience                 string
	NotificationUnassignTopic   string
	NotificationUnassignTimeout time.Duration
}

// AuthStepsConfig configures the step orchestrator.
type AuthStepsConfig struct {
	// CompleteReplayPolicy is "idempotent" or "reject".
	CompleteReplayPolicy string
	LockTTL              time.Duration
	LockWait             time.Duration
	ProviderTimeout      time.Duration
	StrategyTimeout      time.Duration
	CacheDataTTL         time.Duration
	CatalogFile          string
}

// ChallengeConfig configures nonce challenges.
type ChallengeConfig struct {
	LaunchTimeout time.Duration
	SweepInterval time.Duration
	// QrTTL bounds how long an e-resident QR confirmation stays usable.
	QrTTL          time.Duration
	AndroidPackage string
	IOSAppID       string
}

// AuditConfig configures audit delivery.
type AuditConfig struct {
	AsyncBuffer      int
	RetryBuffer      int
	FailureThreshold int
	Cooldown         time.Duration
	FlushInterval    time.Duration
	OpsSampleRate    float64
}

// RateLimitConfig bounds how often one device may hit the provider-facing routes.
type RateLimitConfig struct {
	Disabled      bool
	Window        time.Duration
	VerifyPerWin  int
	URLPerWin     int
	RefreshPerWin int
}

// IdentityConfig configures identifier hashing.
type IdentityConfig struct {
	Pepper string
}

// ProvidersConfig configures external identity providers.
type ProvidersConfig struct {
	RequestTTL          time.Duration
	BankBaseURL         string
	BankCallbackURL     string
	BankClientID        string
	BankGatewayURL      string
	PhotoServiceURL     string
	PhotoMinScore       float64
	RegistryURL         string
	CallTimeout         time.Duration
	SignatureServiceURL string
	SignatureRPS        float64
	SignatureBurst      int
	AllowedCountries    []string
	OtpTTL              time.Duration
	OtpMaxAttempts      int
}

// Config is the full process configuration.
type Config struct {
	Server    Server
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Token     TokenConfig
	AuthSteps AuthStepsConfig
	Challenge ChallengeConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Identity  IdentityConfig
	Providers ProvidersConfig
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("IDAUTH_ADDR", ":8080"),
			MetricsAddr:     envString("IDAUTH_METRICS_ADDR", ":9090"),
			ShutdownTimeout: envDuration("IDAUTH_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  envDuration("IDAUTH_REQUEST_TIMEOUT", 30*time.Second),
			LogLevel:        envString("IDAUTH_LOG_LEVEL", "info"),
			AdminToken:      os.Getenv("IDAUTH_ADMIN_TOKEN"),
			MinAppVersions:  envPairs("IDAUTH_MIN_APP_VERSIONS"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 20),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("KAFKA_BROKERS"),
			ConsumerGroup: envString("KAFKA_CONSUMER_GROUP", "idauth"),
			ClientID:      envString("KAFKA_CLIENT_ID", "idauth"),
			CreateTopics:  envBool("KAFKA_CREATE_TOPICS", false),
			Topics: Topics{
				Audit:                 envString("TOPIC_AUDIT", "idauth.audit"),
				EmailOtp:              envString("TOPIC_EMAIL_OTP", "notification.email.send"),
				NfcResults:            envString("TOPIC_NFC_RESULTS", "document.nfc.result"),
				EResidentQrRequests:   envString("TOPIC_ERESIDENT_QR_REQUESTS", "eresident.qr.verify"),
				EResidentQrResults:    envString("TOPIC_ERESIDENT_QR_RESULTS", "eresident.qr.result"),
				AttestationRequests:   envString("TOPIC_ATTESTATION_REQUESTS", "integrity.attestation.verify"),
				AttestationResults:    envString("TOPIC_ATTESTATION_RESULTS", "integrity.attestation.result"),
				AndroidIntegrityCheck: envString("TOPIC_ANDROID_INTEGRITY_REQUESTS", "integrity.android.verify"),
				AndroidIntegrityDone:  envString("TOPIC_ANDROID_INTEGRITY_RESULTS", "integrity.android.result"),
				IOSAppAttestCheck:     envString("TOPIC_IOS_APP_ATTEST_REQUESTS", "integrity.ios.verify"),
				IOSAppAttestDone:      envString("TOPIC_IOS_APP_ATTEST_RESULTS", "integrity.ios.result"),
			},
		},
		Token: TokenConfig{
			UserLifetime:                envDuration("TOKEN_USER_LIFETIME", 30*24*time.Hour),
			EResidentLifetime:           envDuration("TOKEN_ERESIDENT_LIFETIME", 14*24*time.Hour),
			TemporaryLifetime:           envDuration("TOKEN_TEMPORARY_LIFETIME", 15*time.Minute),
			AccessTokenTTL:              envDuration("TOKEN_ACCESS_TTL", 15*time.Minute),
			RotationRevocationTTL:       envDuration("TOKEN_ROTATION_REVOCATION_TTL", 2*time.Minute),
			ExpirationCacheSize:         envInt("TOKEN_EXPIRATION_CACHE_SIZE", 256),
			ExpirationCacheTTL:          envDuration("TOKEN_EXPIRATION_CACHE_TTL", 10*time.Minute),
			EntryPointHistoryLimit:      envInt("TOKEN_ENTRY_POINT_HISTORY_LIMIT", 10),
			SweepInterval:               envDuration("TOKEN_SWEEP_INTERVAL", time.Hour),
			JWTSigningKey:               envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:                   envString("JWT_ISSUER", "idauth"),
			JWTAudience:                 envString("JWT_AUDIENCE", "mobile"),
			NotificationUnassignTopic:   envString("NOTIFICATION_UNASSIGN_TOPIC", "notification.device.unassign"),
			NotificationUnassignTimeout: envDuration("NOTIFICATION_UNASSIGN_TIMEOUT", 5*time.Second),
		},
		AuthSteps: AuthStepsConfig{
			CompleteReplayPolicy: envString("AUTH_STEPS_COMPLETE_REPLAY_POLICY", "reject"),
			LockTTL:              envDuration("AUTH_STEPS_LOCK_TTL", 30*time.Second),
			LockWait:             envDuration("AUTH_STEPS_LOCK_WAIT", 10*time.Second),
			ProviderTimeout:      envDuration("AUTH_STEPS_PROVIDER_TIMEOUT", 15*time.Second),
			StrategyTimeout:      envDuration("AUTH_STEPS_STRATEGY_TIMEOUT", 10*time.Second),
			CacheDataTTL:         envDuration("AUTH_STEPS_CACHE_DATA_TTL", 10*time.Minute),
			CatalogFile:          os.Getenv("AUTH_SCHEMA_CATALOG_FILE"),
		},
		Challenge: ChallengeConfig{
			LaunchTimeout:  envDuration("CHALLENGE_LAUNCH_TIMEOUT", 10*time.Minute),
			SweepInterval:  envDuration("CHALLENGE_SWEEP_INTERVAL", time.Minute),
			QrTTL:          envDuration("ERESIDENT_QR_TTL", 5*time.Minute),
			AndroidPackage: envString("ANDROID_PACKAGE_NAME", "ua.gov.diia.app"),
			IOSAppID:       envString("IOS_APP_ID", "TEAMID.ua.gov.diia.app"),
		},
		Audit: AuditConfig{
			AsyncBuffer:      envInt("AUDIT_ASYNC_BUFFER", 1024),
			RetryBuffer:      envInt("AUDIT_RETRY_BUFFER", 4096),
			FailureThreshold: envInt("AUDIT_FAILURE_THRESHOLD", 5),
			Cooldown:         envDuration("AUDIT_COOLDOWN", 30*time.Second),
			FlushInterval:    envDuration("AUDIT_FLUSH_INTERVAL", 10*time.Second),
			OpsSampleRate:    envFloat("AUDIT_OPS_SAMPLE_RATE", 1),
		},
		RateLimit: RateLimitConfig{
			Disabled:      envBool("RATE_LIMIT_DISABLED", false),
			Window:        envDuration("RATE_LIMIT_WINDOW", time.Minute),
			VerifyPerWin:  envInt("RATE_LIMIT_VERIFY", 10),
			URLPerWin:     envInt("RATE_LIMIT_AUTH_URL", 5),
			RefreshPerWin: envInt("RATE_LIMIT_REFRESH", 30),
		},
		Identity: IdentityConfig{
			Pepper: envString("IDENTITY_PEPPER", "dev-pepper-change-in-production"),
		},
		Providers: ProvidersConfig{
			RequestTTL:          envDuration("PROVIDER_REQUEST_TTL", 5*time.Minute),
			BankBaseURL:         envString("BANK_ID_BASE_URL", "https://id.bank.example/oauth2/authorize"),
			BankCallbackURL:     envString("BANK_ID_CALLBACK_URL", "https://app.example/auth/bank/callback"),
			BankClientID:        envString("BANK_ID_CLIENT_ID", "idauth"),
			BankGatewayURL:      envString("BANK_GATEWAY_URL", "http://localhost:8081"),
			PhotoServiceURL:     envString("PHOTO_SERVICE_URL", "http://localhost:8082"),
			PhotoMinScore:       envFloat("PHOTO_MIN_SCORE", 0.8),
			RegistryURL:         envString("ERESIDENT_REGISTRY_URL", "http://localhost:8083"),
			CallTimeout:         envDuration("PROVIDER_CALL_TIMEOUT", 10*time.Second),
			SignatureServiceURL: envString("SIGNATURE_SERVICE_URL", "http://localhost:8085"),
			SignatureRPS:        envFloat("SIGNATURE_SERVICE_RPS", 20),
			SignatureBurst:      envInt("SIGNATURE_SERVICE_BURST", 5),
			AllowedCountries:    envListDefault("ERESIDENT_ALLOWED_COUNTRIES", []string{"EST", "POL", "LTU", "LVA", "CZE"}),
			OtpTTL:              envDuration("EMAIL_OTP_TTL", 5*time.Minute),
			OtpMaxAttempts:      envInt("EMAIL_OTP_MAX_ATTEMPTS", 3),
		},
	}
}

// Validate rejects settings that cannot work together.
func (c Config) Validate() error {
	return c.AuthSteps.Validate()
}

// Validate requires the device lock to outlive one verify: a provider call
// followed by the strategy. A lock that expires first lets a second verify
// on the same device run concurrently.
func (c AuthStepsConfig) Validate() error {
	if c.LockTTL <= c.ProviderTimeout+c.StrategyTimeout {
		return fmt.Errorf("AUTH_STEPS_LOCK_TTL (%s) must exceed AUTH_STEPS_PROVIDER_TIMEOUT + AUTH_STEPS_STRATEGY_TIMEOUT (%s)",
			c.LockTTL, c.ProviderTimeout+c.StrategyTimeout)
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envPairs parses "k=v,k2=v2". Malformed items are skipped.
func envPairs(key string) map[string]string {
	out := make(map[string]string)
	for _, item := range envList(key) {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func envList(key string) []string {
	return envListDefault(key, nil)
}

func envListDefault(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return pkgstrings.DedupeAndTrim(strings.Split(v, ","))
}
