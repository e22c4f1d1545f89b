package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"idauth/internal/authmethod"
	"idauth/internal/authmethod/providers/bankid"
	"idauth/internal/authmethod/providers/emailotp"
	"idauth/internal/authmethod/providers/eresidentqr"
	"idauth/internal/authmethod/providers/mrz"
	"idauth/internal/authmethod/providers/nfc"
	"idauth/internal/authmethod/providers/photoid"
	"idauth/internal/authmethod/providers/qes"
	"idauth/internal/authschema"
	"idauth/internal/authsteps"
	stepsmetrics "idauth/internal/authsteps/metrics"
	"idauth/internal/authsteps/strategy"
	"idauth/internal/challenge"
	"idauth/internal/challenge/integrity"
	challengemetrics "idauth/internal/challenge/metrics"
	"idauth/internal/eresident"
	"idauth/internal/identity"
	jwttoken "idauth/internal/jwt_token"
	"idauth/internal/platform/config"
	"idauth/internal/platform/httpclient"
	"idauth/internal/platform/kafka"
	"idauth/internal/platform/kvcache"
	"idauth/internal/platform/lock"
	"idauth/internal/platform/metrics"
	"idauth/internal/platform/postgres"
	redisclient "idauth/internal/platform/redis"
	"idauth/internal/ratelimit"
	ratelimitmetrics "idauth/internal/ratelimit/metrics"
	"idauth/internal/token"
	tokenmetrics "idauth/internal/token/metrics"
	httptransport "idauth/internal/transport/http"
	"idauth/pkg/domain"
	audit "idauth/pkg/platform/audit"
	"idauth/pkg/platform/audit/publisher"
	"idauth/pkg/platform/audit/publishers/ops"
	"idauth/pkg/platform/audit/publishers/security"
	"idauth/pkg/platform/audit/store/bus"
	"idauth/pkg/platform/audit/store/memory"
	"idauth/pkg/platform/audit/worker"
	"idauth/pkg/platform/circuit"
	"idauth/pkg/platform/middleware/version"
)

// infra holds the external connections. Each one is optional: without a DSN,
// redis URL or brokers the process runs on in-memory replacements.
type infra struct {
	db        *sql.DB
	redis     *redisclient.Client
	producer  *kafka.Producer
	bus       *kafka.MemoryBus
	publisher kafka.Publisher
	router    *kafka.Router
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{router: kafka.NewRouter(log, nil)}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		in.db = db
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if rdb == nil {
		log.Warn("REDIS_URL not set, using in-memory caches and locks")
	}
	in.redis = rdb

	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, using the in-process bus")
		in.bus = kafka.NewMemoryBus(in.router, log, 0)
		in.publisher = in.bus
		return in, nil
	}
	if cfg.Kafka.CreateTopics {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka, allTopics(cfg.Kafka.Topics)...); err != nil {
			in.Close()
			return nil, err
		}
	}
	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.producer = producer
	in.publisher = producer
	return in, nil
}

func (in *infra) Close() {
	if in.producer != nil {
		in.producer.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

func (in *infra) cache(prefix string) kvcache.Cache {
	if in.redis == nil {
		return kvcache.NewMemory()
	}
	return kvcache.NewRedis(in.redis.Client, prefix)
}

func (in *infra) limiter(cfg config.RateLimitConfig, log *slog.Logger) *ratelimit.Limiter {
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if in.redis != nil {
		store = ratelimit.NewRedisStore(in.redis.Client, "idauth:")
	}
	return ratelimit.New(store, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassVerify:  {Requests: cfg.VerifyPerWin, Window: cfg.Window},
		ratelimit.ClassAuthURL: {Requests: cfg.URLPerWin, Window: cfg.Window},
		ratelimit.ClassRefresh: {Requests: cfg.RefreshPerWin, Window: cfg.Window},
	},
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
		ratelimit.WithDisabled(cfg.Disabled),
	)
}

func allTopics(t config.Topics) []string {
	return []string{
		t.Audit, t.EmailOtp, t.NfcResults,
		t.EResidentQrRequests, t.EResidentQrResults,
		t.AttestationRequests, t.AttestationResults,
		t.AndroidIntegrityCheck, t.AndroidIntegrityDone,
		t.IOSAppAttestCheck, t.IOSAppAttestDone,
	}
}

// application is the wired service graph.
type application struct {
	handler     *httptransport.Handler
	tokens      *token.Service
	sweeper     *challenge.Sweeper
	audit       *publisher.Publisher
	auditWorker *worker.Worker
	consumer    *kafka.Consumer
	bus         *kafka.MemoryBus
}

func build(ctx context.Context, cfg config.Config, in *infra, log *slog.Logger) (*application, error) {
	topics := cfg.Kafka.Topics
	cache := in.cache("idauth:")

	var locker lock.Locker = lock.NewKeyed(cfg.AuthSteps.LockWait)
	if in.redis != nil {
		locker = lock.NewRedis(in.redis.Client, "idauth:lock:", cfg.AuthSteps.LockTTL, cfg.AuthSteps.LockWait)
	}

	var auditStore audit.Store = memory.NewInMemoryStore()
	if in.producer != nil {
		auditStore = bus.New(in.publisher, topics.Audit)
	}
	events := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithCircuitBreaker(circuit.New("audit-sink",
			circuit.WithFailureThreshold(cfg.Audit.FailureThreshold),
			circuit.WithCooldown(cfg.Audit.Cooldown),
		)),
		publisher.WithRetryBuffer(security.NewRingBuffer(cfg.Audit.RetryBuffer)),
		publisher.WithSampler(ops.NewSampler(cfg.Audit.OpsSampleRate)),
		publisher.WithMetrics(ops.NewMetrics()),
		publisher.WithLogger(log),
	)

	tokens, expirations := buildTokens(cfg, in, cache, events, log)

	challengeStore := challenge.Store(challenge.NewInMemoryStore())
	if in.db != nil {
		challengeStore = challenge.NewPostgresStore(in.db)
	}
	challengeMetrics := challengemetrics.New()
	integrityService, qrCorrelator := buildChallenges(cfg, in, challengeStore, challengeMetrics, events, tokens, log)
	if err := integrityService.Register(in.router); err != nil {
		return nil, err
	}
	in.router.Register(topics.EResidentQrResults, qrCorrelator.Handler())
	confirmations := eresident.NewConfirmations(qrCorrelator, cfg.Challenge.QrTTL, log)

	nfcResults := cache
	in.router.Register(topics.NfcResults, nfc.NewResultHandler(nfcResults, cfg.Providers.RequestTTL))
	providers := buildProviders(cfg, in, cache, nfcResults, confirmations, log)

	var schemaStore authschema.Store = authschema.NewInMemoryStore()
	var stepsStore authsteps.Store = authsteps.NewInMemoryStore()
	if in.db != nil {
		schemaStore = authschema.NewPostgresStore(in.db)
		stepsStore = authsteps.NewPostgresStore(in.db)
	}
	seed, err := authschema.Definitions(cfg.AuthSteps.CatalogFile)
	if err != nil {
		return nil, err
	}
	catalog, err := authschema.Bootstrap(ctx, schemaStore, seed, log)
	if err != nil {
		return nil, err
	}

	params := strategy.NewParamsCache(cache, cfg.AuthSteps.CacheDataTTL)
	steps := authsteps.New(catalog, stepsStore, providers,
		strategy.NewTable(identity.NewHasher(cfg.Identity.Pepper), params), params, locker,
		authsteps.Config{
			ReplayPolicy:    authsteps.ReplayPolicy(cfg.AuthSteps.CompleteReplayPolicy),
			ProviderTimeout: cfg.AuthSteps.ProviderTimeout,
			StrategyTimeout: cfg.AuthSteps.StrategyTimeout,
		},
		authsteps.WithLogger(log),
		authsteps.WithMetrics(stepsmetrics.New()),
		authsteps.WithAuditEmitter(events),
	)

	minimums, err := parseMinimums(cfg.Server.MinAppVersions)
	if err != nil {
		return nil, err
	}
	jwtService := jwttoken.NewJWTService(cfg.Token.JWTSigningKey, cfg.Token.JWTIssuer, cfg.Token.JWTAudience)
	handler := httptransport.New(steps, tokens, integrityService, expirations, jwttoken.NewUserValidator(jwtService),
		httptransport.WithLogger(log),
		httptransport.WithMetrics(metrics.New()),
		httptransport.WithMinimums(minimums),
		httptransport.WithAdminToken(cfg.Server.AdminToken),
		httptransport.WithTimeout(cfg.Server.RequestTimeout),
		httptransport.WithRateLimiter(in.limiter(cfg.RateLimit, log)),
	)

	app := &application{
		handler:     handler,
		tokens:      tokens,
		sweeper:     challenge.NewSweeper(challengeStore, cfg.Challenge.LaunchTimeout, challengeMetrics, log),
		audit:       events,
		auditWorker: worker.NewWorker(events, cfg.Audit.FlushInterval, log),
		bus:         in.bus,
	}
	if in.producer != nil {
		consumer, err := kafka.NewConsumer(cfg.Kafka, in.router.Topics(), in.router, log)
		if err != nil {
			return nil, err
		}
		app.consumer = consumer
	}
	return app, nil
}

func buildTokens(cfg config.Config, in *infra, cache kvcache.Cache, events audit.Emitter, log *slog.Logger) (*token.Service, *token.ExpirationResolver) {
	var (
		store     token.Store          = token.NewInMemoryStore()
		overrides token.OverrideStore  = token.NewInMemoryOverrides()
		revoked   token.RevocationList = token.NewInMemoryRevocationList()
	)
	if in.db != nil {
		store = token.NewPostgresStore(in.db)
		overrides = token.NewPostgresOverrides(in.db)
	}
	if in.redis != nil {
		revoked = token.NewRedisRevocationList(in.redis.Client)
	}

	tc := cfg.Token
	resolver := token.NewExpirationResolver(overrides, map[domain.SessionType]time.Duration{
		domain.SessionTypeUser:               tc.UserLifetime,
		domain.SessionTypeCabinetUser:        tc.UserLifetime,
		domain.SessionTypeEResident:          tc.EResidentLifetime,
		domain.SessionTypeEResidentApplicant: tc.EResidentLifetime,
		domain.SessionTypeTemporary:          tc.TemporaryLifetime,
	}, tc.ExpirationCacheSize, tc.ExpirationCacheTTL,
		token.WithResolverLogger(log),
		token.WithResolverBreaker(circuit.New("token-expiration-overrides")),
	)

	tokens := token.New(store, revoked, resolver, token.Config{
		RotationRevocationTTL:  tc.RotationRevocationTTL,
		EntryPointHistoryLimit: tc.EntryPointHistoryLimit,
		AccessTokenTTL:         tc.AccessTokenTTL,
		NotificationTimeout:    tc.NotificationUnassignTimeout,
	},
		token.WithLogger(log),
		token.WithMetrics(tokenmetrics.New()),
		token.WithAuditEmitter(events),
		token.WithNotifier(token.NewBusNotifier(in.publisher, tc.NotificationUnassignTopic)),
		token.WithTemporaryCache(cache),
		token.WithAccessTokenMinter(jwttoken.NewJWTService(tc.JWTSigningKey, tc.JWTIssuer, tc.JWTAudience)),
	)
	return tokens, resolver
}

func buildChallenges(
	cfg config.Config,
	in *infra,
	store challenge.Store,
	m *challengemetrics.Metrics,
	events audit.Emitter,
	tokens *token.Service,
	log *slog.Logger,
) (*integrity.Service, *challenge.Correlator[eresident.QrResult]) {
	topics := cfg.Kafka.Topics
	reducer := challenge.NewOutcomeReducer(events, tokens, log)

	generic := challenge.New[integrity.AttestationResult](
		integrity.Attestation{Topic: topics.AttestationRequests}, store, in.publisher,
		challenge.WithReducer[integrity.AttestationResult](reducer),
		challenge.WithMetrics[integrity.AttestationResult](m),
		challenge.WithLogger[integrity.AttestationResult](log),
	)
	android := challenge.New[integrity.AndroidVerdict](
		integrity.AndroidIntegrity{Topic: topics.AndroidIntegrityCheck, PackageName: cfg.Challenge.AndroidPackage}, store, in.publisher,
		challenge.WithReducer[integrity.AndroidVerdict](reducer),
		challenge.WithMetrics[integrity.AndroidVerdict](m),
		challenge.WithLogger[integrity.AndroidVerdict](log),
	)
	ios := challenge.New[integrity.AppAttestResult](
		integrity.IOSAppAttest{Topic: topics.IOSAppAttestCheck, AppID: cfg.Challenge.IOSAppID}, store, in.publisher,
		challenge.WithReducer[integrity.AppAttestResult](reducer),
		challenge.WithMetrics[integrity.AppAttestResult](m),
		challenge.WithLogger[integrity.AppAttestResult](log),
	)
	service := integrity.NewService(
		integrity.Binding{Check: generic, ResultTopic: topics.AttestationResults},
		integrity.Binding{Check: android, Platforms: []domain.PlatformType{domain.PlatformAndroid, domain.PlatformHuawei}, ResultTopic: topics.AndroidIntegrityDone},
		integrity.Binding{Check: ios, Platforms: []domain.PlatformType{domain.PlatformIOS}, ResultTopic: topics.IOSAppAttestDone},
	)

	qr := challenge.New[eresident.QrResult](
		eresident.QrCapability{Topic: topics.EResidentQrRequests}, store, in.publisher,
		challenge.WithMetrics[eresident.QrResult](m),
		challenge.WithLogger[eresident.QrResult](log),
	)
	return service, qr
}

func buildProviders(
	cfg config.Config,
	in *infra,
	cache kvcache.Cache,
	nfcResults kvcache.Cache,
	confirmations *eresident.Confirmations,
	log *slog.Logger,
) *authmethod.Registry {
	pc := cfg.Providers
	requests := func(m domain.Method) *authmethod.RequestCache {
		return authmethod.NewRequestCache(cache, m, pc.RequestTTL)
	}
	client := func(baseURL string, opts ...httpclient.Option) *httpclient.Client {
		return httpclient.New(baseURL, append([]httpclient.Option{httpclient.WithTimeout(pc.CallTimeout)}, opts...)...)
	}
	countries := authmethod.NewCountryAllowList(pc.AllowedCountries)

	gateway := bankid.NewHTTPClient(client(pc.BankGatewayURL))
	bank := func(m domain.Method, id string) authmethod.Provider {
		return bankid.New(bankid.Bank{
			Method:       m,
			ID:           id,
			AuthorizeURL: pc.BankBaseURL,
			ClientID:     pc.BankClientID,
		}, pc.BankCallbackURL, gateway, requests(m), bankid.WithLogger(log))
	}
	registry := mrz.NewHTTPRegistry(client(pc.RegistryURL))

	return authmethod.NewRegistry(
		bank(domain.MethodBankID, "bankid"),
		bank(domain.MethodMonobank, "monobank"),
		bank(domain.MethodPrivatBank, "privatbank"),
		nfc.New(domain.MethodNfc, requests(domain.MethodNfc), nfcResults, nfc.WithLogger(log)),
		nfc.New(domain.MethodEResidentNfc, requests(domain.MethodEResidentNfc), nfcResults,
			nfc.WithAllowedCountries(countries), nfc.WithLogger(log)),
		photoid.New(photoid.NewHTTPVerifier(client(pc.PhotoServiceURL)), requests(domain.MethodPhotoID),
			photoid.WithMinScore(pc.PhotoMinScore), photoid.WithLogger(log)),
		mrz.New(registry, requests(domain.MethodEResidentMrz), countries, mrz.WithLogger(log)),
		eresidentqr.New(confirmations, countries),
		qes.New(qes.NewHTTPVerifier(client(pc.SignatureServiceURL,
			httpclient.WithRateLimit(pc.SignatureRPS, pc.SignatureBurst))),
			requests(domain.MethodQes), qes.WithLogger(log)),
		emailotp.New(emailotp.NewBusMailer(in.publisher, cfg.Kafka.Topics.EmailOtp),
			authmethod.NewRequestCache(cache, domain.MethodEmailOtp, pc.OtpTTL),
			emailotp.WithMaxAttempts(pc.OtpMaxAttempts), emailotp.WithLogger(log)),
	)
}

func parseMinimums(raw map[string]string) (version.Minimums, error) {
	out := make(version.Minimums, len(raw))
	for platform, v := range raw {
		p := domain.ParsePlatformType(platform)
		if p == domain.PlatformUnknown {
			return nil, fmt.Errorf("minimum app version: unknown platform %q", platform)
		}
		av, err := domain.ParseAppVersion(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("minimum app version for %s: %w", platform, err)
		}
		out[p] = av
	}
	return out, nil
}

// workers lists the background loops the process runs until shutdown.
func (a *application) workers(cfg config.Config) []func(context.Context) error {
	ws := []func(context.Context) error{
		func(ctx context.Context) error { return a.tokens.RunSweep(ctx, cfg.Token.SweepInterval) },
		func(ctx context.Context) error { return a.sweeper.Run(ctx, cfg.Challenge.SweepInterval) },
		a.auditWorker.Run,
	}
	if a.consumer != nil {
		ws = append(ws, a.consumer.Run)
	}
	if a.bus != nil {
		ws = append(ws, a.bus.Run)
	}
	return ws
}

func (a *application) Close() {
	a.tokens.Close()
	a.audit.Close()
}
