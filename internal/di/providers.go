package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"BreakScan/internal/domain/models"
	"BreakScan/internal/domain/repository"
	"BreakScan/internal/handler/api"
	internalrepo "BreakScan/internal/repository"
	"BreakScan/internal/service/batch"
	"BreakScan/internal/service/market"
	"BreakScan/internal/service/quote"
	"BreakScan/internal/service/ratelimit"
	"BreakScan/internal/universe"
	"BreakScan/internal/usecase"
	"BreakScan/pkg/cache"
	pkgch "BreakScan/pkg/clickhouse"
	"BreakScan/pkg/config"
	xhttp "BreakScan/pkg/http"
	pkgkafka "BreakScan/pkg/kafka"
	applogger "BreakScan/pkg/logger"
	"BreakScan/pkg/metrics"
	"BreakScan/pkg/objectstore"
	"BreakScan/pkg/server"
	pkgsqlite "BreakScan/pkg/sqlite"
)

const initTimeout = 15 * time.Second

// Stores groups the persistence backends selected by storage.snapshots.
type Stores struct {
	Snapshots repository.SnapshotStore
	Baselines repository.BaselineStore
	Signals   repository.SignalStore
	Health    api.HealthChecker
}

// ProvideLogger builds the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
}

// ProvideCalendar builds the exchange calendar.
func ProvideCalendar(cfg *config.Config) (*market.Calendar, error) {
	return market.NewCalendar(cfg.Market.Timezone, cfg.Market.Open, cfg.Market.Close, cfg.Market.RolloverGrace, cfg.Market.Holidays)
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry served at /metrics.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NoopMetrics{}
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache returns Redis when enabled, otherwise an in-process cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), func() {}, nil
	}
	opts := []cache.RedisOption{
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	}
	if cfg.Redis.PoolSize > 0 {
		opts = append(opts, cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/4, 4*time.Second))
	}
	rc, err := cache.NewRedisCache(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideStores opens the configured backends. Baselines and signals always live in
// SQLite unless the whole pipeline runs in memory.
func ProvideStores(cfg *config.Config, cal *market.Calendar, l *applogger.Logger) (*Stores, func(), error) {
	if cfg.Storage.Snapshots == "memory" {
		m := internalrepo.NewMemoryStore()
		return &Stores{Snapshots: m, Baselines: m, Signals: m, Health: m}, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	sc, err := pkgsqlite.NewClient(
		pkgsqlite.WithPath(cfg.Storage.SQLite.Path),
		pkgsqlite.WithMaxOpenConns(cfg.Storage.SQLite.MaxOpenConns),
		pkgsqlite.WithBusyTimeout(cfg.Storage.SQLite.BusyTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite client: %w", err)
	}
	sq, err := internalrepo.NewSQLiteStore(ctx, sc, cal.Location())
	if err != nil {
		_ = sc.Close()
		return nil, nil, fmt.Errorf("sqlite schema: %w", err)
	}
	sq.SetLogger(l)
	stores := &Stores{Snapshots: sq, Baselines: sq, Signals: sq, Health: sq}
	closers := []func() error{sc.Close}

	if cfg.Storage.Snapshots == "clickhouse" {
		ch, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			_ = sc.Close()
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		chs, err := internalrepo.NewCHSnapshotStore(ctx, ch, cal.Location())
		if err != nil {
			_ = ch.Close()
			_ = sc.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		chs.SetLogger(l)
		stores.Snapshots = chs
		closers = append(closers, ch.Close)
	}

	return stores, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				l.Warn("store close error", applogger.Error(err))
			}
		}
	}, nil
}

// ProvideSignalPublisher returns a Kafka publisher when enabled.
func ProvideSignalPublisher(cfg *config.Config, l *applogger.Logger) (repository.SignalPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopSignalPublisher{}, func() {}, nil
	}
	opts := []pkgkafka.ProducerOption{
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID(cfg.Kafka.ClientID),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	}
	if cfg.Kafka.BatchSize > 0 {
		opts = append(opts, pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout))
	}
	producer, err := pkgkafka.NewProducer(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka close error", applogger.Error(err))
		}
	}, nil
}

// ProvideArchiver returns nil when archiving is disabled.
func ProvideArchiver(cfg *config.Config, l *applogger.Logger) (repository.Archiver, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	s3cfg := cfg.Archive.S3
	if !s3cfg.Enabled {
		return internalrepo.NewParquetArchiver(cfg.Archive.Dir, nil, l), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	up, err := objectstore.NewS3Uploader(ctx,
		objectstore.WithBucket(s3cfg.Bucket, s3cfg.Prefix),
		objectstore.WithRegion(s3cfg.Region),
		objectstore.WithEndpoint(s3cfg.Endpoint, s3cfg.PathStyle),
		objectstore.WithStaticCredentials(s3cfg.AccessKeyID, s3cfg.SecretAccessKey),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 uploader: %w", err)
	}
	return internalrepo.NewParquetArchiver(cfg.Archive.Dir, up, l), nil
}

// ProvideHTTPClient is the shared outbound client for every provider.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
}

func toProvider(pc config.ProviderConfig, cfg *config.Config, session quote.SessionSource) quote.Provider {
	headers := make(map[string]string, len(pc.Headers)+1)
	for k, v := range pc.Headers {
		headers[k] = v
	}
	if pc.Auth {
		headers["Authorization"] = fmt.Sprintf("token %s:%s", cfg.Kite.APIKey, cfg.Kite.AccessToken)
	}
	p := quote.Provider{
		Name:        pc.Name,
		Tag:         models.ProviderTag(pc.Tag),
		URLTemplate: pc.URL,
		Headers:     headers,
		Timeout:     pc.Timeout,
		RPS:         pc.RPS,
		RetryOn429:  pc.RetryOn429,
	}
	if pc.Session {
		p.Session = session
	}
	return p
}

// ProvideSources assembles the ranked live chain, the index source and the historical fallbacks.
func ProvideSources(cfg *config.Config, client *xhttp.Client, c cache.Service, cal *market.Calendar, m repository.Metrics) usecase.Sources {
	fetcher := quote.NewFetcher(client)
	session := quote.NewCookieSession(client, c, cfg.Providers.Session.HomeURL, cfg.Providers.Session.Headers, cfg.Providers.Session.TTL)

	src := usecase.Sources{
		Orchestrator: batch.New(),
		Resolver:     quote.NewResolver(fetcher, quote.WithRetryBackoff(cfg.Providers.RetryBackoff), quote.WithMetrics(m)),
		Indices:      fetcher,
		Batch: batch.Params{
			BatchSize:       cfg.Batch.Size,
			InterBatchDelay: cfg.Batch.InterBatchDelay,
			MaxParallelism:  cfg.Batch.MaxParallelism,
		},
	}
	for _, pc := range cfg.Providers.Live {
		src.Live = append(src.Live, toProvider(pc, cfg, session))
	}
	if cfg.Capture.Indices {
		p := toProvider(cfg.Providers.Indices, cfg, session)
		src.IndexSource = &p
	}
	for _, name := range cfg.Providers.Historical.Order {
		switch name {
		case "kite":
			if cfg.Kite.APIKey != "" && cfg.Kite.AccessToken != "" {
				src.Historical = append(src.Historical, quote.NewKiteHistorical(cfg.Kite.APIKey, cfg.Kite.AccessToken, cfg.Kite.BaseURI, cfg.Kite.Timeout, cal.Location()))
			}
		case "chart":
			ch := cfg.Providers.Historical.Chart
			if ch.BaseURL != "" {
				src.Historical = append(src.Historical, quote.NewChartHistorical(client, ch.BaseURL, ch.Suffix, ch.Timeout, cal.Location()))
			}
		}
	}
	return src
}

// ProvideInvocationFactory reads the universe file afresh for every allowed run.
func ProvideInvocationFactory(cfg *config.Config, cal *market.Calendar, l *applogger.Logger) *usecase.InvocationFactory {
	path := cfg.Universe.Path
	return usecase.NewInvocationFactory(cal, func() (*universe.Universe, error) {
		return universe.Load(path)
	}, l)
}

func ProvideCaptureUseCase(cfg *config.Config, src usecase.Sources, stores *Stores, m repository.Metrics) *usecase.CaptureUseCase {
	return usecase.NewCaptureUseCase(src, stores.Snapshots, m, cfg.Market.IntervalMinutes, cfg.Capture.IgnoreDuplicates)
}

func ProvideClassifyUseCase(src usecase.Sources, stores *Stores, pub repository.SignalPublisher, m repository.Metrics) *usecase.ClassifyUseCase {
	return usecase.NewClassifyUseCase(src, stores.Baselines, stores.Signals, pub, m)
}

func ProvideRolloverUseCase(cfg *config.Config, src usecase.Sources, cal *market.Calendar, stores *Stores, archiver repository.Archiver, m repository.Metrics) *usecase.RolloverUseCase {
	return usecase.NewRolloverUseCase(src, cal, stores.Baselines, stores.Snapshots, archiver, m, cfg.Market.RetentionDays)
}

func ProvideReplayUseCase(cfg *config.Config, stores *Stores) *usecase.ReplayUseCase {
	return usecase.NewReplayUseCase(stores.Snapshots, cfg.Market.IntervalMinutes, cfg.Replay.Window, cfg.Replay.MaxDrift)
}

func ProvideHistoryUseCase(stores *Stores) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(stores.Snapshots, stores.Signals, 31*24*time.Hour)
}

// ProvideRateLimiter builds the per-client limiter for the read endpoints and sweeps idle clients.
func ProvideRateLimiter(cfg *config.Config) (*ratelimit.Limiter, func()) {
	rl := ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
	ttl := cfg.Server.RateLimit.IdleTTL
	stop := rl.StartSweeper(ttl, ttl)
	return rl, stop
}

// ProvideHandlers builds every HTTP handler the server registers.
func ProvideHandlers(
	cfg *config.Config,
	runner *usecase.Runner,
	replay *usecase.ReplayUseCase,
	history *usecase.HistoryUseCase,
	c cache.Service,
	stores *Stores,
	cal *market.Calendar,
	rl *ratelimit.Limiter,
	l *applogger.Logger,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewHealthHandler(stores.Health),
		api.NewCronHandler(runner, cfg.Auth.CronSecret, l),
		api.NewMarketHandler(replay, history, c, cfg.Replay.CacheTTL, rl, cal.Location(), l),
	}
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(l, handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
	)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, srv *xhttp.Server, l *applogger.Logger) *server.App {
	return server.New(cfg, srv, l)
}
