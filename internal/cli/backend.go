package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/config"
	"quiz-gauntlet/internal/infra/api"
	"quiz-gauntlet/internal/infra/certificate"
	"quiz-gauntlet/internal/infra/memory"
	"quiz-gauntlet/internal/infra/postgres"
	redisinfra "quiz-gauntlet/internal/infra/redis"
	"quiz-gauntlet/internal/infra/sqlite"
	"quiz-gauntlet/internal/logger"
)

var errNoQuestionSource = errors.New("no question source configured: set api.url, postgres.url or quiz.file")

// backend holds the connections every command builds from config.
type backend struct {
	cfg     config.Config
	log     *logger.Logger
	catalog app.Catalog
	redis   *redis.Client
	pool    *pgxpool.Pool
	api     *api.Client
	closers []func()
}

// questionBank serves both play modes.
type questionBank interface {
	app.QuestionSource
	app.LevelQuestionSource
}

// player is one player's device-scoped state.
type player struct {
	kv          app.KeyValueStore
	profile     *app.Profile
	progression *app.Progression
	presenter   *app.ResultPresenter
}

// openBackend loads config and connects to whatever it names. Interactive
// commands log to cfg.Log.File so the terminal UI keeps the screen.
func openBackend(ctx context.Context, configPath string, interactive bool) (*backend, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	var outputs []string
	if interactive {
		outputs = []string{cfg.Log.File}
	}
	log, err := logger.New(cfg.Log.Mode, outputs...)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	b := &backend{cfg: cfg, log: log, catalog: catalogFrom(cfg.Quiz)}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = b.redis.Close() })
	}
	if cfg.Postgres.URL != "" {
		b.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, b.pool.Close)
	}
	if cfg.API.URL != "" {
		b.api = api.New(cfg.API.URL,
			api.WithTimeout(config.TTLDuration(cfg.API.Timeout, 10*time.Second)),
			api.WithLeaderboardGenre(cfg.Quiz.ExtraGenre),
			api.WithLogger(log),
		)
	}
	return b, nil
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
	b.log.Sync()
}

func catalogFrom(q config.QuizConfig) app.Catalog {
	c := app.DefaultCatalog()
	if len(q.Genres) > 0 {
		c.Genres = q.Genres
	}
	if len(q.Levels) > 0 {
		c.Levels = q.Levels
	}
	if q.Ultra != "" {
		c.Ultra = q.Ultra
	}
	return c
}

// keyValueStore opens the device store selected by storage.driver. namespace
// scopes the redis hash so several players can share one server.
func (b *backend) keyValueStore(ctx context.Context, namespace string) (app.KeyValueStore, error) {
	switch b.cfg.Storage.Driver {
	case "memory":
		return memory.NewKVStore(), nil
	case "redis":
		if b.redis == nil {
			return nil, errors.New("storage driver redis needs redis.addr")
		}
		return redisinfra.NewKVStore(b.redis, namespace), nil
	case "sqlite":
		kv, err := sqlite.Open(ctx, b.cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = kv.Close() })
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", b.cfg.Storage.Driver)
	}
}

// questions picks the question bank and the judge. The remote API wins;
// otherwise a local bank from postgres or a YAML file is cached in redis or
// memory and judged against its digests.
func (b *backend) questions() (questionBank, app.Judge, error) {
	if b.api != nil {
		return b.api, b.api, nil
	}

	var loader memory.QuestionLoader
	switch {
	case b.pool != nil:
		loader = postgres.NewQuestionLoader(b.pool)
	case b.cfg.Quiz.File != "":
		l, err := memory.LoadQuestionFile(b.cfg.Quiz.File)
		if err != nil {
			return nil, nil, err
		}
		loader = l
	default:
		return nil, nil, errNoQuestionSource
	}

	ttl := config.TTLDuration(b.cfg.Quiz.TTL, 10*time.Minute)
	var bank questionBank
	if b.redis != nil {
		bank = redisinfra.NewQuestionRepository(b.redis, loader, ttl, b.catalog.Ultra)
	} else {
		bank = memory.NewQuestionRepository(loader, ttl, b.catalog.Ultra)
	}
	return bank, app.NewDigestJudge(bank, b.catalog), nil
}

func (b *backend) rasterizer() (*certificate.Rasterizer, error) {
	return certificate.New(b.cfg.Certificate.OutDir, b.cfg.Certificate.FontPath, b.log)
}

func (b *backend) extraService(questions app.QuestionSource, runs app.RunRepository) *app.ExtraStageService {
	return app.NewExtraStageService(questions, runs,
		app.WithQuestionTime(config.TTLDuration(b.cfg.Extra.QuestionTime, app.DefaultQuestionTime)),
		app.WithWarningTime(config.TTLDuration(b.cfg.Extra.WarningTime, 0)),
		app.WithLogger(b.log),
	)
}

// newPlayer wires the per-player collaborators over kv.
func (b *backend) newPlayer(kv app.KeyValueStore, raster app.Rasterizer) player {
	p := player{
		kv:          kv,
		profile:     app.NewProfile(kv, b.log),
		progression: app.NewProgression(kv, b.catalog),
	}
	opts := []app.PresenterOption{
		app.WithAppURL(b.cfg.Extra.ShareURL),
		app.WithPresenterLogger(b.log),
	}
	if raster != nil {
		opts = append(opts, app.WithRasterizer(raster))
	}
	if b.api != nil {
		opts = append(opts, app.WithScoreRegistrar(b.api))
	}
	p.presenter = app.NewResultPresenter(app.NewBestScoreStore(kv), p.profile, p.progression, opts...)
	return p
}

// localPlayer is the player of this terminal.
func (b *backend) localPlayer(ctx context.Context) (player, error) {
	kv, err := b.keyValueStore(ctx, "local")
	if err != nil {
		return player{}, err
	}
	raster, err := b.rasterizer()
	if err != nil {
		return player{}, err
	}
	return b.newPlayer(kv, raster), nil
}
