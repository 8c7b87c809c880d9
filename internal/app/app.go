package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"etf-tracker/internal/alert"
	"etf-tracker/internal/alerting"
	"etf-tracker/internal/config"
	"etf-tracker/internal/fetcher"
	"etf-tracker/internal/scheduler"
	"etf-tracker/internal/service"
	"etf-tracker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.QuoteFetcher {
	return fetcher.NewEastMoney(fetcher.EastMoneyOptions{
		BaseURL:   a.Config.Quote.BaseURL,
		Timeout:   a.Config.Quote.RequestTimeout,
		UserAgent: a.Config.Quote.UserAgent,
		Delay:     a.Config.Quote.RequestDelay,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newEngine(store *storage.Store) *alert.Engine {
	return alert.NewEngine(store, store, a.Config.Pricing, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn is required; positions and alert state live in PostgreSQL")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running tracking service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		SkipWeekends: a.Config.Scheduler.SkipWeekends,
	}, a.Logger)

	svc := service.New(a.Config, sched, a.newFetcher(), store, store, a.newEngine(store), a.newNotifier(), a.Logger)

	a.Logger.Info().Msg("starting tracking service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("tracking service stopped")
	return nil
}

// AnalyzeOptions select the position to analyze.
type AnalyzeOptions struct {
	Code       string
	PositionID string
}

// RecordOptions hold the fields of a new transaction.
type RecordOptions struct {
	Code     string
	Price    decimal.Decimal
	Quantity int64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting the price history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions feed a synthetic classification through the alert path.
type SimulateOptions struct {
	Code      string
	Current   decimal.Decimal
	Reference decimal.Decimal
}
