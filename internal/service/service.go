package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"etf-tracker/internal/alert"
	"etf-tracker/internal/alerting"
	"etf-tracker/internal/config"
	"etf-tracker/internal/fetcher"
	"etf-tracker/internal/scheduler"
	"etf-tracker/internal/storage"
)

// Service orchestrates quote fetching, classification, and alert delivery.
type Service struct {
	scheduler *scheduler.Scheduler
	quotes    fetcher.QuoteFetcher
	positions storage.PositionStore
	samples   storage.SampleStore
	engine    *alert.Engine
	notifier  alerting.Notifier
	logger    zerolog.Logger

	alertsOn bool
	locker   storage.AdvisoryLocker
	lockKey  int64
}

// New constructs the tracking service.
func New(cfg *config.Config, sched *scheduler.Scheduler, quotes fetcher.QuoteFetcher, positions storage.PositionStore, samples storage.SampleStore, engine *alert.Engine, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := positions.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		quotes:    quotes,
		positions: positions,
		samples:   samples,
		engine:    engine,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		alertsOn:  cfg.Alerting.Enabled,
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick 执行单个轮询周期：取行情、分类、去重判定、推送提醒。
//
// Positions are checked one at a time, so checks for any single position are
// naturally serialized; the advisory lock extends that guarantee across
// concurrently running daemons.
func (s *Service) ProcessTick(ctx context.Context, tick time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("tick", tick).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeTick(ctx, tick)
}

func (s *Service) executeTick(ctx context.Context, tick time.Time) error {
	positions, err := s.positions.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	if len(positions) == 0 {
		s.logger.Debug().Time("tick", tick).Msg("no positions recorded, nothing to check")
		return nil
	}

	quotes := s.fetchQuotes(ctx, positions)

	checked, fired, failed := 0, 0, 0
	for _, position := range positions {
		quote, ok := quotes[position.Code]
		if !ok {
			// quote unavailable: skip the cycle for this position, write
			// nothing, and let the next tick try again
			continue
		}

		decision, checkErr := s.engine.Check(ctx, position.ID, quote.Price, position.ReferencePrice)
		if checkErr != nil {
			failed++
			switch {
			case errors.Is(checkErr, alert.ErrStateWrite):
				s.logger.Error().Err(checkErr).Str("position_id", position.ID.String()).Msg("alert state not persisted")
			case errors.Is(checkErr, alert.ErrAlertWrite):
				// the alert fired but its history row is lost; the next
				// occupancy change may re-fire
				s.logger.Error().Err(checkErr).Str("position_id", position.ID.String()).Msg("alert history not persisted")
			default:
				s.logger.Error().Err(checkErr).Str("position_id", position.ID.String()).Msg("classification failed")
				continue
			}
		}
		checked++

		if decision.ShouldAlert {
			fired++
			s.deliver(ctx, position, quote, decision)
		}
	}

	s.logger.Info().Time("tick", tick).
		Int("positions", len(positions)).
		Int("checked", checked).
		Int("alerts", fired).
		Int("failed", failed).
		Msg("tick processed")
	return nil
}

// fetchQuotes retrieves each distinct instrument code once and records the
// observed price. A failed fetch is logged and its positions skipped for this
// cycle; the loop itself keeps running.
func (s *Service) fetchQuotes(ctx context.Context, positions []storage.Position) map[string]fetcher.Quote {
	quotes := make(map[string]fetcher.Quote)
	for _, position := range positions {
		if _, seen := quotes[position.Code]; seen {
			continue
		}

		quote, err := s.quotes.FetchQuote(ctx, position.Code)
		if err != nil {
			s.logger.Warn().Err(err).Str("code", position.Code).Msg("quote unavailable, skipping cycle for code")
			continue
		}
		quotes[position.Code] = quote

		if s.samples != nil {
			sample := storage.PriceSample{
				Code:       quote.Code,
				Name:       quote.Name,
				Price:      quote.Price,
				RecordedAt: time.Now().UTC(),
			}
			if _, err := s.samples.InsertSample(ctx, sample); err != nil {
				s.logger.Error().Err(err).Str("code", position.Code).Msg("failed to record price sample")
			}
		}
	}
	return quotes
}

func (s *Service) deliver(ctx context.Context, position storage.Position, quote fetcher.Quote, decision alert.Decision) {
	if !s.alertsOn || s.notifier == nil {
		return
	}

	note := alerting.Notification{
		Code:           position.Code,
		Name:           quote.Name,
		PositionID:     position.ID.String(),
		Reason:         decision.Reason,
		RangeType:      decision.Result.MatchedRange,
		CurrentPrice:   quote.Price,
		ReferencePrice: position.ReferencePrice,
		ChangePct:      decision.Result.ChangePct,
		Levels:         decision.Result.Levels,
		TriggeredAt:    time.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("position_id", position.ID.String()).Msg("failed to dispatch alert")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
