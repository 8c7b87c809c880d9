package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"etf-tracker/internal/pricing"
)

var (
	// ErrStateWrite indicates the alert state row could not be appended.
	ErrStateWrite = errors.New("alert: state write failed")
	// ErrAlertWrite indicates a fired alert could not be recorded. A lost
	// alert row means future checks may re-fire for the same occupancy.
	ErrAlertWrite = errors.New("alert: history write failed")
)

// Alert reasons, one per firing transition.
const (
	ReasonFirstEntry   = "first entry into band"
	ReasonEnteredBand  = "entered band from outside"
	ReasonSwitchedBand = "switched band"
)

// State is the persisted classification snapshot for one position. Rows are
// append-only; only the most recent row is authoritative.
type State struct {
	PositionID uuid.UUID
	LastPrice  decimal.Decimal
	InRange    bool
	RangeType  pricing.RangeLabel
	CheckedAt  time.Time
}

// Event records one fired alert.
type Event struct {
	PositionID     uuid.UUID
	RangeType      pricing.RangeLabel
	CurrentPrice   decimal.Decimal
	ReferencePrice decimal.Decimal
	TriggeredAt    time.Time
}

// StateStore reads and appends per-position classification state.
type StateStore interface {
	LatestState(ctx context.Context, positionID uuid.UUID) (State, bool, error)
	AppendState(ctx context.Context, state State) error
}

// EventStore appends fired alerts to the audit history.
type EventStore interface {
	AppendAlert(ctx context.Context, event Event) error
}

// Decision is the outcome of one classification cycle.
type Decision struct {
	Result      pricing.RangeResult
	ShouldAlert bool
	Reason      string
	// DegradedRead is set when the prior state could not be read and the
	// position was treated as unseen for this cycle only.
	DegradedRead error
}

// Engine 实现提醒去重状态机：只有区间占用发生变化时才触发提醒。
//
// Callers must serialize Check calls per position; two concurrent checks for
// the same position can both observe stale state and double-fire.
type Engine struct {
	states  StateStore
	history EventStore
	cfg     pricing.Config
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEngine wires the state machine to its stores.
func NewEngine(states StateStore, history EventStore, cfg pricing.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		states:  states,
		history: history,
		cfg:     cfg,
		logger:  logger.With().Str("component", "alert_engine").Logger(),
		now:     time.Now,
	}
}

// Check classifies the current price against the position's reference price,
// decides whether to fire, and appends the new state row. State persistence is
// unconditional; only the firing is conditional on a band-membership transition.
//
// If the prior state cannot be read the engine fails open: the position is
// treated as unseen for this cycle and the read error is surfaced on the
// decision as DegradedRead. The trade-off is explicit — a transient storage
// glitch may cause one spurious re-alert, but a check cycle is never blocked
// by a read failure.
func (e *Engine) Check(ctx context.Context, positionID uuid.UUID, current, reference decimal.Decimal) (Decision, error) {
	result, err := pricing.Classify(current, reference, e.cfg)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Result: result}

	prev, found, readErr := e.states.LatestState(ctx, positionID)
	if readErr != nil {
		found = false
		decision.DegradedRead = readErr
		e.logger.Warn().Err(readErr).
			Str("position_id", positionID.String()).
			Msg("读取上次提醒状态失败，本次按无状态处理")
	}

	if result.InRange {
		switch {
		case !found:
			decision.ShouldAlert = true
			decision.Reason = ReasonFirstEntry
		case !prev.InRange:
			decision.ShouldAlert = true
			decision.Reason = ReasonEnteredBand
		case prev.RangeType != result.MatchedRange:
			decision.ShouldAlert = true
			decision.Reason = ReasonSwitchedBand
		}
	}

	now := e.now().UTC()

	state := State{
		PositionID: positionID,
		LastPrice:  current,
		InRange:    result.InRange,
		RangeType:  result.MatchedRange,
		CheckedAt:  now,
	}
	if err := e.states.AppendState(ctx, state); err != nil {
		return decision, fmt.Errorf("%w: %v", ErrStateWrite, err)
	}

	if decision.ShouldAlert {
		event := Event{
			PositionID:     positionID,
			RangeType:      result.MatchedRange,
			CurrentPrice:   current,
			ReferencePrice: reference,
			TriggeredAt:    now,
		}
		if err := e.history.AppendAlert(ctx, event); err != nil {
			return decision, fmt.Errorf("%w: %v", ErrAlertWrite, err)
		}

		e.logger.Info().
			Str("position_id", positionID.String()).
			Str("range", string(result.MatchedRange)).
			Str("reason", decision.Reason).
			Str("current_price", current.String()).
			Msg("alert fired")
	}

	return decision, nil
}
