package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"etf-tracker/internal/alert"
	"etf-tracker/internal/pricing"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertPositionSQL = `INSERT INTO positions (
        id,
        etf_code,
        etf_name,
        reference_price,
        quantity,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	listPositionsSQL = `SELECT
        id,
        etf_code,
        etf_name,
        reference_price,
        quantity,
        created_at
    FROM positions
    ORDER BY created_at;`

	getPositionSQL = `SELECT
        id,
        etf_code,
        etf_name,
        reference_price,
        quantity,
        created_at
    FROM positions
    WHERE id = $1;`

	latestPositionByCodeSQL = `SELECT
        id,
        etf_code,
        etf_name,
        reference_price,
        quantity,
        created_at
    FROM positions
    WHERE etf_code = $1
    ORDER BY created_at DESC
    LIMIT 1;`

	latestStateSQL = `SELECT
        position_id,
        last_price,
        in_range,
        range_type,
        checked_at
    FROM alert_states
    WHERE position_id = $1
    ORDER BY id DESC
    LIMIT 1;`

	appendStateSQL = `INSERT INTO alert_states (
        position_id,
        last_price,
        in_range,
        range_type,
        checked_at
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	appendAlertSQL = `INSERT INTO alert_events (
        position_id,
        range_type,
        current_price,
        reference_price,
        triggered_at
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	listRecentAlertsSQL = `SELECT
        position_id,
        range_type,
        current_price,
        reference_price,
        triggered_at
    FROM alert_events
    ORDER BY id DESC
    LIMIT $1;`

	insertSampleSQL = `INSERT INTO price_samples (
        etf_code,
        etf_name,
        price,
        recorded_at
    ) VALUES (
        $1,$2,$3,$4
    ) RETURNING id;`

	listRecentSamplesSQL = `SELECT
        id,
        etf_code,
        etf_name,
        price,
        recorded_at
    FROM price_samples
    ORDER BY recorded_at DESC
    LIMIT $1;`

	listSamplesBetweenSQL = `SELECT
        id,
        etf_code,
        etf_name,
        price,
        recorded_at
    FROM price_samples
    WHERE recorded_at >= $1
      AND recorded_at < $2
    ORDER BY recorded_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PositionStore defines operations for recorded transactions.
type PositionStore interface {
	RecordTransaction(ctx context.Context, code, name string, price decimal.Decimal, quantity int64) (Position, error)
	ListPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, id uuid.UUID) (Position, bool, error)
	LatestPositionByCode(ctx context.Context, code string) (Position, bool, error)
}

// SampleStore defines operations for price history persistence.
type SampleStore interface {
	InsertSample(ctx context.Context, sample PriceSample) (PriceSample, error)
	ListRecentSamples(ctx context.Context, limit int) ([]PriceSample, error)
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSample, error)
}

// AlertLog lists fired alerts for auditing.
type AlertLog interface {
	ListRecentAlerts(ctx context.Context, limit int) ([]alert.Event, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to positions, price samples, and the alert log.
// It also implements alert.StateStore and alert.EventStore for the engine.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

// RecordTransaction persists a new position basis and returns it with its identifier.
func (s *Store) RecordTransaction(ctx context.Context, code, name string, price decimal.Decimal, quantity int64) (Position, error) {
	pool, err := s.getPool()
	if err != nil {
		return Position{}, err
	}

	position := Position{
		ID:             uuid.New(),
		Code:           code,
		Name:           name,
		ReferencePrice: price,
		Quantity:       quantity,
		CreatedAt:      time.Now().UTC(),
	}

	if _, execErr := pool.Exec(ctx, insertPositionSQL,
		position.ID,
		position.Code,
		position.Name,
		position.ReferencePrice.String(),
		position.Quantity,
		position.CreatedAt,
	); execErr != nil {
		return Position{}, fmt.Errorf("record transaction: %w", execErr)
	}

	return position, nil
}

// ListPositions lists all recorded positions, oldest first.
func (s *Store) ListPositions(ctx context.Context) ([]Position, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPositionsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list positions: %w", queryErr)
	}
	defer rows.Close()

	positions := make([]Position, 0)
	for rows.Next() {
		position, scanErr := scanPosition(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		positions = append(positions, position)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return positions, nil
}

// GetPosition fetches one position by identifier.
func (s *Store) GetPosition(ctx context.Context, id uuid.UUID) (Position, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return Position{}, false, err
	}

	rows, queryErr := pool.Query(ctx, getPositionSQL, id)
	if queryErr != nil {
		return Position{}, false, fmt.Errorf("get position: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		return Position{}, false, rows.Err()
	}
	position, scanErr := scanPosition(rows)
	if scanErr != nil {
		return Position{}, false, scanErr
	}
	return position, true, nil
}

// LatestPositionByCode fetches the most recently recorded position for a code.
func (s *Store) LatestPositionByCode(ctx context.Context, code string) (Position, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return Position{}, false, err
	}

	rows, queryErr := pool.Query(ctx, latestPositionByCodeSQL, code)
	if queryErr != nil {
		return Position{}, false, fmt.Errorf("latest position by code: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		return Position{}, false, rows.Err()
	}
	position, scanErr := scanPosition(rows)
	if scanErr != nil {
		return Position{}, false, scanErr
	}
	return position, true, nil
}

// LatestState returns the most recent alert state row for a position.
func (s *Store) LatestState(ctx context.Context, positionID uuid.UUID) (alert.State, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return alert.State{}, false, err
	}

	var (
		state     alert.State
		priceStr  string
		rangeType string
	)
	row := pool.QueryRow(ctx, latestStateSQL, positionID)
	if scanErr := row.Scan(&state.PositionID, &priceStr, &state.InRange, &rangeType, &state.CheckedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return alert.State{}, false, nil
		}
		return alert.State{}, false, fmt.Errorf("latest alert state: %w", scanErr)
	}

	price, convErr := decimal.NewFromString(priceStr)
	if convErr != nil {
		return alert.State{}, false, fmt.Errorf("parse last price: %w", convErr)
	}
	state.LastPrice = price
	state.RangeType = rangeLabelFromString(rangeType)

	return state, true, nil
}

// AppendState appends a new alert state row. Rows are never updated in place.
func (s *Store) AppendState(ctx context.Context, state alert.State) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, appendStateSQL,
		state.PositionID,
		state.LastPrice.String(),
		state.InRange,
		string(state.RangeType),
		state.CheckedAt,
	); execErr != nil {
		return fmt.Errorf("append alert state: %w", execErr)
	}
	return nil
}

// AppendAlert records a fired alert in the audit history.
func (s *Store) AppendAlert(ctx context.Context, event alert.Event) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, appendAlertSQL,
		event.PositionID,
		string(event.RangeType),
		event.CurrentPrice.String(),
		event.ReferencePrice.String(),
		event.TriggeredAt,
	); execErr != nil {
		return fmt.Errorf("append alert event: %w", execErr)
	}
	return nil
}

// ListRecentAlerts lists the most recent fired alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]alert.Event, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	events := make([]alert.Event, 0, limit)
	for rows.Next() {
		var (
			event      alert.Event
			rangeType  string
			currentStr string
			refStr     string
		)
		if err := rows.Scan(&event.PositionID, &rangeType, &currentStr, &refStr, &event.TriggeredAt); err != nil {
			return nil, err
		}

		current, convErr := decimal.NewFromString(currentStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse current price: %w", convErr)
		}
		reference, convErr := decimal.NewFromString(refStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse reference price: %w", convErr)
		}

		event.CurrentPrice = current
		event.ReferencePrice = reference
		event.RangeType = rangeLabelFromString(rangeType)
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// InsertSample persists one observed price.
func (s *Store) InsertSample(ctx context.Context, sample PriceSample) (PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceSample{}, err
	}

	row := pool.QueryRow(ctx, insertSampleSQL,
		sample.Code,
		sample.Name,
		sample.Price.String(),
		sample.RecordedAt,
	)
	if scanErr := row.Scan(&sample.ID); scanErr != nil {
		return PriceSample{}, fmt.Errorf("insert price sample: %w", scanErr)
	}
	return sample, nil
}

// ListRecentSamples lists the most recent price samples, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, limit)
}

// ListSamplesBetween lists price samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, 0)
}

func collectSamples(rows pgx.Rows, sizeHint int) ([]PriceSample, error) {
	samples := make([]PriceSample, 0, sizeHint)
	for rows.Next() {
		var (
			sample   PriceSample
			priceStr string
		)
		if err := rows.Scan(&sample.ID, &sample.Code, &sample.Name, &priceStr, &sample.RecordedAt); err != nil {
			return nil, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse sample price: %w", convErr)
		}
		sample.Price = price
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func scanPosition(rows pgx.Rows) (Position, error) {
	var (
		position Position
		priceStr string
	)
	if err := rows.Scan(
		&position.ID,
		&position.Code,
		&position.Name,
		&priceStr,
		&position.Quantity,
		&position.CreatedAt,
	); err != nil {
		return Position{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return Position{}, fmt.Errorf("parse reference price: %w", err)
	}
	position.ReferencePrice = price
	return position, nil
}

func rangeLabelFromString(v string) pricing.RangeLabel {
	return pricing.RangeLabel(v)
}
