package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"etf-tracker/internal/alert"
	"etf-tracker/internal/alerting"
	"etf-tracker/internal/config"
	"etf-tracker/internal/fetcher"
	"etf-tracker/internal/pricing"
	"etf-tracker/internal/storage"
)

type fakeQuotes struct {
	prices map[string]string
	err    error
	calls  int
}

func (f *fakeQuotes) FetchQuote(_ context.Context, code string) (fetcher.Quote, error) {
	f.calls++
	if f.err != nil {
		return fetcher.Quote{}, f.err
	}
	price, ok := f.prices[code]
	if !ok {
		return fetcher.Quote{}, errors.New("unknown code")
	}
	return fetcher.Quote{Code: code, Name: "测试ETF", Price: decimal.RequireFromString(price)}, nil
}

type fakePositions struct {
	positions []storage.Position
}

func (f *fakePositions) RecordTransaction(_ context.Context, code, name string, price decimal.Decimal, quantity int64) (storage.Position, error) {
	position := storage.Position{ID: uuid.New(), Code: code, Name: name, ReferencePrice: price, Quantity: quantity, CreatedAt: time.Now()}
	f.positions = append(f.positions, position)
	return position, nil
}

func (f *fakePositions) ListPositions(_ context.Context) ([]storage.Position, error) {
	return f.positions, nil
}

func (f *fakePositions) GetPosition(_ context.Context, id uuid.UUID) (storage.Position, bool, error) {
	for _, p := range f.positions {
		if p.ID == id {
			return p, true, nil
		}
	}
	return storage.Position{}, false, nil
}

func (f *fakePositions) LatestPositionByCode(_ context.Context, code string) (storage.Position, bool, error) {
	for i := len(f.positions) - 1; i >= 0; i-- {
		if f.positions[i].Code == code {
			return f.positions[i], true, nil
		}
	}
	return storage.Position{}, false, nil
}

type fakeSamples struct {
	samples []storage.PriceSample
}

func (f *fakeSamples) InsertSample(_ context.Context, sample storage.PriceSample) (storage.PriceSample, error) {
	f.samples = append(f.samples, sample)
	return sample, nil
}

func (f *fakeSamples) ListRecentSamples(_ context.Context, _ int) ([]storage.PriceSample, error) {
	return f.samples, nil
}

func (f *fakeSamples) ListSamplesBetween(_ context.Context, _, _ time.Time) ([]storage.PriceSample, error) {
	return f.samples, nil
}

type memoryAlertStore struct {
	states map[uuid.UUID][]alert.State
	events []alert.Event
}

func newMemoryAlertStore() *memoryAlertStore {
	return &memoryAlertStore{states: map[uuid.UUID][]alert.State{}}
}

func (m *memoryAlertStore) LatestState(_ context.Context, id uuid.UUID) (alert.State, bool, error) {
	rows := m.states[id]
	if len(rows) == 0 {
		return alert.State{}, false, nil
	}
	return rows[len(rows)-1], true, nil
}

func (m *memoryAlertStore) AppendState(_ context.Context, state alert.State) error {
	m.states[state.PositionID] = append(m.states[state.PositionID], state)
	return nil
}

func (m *memoryAlertStore) AppendAlert(_ context.Context, event alert.Event) error {
	m.events = append(m.events, event)
	return nil
}

type fakeNotifier struct {
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, note alerting.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, note)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Alerting: config.AlertingConfig{Enabled: true},
		Pricing:  pricing.DefaultConfig(),
	}
}

func newTestService(quotes fetcher.QuoteFetcher, positions storage.PositionStore, samples storage.SampleStore, store *memoryAlertStore, notifier alerting.Notifier) *Service {
	engine := alert.NewEngine(store, store, pricing.DefaultConfig(), zerolog.Nop())
	return New(testConfig(), nil, quotes, positions, samples, engine, notifier, zerolog.Nop())
}

func TestProcessTickFiresAlert(t *testing.T) {
	positions := &fakePositions{}
	_, _ = positions.RecordTransaction(context.Background(), "SZ159915", "测试ETF", decimal.RequireFromString("2.08"), 10000)

	quotes := &fakeQuotes{prices: map[string]string{"SZ159915": "2.15"}}
	samples := &fakeSamples{}
	store := newMemoryAlertStore()
	notifier := &fakeNotifier{}

	svc := newTestService(quotes, positions, samples, store, notifier)

	if err := svc.ProcessTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("ProcessTick 不应报错: %v", err)
	}

	if len(store.events) != 1 {
		t.Fatalf("应触发 1 条提醒, 实际 %d", len(store.events))
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("应推送 1 条通知, 实际 %d", len(notifier.notes))
	}
	if notifier.notes[0].RangeType != pricing.RangeUpper {
		t.Fatalf("通知区间不正确: %+v", notifier.notes[0])
	}
	if len(samples.samples) != 1 {
		t.Fatalf("应记录 1 条价格样本, 实际 %d", len(samples.samples))
	}
}

func TestProcessTickDedupAcrossTicks(t *testing.T) {
	positions := &fakePositions{}
	_, _ = positions.RecordTransaction(context.Background(), "SZ159915", "测试ETF", decimal.RequireFromString("2.08"), 10000)

	quotes := &fakeQuotes{prices: map[string]string{"SZ159915": "2.15"}}
	store := newMemoryAlertStore()
	notifier := &fakeNotifier{}

	svc := newTestService(quotes, positions, &fakeSamples{}, store, notifier)

	for i := 0; i < 3; i++ {
		if err := svc.ProcessTick(context.Background(), time.Now()); err != nil {
			t.Fatalf("ProcessTick failed: %v", err)
		}
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("同区间连续周期只应提醒一次, 实际 %d", len(notifier.notes))
	}
}

func TestProcessTickQuoteUnavailable(t *testing.T) {
	positions := &fakePositions{}
	_, _ = positions.RecordTransaction(context.Background(), "SZ159915", "测试ETF", decimal.RequireFromString("2.08"), 10000)

	quotes := &fakeQuotes{err: errors.New("connection timed out")}
	store := newMemoryAlertStore()
	notifier := &fakeNotifier{}

	svc := newTestService(quotes, positions, &fakeSamples{}, store, notifier)

	if err := svc.ProcessTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("行情失败不应让 tick 整体报错: %v", err)
	}

	// no classification possible: no state written, no alert fired
	if len(store.states) != 0 {
		t.Fatal("行情不可用时不应写入状态")
	}
	if len(notifier.notes) != 0 {
		t.Fatal("行情不可用时不应推送提醒")
	}
}

func TestProcessTickFetchesEachCodeOnce(t *testing.T) {
	positions := &fakePositions{}
	_, _ = positions.RecordTransaction(context.Background(), "SZ159915", "测试ETF", decimal.RequireFromString("2.08"), 10000)
	_, _ = positions.RecordTransaction(context.Background(), "SZ159915", "测试ETF", decimal.RequireFromString("2.10"), 5000)

	quotes := &fakeQuotes{prices: map[string]string{"SZ159915": "2.15"}}
	store := newMemoryAlertStore()

	svc := newTestService(quotes, positions, &fakeSamples{}, store, &fakeNotifier{})

	if err := svc.ProcessTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("ProcessTick failed: %v", err)
	}

	if quotes.calls != 1 {
		t.Fatalf("同一代码只应取一次行情, 实际 %d 次", quotes.calls)
	}
	if len(store.states) != 2 {
		t.Fatalf("两个持仓都应写入状态, 实际 %d", len(store.states))
	}
}

func TestProcessTickNotifierFailureDoesNotAbort(t *testing.T) {
	positions := &fakePositions{}
	_, _ = positions.RecordTransaction(context.Background(), "SZ159915", "测试ETF", decimal.RequireFromString("2.08"), 10000)

	quotes := &fakeQuotes{prices: map[string]string{"SZ159915": "2.15"}}
	store := newMemoryAlertStore()
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	svc := newTestService(quotes, positions, &fakeSamples{}, store, notifier)

	if err := svc.ProcessTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("通知失败不应让 tick 整体报错: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatal("提醒历史仍应记录")
	}
}
