package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"etf-tracker/internal/alerting"
	"etf-tracker/internal/pricing"
)

// SimulateAlert 用给定的当前价/参考价模拟一次分类和提醒推送，不读写存储。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何提醒通道")
	}

	result, err := pricing.Classify(opts.Current, opts.Reference, a.Config.Pricing)
	if err != nil {
		return err
	}

	if !result.InRange {
		fmt.Fprintf(os.Stdout, "price %s is outside both action ranges (%s%%), nothing to send\n",
			opts.Current, result.ChangePct.StringFixed(2))
		return nil
	}

	note := alerting.Notification{
		Code:           opts.Code,
		Name:           opts.Code,
		Reason:         "simulated",
		RangeType:      result.MatchedRange,
		CurrentPrice:   opts.Current,
		ReferencePrice: opts.Reference,
		ChangePct:      result.ChangePct,
		Levels:         result.Levels,
		TriggeredAt:    time.Now().UTC(),
	}
	return notifier.Notify(ctx, note)
}
