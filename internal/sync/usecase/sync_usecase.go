package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	notificationDomain "github.com/allisson/marketsync/internal/notification/domain"
	syncDomain "github.com/allisson/marketsync/internal/sync/domain"
)

// maxNotifiedErrors bounds the record errors carried by a sync_error notification.
const maxNotifiedErrors = 10

type syncUseCase struct {
	config Config
	deps   Dependencies
	pull   *MarketplaceToDB
	push   *DBToMarketplace
	bidi   *Bidirectional
	now    func() time.Time
}

// Run executes the run under the sync:<type> lease. When the run reports failed
// records a sync_error notification is queued; queueing failures are only logged.
func (s *syncUseCase) Run(ctx context.Context, syncType syncDomain.Type) (*syncDomain.Report, error) {
	if _, err := syncDomain.ParseType(string(syncType)); err != nil {
		return nil, err
	}

	report := &syncDomain.Report{Type: syncType, StartedAt: s.now()}
	err := s.deps.Runner.Run(ctx, syncType.LeaseName(), func(ctx context.Context) error {
		switch syncType {
		case syncDomain.TypeMarketplaceToDB:
			result, err := s.pull.Execute(ctx, s.config.Strategy)
			report.MarketplaceToDB = result
			report.Total.Add(result)
			return err
		case syncDomain.TypeDBToMarketplace:
			result, err := s.push.Execute(ctx)
			report.DBToMarketplace = result
			report.Total.Add(result)
			return err
		default:
			result, err := s.bidi.Execute(ctx)
			if err != nil {
				return err
			}
			report.MarketplaceToDB = result.MarketplaceToDB
			report.DBToMarketplace = result.DBToMarketplace
			report.Total = result.Total
			return nil
		}
	})
	report.FinishedAt = s.now()
	if err != nil {
		s.deps.Logger.Error("sync run failed",
			slog.String("type", string(syncType)),
			slog.Any("error", err),
		)
		return nil, err
	}

	if report.Total.Failed > 0 && s.config.NotifyFailures {
		s.notifyFailures(ctx, report)
	}
	return report, nil
}

func (s *syncUseCase) ListConflicts(ctx context.Context, limit int) ([]*syncDomain.Conflict, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.deps.Conflicts.List(ctx, limit)
}

func (s *syncUseCase) notifyFailures(ctx context.Context, report *syncDomain.Report) {
	errs := report.Total.Errors
	if len(errs) > maxNotifiedErrors {
		errs = errs[:maxNotifiedErrors]
	}

	channel, recipient := notificationDomain.ChannelWebhook, ""
	if s.config.NotificationEmailTo != "" {
		channel, recipient = notificationDomain.ChannelEmail, s.config.NotificationEmailTo
	}

	err := s.deps.Notifier.Notify(ctx, notificationDomain.Notification{
		Channel:   channel,
		Type:      notificationDomain.TypeSyncError,
		Recipient: recipient,
		Subject:   fmt.Sprintf("Sync %s finished with %d failed record(s)", report.Type, report.Total.Failed),
		Message: fmt.Sprintf(
			"%d of %d record(s) failed to sync.",
			report.Total.Failed,
			report.Total.Processed,
		),
		TemplateData: map[string]any{
			"syncType":   string(report.Type),
			"processed":  report.Total.Processed,
			"successful": report.Total.Successful,
			"failed":     report.Total.Failed,
			"errors":     errs,
		},
	})
	if err != nil {
		s.deps.Logger.Error("failed to queue sync error notification",
			slog.String("type", string(report.Type)),
			slog.Any("error", err),
		)
	}
}

// NewSyncUseCase creates a new SyncUseCase with the three strategies sharing
// one set of dependencies.
func NewSyncUseCase(config Config, deps Dependencies) SyncUseCase {
	config = config.withDefaults()
	deps = deps.withDefaults()
	pull := NewMarketplaceToDB(config, deps)
	push := NewDBToMarketplace(config, deps)
	return &syncUseCase{
		config: config,
		deps:   deps,
		pull:   pull,
		push:   push,
		bidi:   NewBidirectional(pull, push),
		now:    func() time.Time { return time.Now().UTC() },
	}
}
