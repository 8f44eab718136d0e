package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	catalogDomain "github.com/allisson/marketsync/internal/catalog/domain"
	apperrors "github.com/allisson/marketsync/internal/errors"
	"github.com/allisson/marketsync/internal/marketplace"
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

type producerUseCase struct {
	repo     ProducerRepository
	accounts AccountSource
	remote   RemoteProducers
	logger   *slog.Logger
	flights  singleflight.Group
	now      func() time.Time
}

// EnsureExists looks the producer up locally and otherwise fetches it from the
// marketplace. Concurrent calls for the same producer inside the process share
// one fetch; calls from other processes converge on the same row through the
// upsert key.
func (p *producerUseCase) EnsureExists(
	ctx context.Context,
	userID, accountID uuid.UUID,
	remoteID string,
) (uuid.UUID, error) {
	if remoteID == "" {
		return uuid.Nil, producersDomain.ErrRemoteIDRequired
	}

	producer, err := p.repo.GetByRemoteID(ctx, accountID, remoteID)
	if err == nil {
		return producer.ID, nil
	}
	if !errors.Is(err, producersDomain.ErrProducerNotFound) {
		return uuid.Nil, err
	}

	// userID is part of the key so a caller never joins a fetch that passed
	// another user's ownership check.
	key := userID.String() + "/" + accountID.String() + "/" + remoteID
	ch := p.flights.DoChan(key, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		return p.fetchAndStore(context.WithoutCancel(ctx), userID, accountID, remoteID)
	})

	select {
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return uuid.Nil, res.Err
		}
		return res.Val.(uuid.UUID), nil
	}
}

func (p *producerUseCase) fetchAndStore(
	ctx context.Context,
	userID, accountID uuid.UUID,
	remoteID string,
) (uuid.UUID, error) {
	token, err := p.token(ctx, userID, accountID)
	if err != nil {
		return uuid.Nil, err
	}

	remote, err := p.remote.GetProducer(ctx, token, remoteID)
	if err != nil {
		if errors.Is(err, marketplace.ErrRemoteNotFound) {
			return uuid.Nil, apperrors.Wrapf(producersDomain.ErrDependencyNotFound, "producer %s", remoteID)
		}
		return uuid.Nil, err
	}

	producer, err := p.store(ctx, accountID, remote)
	if err != nil {
		return uuid.Nil, err
	}

	p.logger.Info("stored missing producer",
		slog.String("account_id", accountID.String()),
		slog.String("remote_id", remoteID),
		slog.String("producer_id", producer.ID.String()),
	)
	return producer.ID, nil
}

// SyncForAccount upserts every listed producer. Individual upsert failures are
// counted and logged; a failed listing aborts the sync.
func (p *producerUseCase) SyncForAccount(
	ctx context.Context,
	userID, accountID uuid.UUID,
) (*producersDomain.SyncSummary, error) {
	token, err := p.token(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	remotes, err := p.remote.ListProducers(ctx, token)
	if err != nil {
		p.logger.Error("failed to list producers",
			slog.String("account_id", accountID.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	summary := &producersDomain.SyncSummary{Total: len(remotes)}
	for _, remote := range remotes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := p.store(ctx, accountID, remote); err != nil {
			summary.Errors++
			p.logger.Error("failed to sync producer",
				slog.String("account_id", accountID.String()),
				slog.String("remote_id", remote.ID),
				slog.Any("error", err),
			)
			continue
		}
		summary.Synced++
	}

	p.logger.Info("producer sync completed",
		slog.String("account_id", accountID.String()),
		slog.Int("total", summary.Total),
		slog.Int("synced", summary.Synced),
		slog.Int("errors", summary.Errors),
	)
	return summary, nil
}

// token checks that the account belongs to userID and returns its access token.
func (p *producerUseCase) token(ctx context.Context, userID, accountID uuid.UUID) (string, error) {
	account, err := p.accounts.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account.UserID != userID {
		return "", producersDomain.ErrAccountMismatch
	}
	return p.accounts.AccessToken(ctx, accountID)
}

func (p *producerUseCase) store(
	ctx context.Context,
	accountID uuid.UUID,
	remote *marketplace.Producer,
) (*producersDomain.Producer, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate producer id")
	}

	address, err := json.Marshal(remote.ProducerData.Address)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode producer address")
	}

	now := p.now().UTC()
	producer := &producersDomain.Producer{
		ID:           id,
		AccountID:    accountID,
		RemoteID:     remote.ID,
		Name:         remote.DisplayName(),
		Email:        remote.ProducerData.Contact.Email,
		Phone:        remote.ProducerData.Contact.PhoneNumber,
		Address:      address,
		RawData:      remote.Raw,
		SyncStatus:   catalogDomain.SyncStatusSynced,
		LastSyncedAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.repo.Upsert(ctx, producer); err != nil {
		return nil, err
	}
	return producer, nil
}

// NewProducerUseCase creates a new ProducerUseCase.
func NewProducerUseCase(
	repo ProducerRepository,
	accounts AccountSource,
	remote RemoteProducers,
	logger *slog.Logger,
) ProducerUseCase {
	return &producerUseCase{
		repo:     repo,
		accounts: accounts,
		remote:   remote,
		logger:   logger,
		now:      time.Now,
	}
}
