package distribution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nftclaim/internal/db"
	"nftclaim/internal/observability/metrics"
)

// ErrUnsupportedEvent marks an event the recorder can never persist: an
// unknown type or a missing payload.
var ErrUnsupportedEvent = errors.New("unsupported event")

// AuditStore is the persistence the recorder writes to.
type AuditStore interface {
	UpsertDistributor(ctx context.Context, d db.Distributor) error
	RecordClaim(ctx context.Context, entry db.ClaimLog) (bool, error)
}

// Recorder persists distribution events into the audit store.
type Recorder struct {
	store  AuditStore
	logger *zap.Logger
}

// NewRecorder builds a recorder.
func NewRecorder(store AuditStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// HandleEvent records one event. Redelivered claim events are ignored; a
// claim that arrives before its distributor is counted against a placeholder
// row the created event later fills in.
func (r *Recorder) HandleEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() { metrics.ObserveConsumerProcessing("handle_"+event.Type, time.Since(start)) }()

	switch {
	case event.Type == EventDistributorCreated && event.Created != nil:
		c := event.Created
		err := r.store.UpsertDistributor(ctx, db.Distributor{
			Address:             event.Distributor.String(),
			Authority:           c.Authority.String(),
			Custody:             c.Custody.String(),
			RewardMint:          c.RewardMint.String(),
			RewardAmountTotal:   amount(c.RewardAmountTotal),
			RewardAmountPerUnit: amount(c.RewardAmountPerUnit),
			AmountClaimed:       decimal.Zero,
			StartTime:           time.Unix(c.StartTime, 0).UTC(),
			CollectionSymbol:    c.CollectionSymbol,
			CollectionCreator:   c.CollectionCreator.String(),
		})
		if err != nil {
			r.logger.Error("failed to record distributor",
				zap.String("distributor", event.Distributor.String()), zap.Error(err))
			return err
		}
		return nil
	case event.Type == EventTokensClaimed && event.Claimed != nil:
		c := event.Claimed
		inserted, err := r.store.RecordClaim(ctx, db.ClaimLog{
			EventID:     event.ID,
			Distributor: event.Distributor.String(),
			Claimant:    c.Claimant.String(),
			AssetMint:   c.AssetMint.String(),
			Destination: c.Destination.String(),
			Amount:      amount(c.Amount),
			ClaimedAt:   event.Timestamp,
		})
		if err != nil {
			r.logger.Error("failed to record claim",
				zap.String("distributor", event.Distributor.String()),
				zap.String("mint", c.AssetMint.String()),
				zap.Error(err))
			return err
		}
		if !inserted {
			r.logger.Debug("duplicate claim event", zap.String("event_id", event.ID.String()))
		}
		return nil
	default:
		return fmt.Errorf("%w: type %q", ErrUnsupportedEvent, event.Type)
	}
}

func amount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
