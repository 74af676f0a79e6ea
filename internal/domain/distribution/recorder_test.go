package distribution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nftclaim/internal/db"
	"nftclaim/internal/pubkey"
)

type fakeAuditStore struct {
	distributors []db.Distributor
	claims       map[uuid.UUID]db.ClaimLog
}

func (f *fakeAuditStore) UpsertDistributor(_ context.Context, d db.Distributor) error {
	f.distributors = append(f.distributors, d)
	return nil
}

func (f *fakeAuditStore) RecordClaim(_ context.Context, entry db.ClaimLog) (bool, error) {
	if _, ok := f.claims[entry.EventID]; ok {
		return false, nil
	}
	f.claims[entry.EventID] = entry
	return true, nil
}

func Test_Recorder(t *testing.T) {
	ctx := context.Background()
	store := &fakeAuditStore{claims: map[uuid.UUID]db.ClaimLog{}}
	r := NewRecorder(store, zap.NewNop())
	state := pubkey.NewRandom()

	t.Run("Created events upsert the distributor", func(t *testing.T) {
		require.NoError(t, r.HandleEvent(ctx, Event{
			ID:          uuid.New(),
			Type:        EventDistributorCreated,
			Distributor: state,
			Created: &CreatedPayload{
				RewardAmountTotal:   18_446_744_073_709_551_615,
				RewardAmountPerUnit: 10,
				StartTime:           1_700_000_000,
				CollectionSymbol:    "APE",
			},
		}))
		require.Len(t, store.distributors, 1)
		assert.Equal(t, state.String(), store.distributors[0].Address)
		assert.Equal(t, "18446744073709551615", store.distributors[0].RewardAmountTotal.String())
		assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), store.distributors[0].StartTime)
	})

	t.Run("Claim events are recorded once", func(t *testing.T) {
		event := Event{
			ID:          uuid.New(),
			Type:        EventTokensClaimed,
			Distributor: state,
			Claimed:     &ClaimedPayload{Claimant: pubkey.NewRandom(), AssetMint: pubkey.NewRandom(), Amount: 10},
			Timestamp:   time.Now().UTC(),
		}
		require.NoError(t, r.HandleEvent(ctx, event))
		require.NoError(t, r.HandleEvent(ctx, event))
		require.Len(t, store.claims, 1)
		assert.Equal(t, "10", store.claims[event.ID].Amount.String())
	})

	t.Run("Unknown events are rejected", func(t *testing.T) {
		assert.ErrorIs(t, r.HandleEvent(ctx, Event{Type: "other"}), ErrUnsupportedEvent)
		assert.ErrorIs(t, r.HandleEvent(ctx, Event{Type: EventTokensClaimed, Distributor: state}), ErrUnsupportedEvent)
	})
}
