package distribution

import (
	"time"

	"github.com/google/uuid"

	"nftclaim/internal/pubkey"
)

const (
	EventDistributorCreated = "distributor_created"
	EventTokensClaimed      = "tokens_claimed"
)

// Event is emitted after a distributor instruction commits.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Distributor pubkey.Pubkey   `json:"distributor"`
	Created     *CreatedPayload `json:"created,omitempty"`
	Claimed     *ClaimedPayload `json:"claimed,omitempty"`
	Timestamp   time.Time       `json:"ts"`
}

// CreatedPayload describes a new distributor.
type CreatedPayload struct {
	Authority           pubkey.Pubkey `json:"authority"`
	Custody             pubkey.Pubkey `json:"custody"`
	RewardMint          pubkey.Pubkey `json:"reward_mint"`
	RewardAmountTotal   uint64        `json:"reward_amount_total"`
	RewardAmountPerUnit uint64        `json:"reward_amount_per_unit"`
	StartTime           int64         `json:"start_time"`
	CollectionSymbol    string        `json:"collection_symbol"`
	CollectionCreator   pubkey.Pubkey `json:"collection_creator"`
}

// ClaimedPayload describes one successful claim.
type ClaimedPayload struct {
	Claimant      pubkey.Pubkey `json:"claimant"`
	AssetMint     pubkey.Pubkey `json:"asset_mint"`
	Destination   pubkey.Pubkey `json:"destination"`
	Amount        uint64        `json:"amount"`
	AmountClaimed uint64        `json:"amount_claimed"`
}
