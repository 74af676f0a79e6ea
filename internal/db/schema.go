package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS distributor (
    address                 TEXT PRIMARY KEY,
    authority               TEXT NOT NULL,
    custody                 TEXT NOT NULL,
    reward_mint             TEXT NOT NULL,
    reward_amount_total     NUMERIC(20, 0) NOT NULL,
    reward_amount_per_unit  NUMERIC(20, 0) NOT NULL,
    amount_claimed          NUMERIC(20, 0) NOT NULL DEFAULT 0,
    start_time              TIMESTAMPTZ NOT NULL,
    collection_symbol       TEXT NOT NULL,
    collection_creator      TEXT NOT NULL,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS claim_log (
    id           BIGSERIAL PRIMARY KEY,
    event_id     UUID NOT NULL UNIQUE,
    distributor  TEXT NOT NULL,
    claimant     TEXT NOT NULL,
    asset_mint   TEXT NOT NULL,
    destination  TEXT NOT NULL,
    amount       NUMERIC(20, 0) NOT NULL,
    claimed_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS claim_log_distributor_idx ON claim_log (distributor, claimed_at DESC);
`
