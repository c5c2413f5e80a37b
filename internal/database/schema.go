package database

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pools (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL DEFAULT 0,
    kind TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    creator_name TEXT NOT NULL DEFAULT '',
    selected_image TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    registration_start TIMESTAMPTZ,
    registration_end TIMESTAMPTZ,
    registration_enabled BOOLEAN NOT NULL DEFAULT false,
    buy_in DOUBLE PRECISION NOT NULL DEFAULT 0,
    soft_cap INTEGER NOT NULL DEFAULT 0,
    rules_link TEXT NOT NULL DEFAULT '',
    payout_address TEXT NOT NULL DEFAULT '',
    token_symbol TEXT NOT NULL DEFAULT '',
    notified BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_pools_chat_id ON pools(chat_id);
CREATE INDEX IF NOT EXISTS idx_pools_notify ON pools(notified, registration_start);

CREATE TABLE IF NOT EXISTS pool_participants (
    pool_id BIGINT NOT NULL REFERENCES pools(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (pool_id, name)
);

CREATE TABLE IF NOT EXISTS giveaways (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL DEFAULT 0,
    slug TEXT NOT NULL UNIQUE,
    creator_name TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    selected_image TEXT NOT NULL,
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    prize TEXT NOT NULL,
    draw_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_giveaways_chat_id ON giveaways(chat_id);

CREATE TABLE IF NOT EXISTS giveaway_entries (
    giveaway_id BIGINT NOT NULL REFERENCES giveaways(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    entered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (giveaway_id, name)
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pools (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id INTEGER NOT NULL DEFAULT 0,
    kind TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    creator_name TEXT NOT NULL DEFAULT '',
    selected_image TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    registration_start TIMESTAMP,
    registration_end TIMESTAMP,
    registration_enabled BOOLEAN NOT NULL DEFAULT 0,
    buy_in REAL NOT NULL DEFAULT 0,
    soft_cap INTEGER NOT NULL DEFAULT 0,
    rules_link TEXT NOT NULL DEFAULT '',
    payout_address TEXT NOT NULL DEFAULT '',
    token_symbol TEXT NOT NULL DEFAULT '',
    notified BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pools_chat_id ON pools(chat_id);
CREATE INDEX IF NOT EXISTS idx_pools_notify ON pools(notified, registration_start);

CREATE TABLE IF NOT EXISTS pool_participants (
    pool_id INTEGER NOT NULL REFERENCES pools(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    joined_at TIMESTAMP NOT NULL,
    PRIMARY KEY (pool_id, name)
);

CREATE TABLE IF NOT EXISTS giveaways (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id INTEGER NOT NULL DEFAULT 0,
    slug TEXT NOT NULL UNIQUE,
    creator_name TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    selected_image TEXT NOT NULL,
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    prize TEXT NOT NULL,
    draw_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_giveaways_chat_id ON giveaways(chat_id);

CREATE TABLE IF NOT EXISTS giveaway_entries (
    giveaway_id INTEGER NOT NULL REFERENCES giveaways(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    entered_at TIMESTAMP NOT NULL,
    PRIMARY KEY (giveaway_id, name)
);
`
