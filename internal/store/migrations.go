package store

const schema = `
CREATE TABLE IF NOT EXISTS products (
    position         INTEGER PRIMARY KEY,
    id               TEXT NOT NULL DEFAULT '',
    identity_key     TEXT NOT NULL DEFAULT '',
    name             TEXT NOT NULL DEFAULT '',
    source           TEXT NOT NULL DEFAULT '',
    content_type     TEXT NOT NULL DEFAULT '',
    dark_horse_index INTEGER NOT NULL DEFAULT 0,
    doc              TEXT NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_id ON products(id);
CREATE INDEX IF NOT EXISTS idx_products_source ON products(source);
CREATE INDEX IF NOT EXISTS idx_products_index ON products(dark_horse_index);

CREATE TABLE IF NOT EXISTS weekly_snapshots (
    week_key   TEXT NOT NULL,
    position   INTEGER NOT NULL,
    product_id TEXT NOT NULL DEFAULT '',
    doc        TEXT NOT NULL,
    PRIMARY KEY (week_key, position)
);
`
