package store

const schema = `
CREATE TABLE IF NOT EXISTS cards (
    id                      INTEGER PRIMARY KEY,
    name                    TEXT NOT NULL,
    ruby                    TEXT,
    type_name               TEXT,
    character_name          TEXT,
    rarity                  TEXT,
    type                    TEXT,
    feature                 TEXT,
    level                   TEXT,
    round                   TEXT,
    battle_power_1          INTEGER,
    battle_power_2          INTEGER,
    battle_power_3          INTEGER,
    battle_power_4          INTEGER,
    battle_power_ex         INTEGER,
    effect                  TEXT,
    flavor_text             TEXT,
    section                 TEXT,
    bundle_version          TEXT,
    serial                  TEXT,
    branch                  TEXT,
    number                  TEXT,
    participating_works     TEXT,
    participating_works_url TEXT,
    publication_year        INTEGER,
    illustrator_name        TEXT,
    image_url               TEXT,
    thumbnail_image_url     TEXT,
    errata_enable           BOOLEAN NOT NULL DEFAULT 0,
    errata_url              TEXT
);

CREATE INDEX IF NOT EXISTS idx_cards_number ON cards(number);
CREATE INDEX IF NOT EXISTS idx_cards_rarity ON cards(rarity);
CREATE INDEX IF NOT EXISTS idx_cards_feature ON cards(feature);
CREATE INDEX IF NOT EXISTS idx_cards_character ON cards(character_name);
`
