package sqlitestore

const schemaSQL = `
CREATE TABLE IF NOT EXISTS alert_rules (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	symbol                 TEXT NOT NULL,
	condition              TEXT NOT NULL,
	threshold              REAL NOT NULL,
	debounce_seconds       INTEGER NOT NULL DEFAULT 0,
	hysteresis_reset       REAL NOT NULL DEFAULT 0,
	cooldown_seconds       INTEGER NOT NULL DEFAULT 0,
	priority               TEXT NOT NULL,
	enabled                INTEGER NOT NULL DEFAULT 1,
	confirm_window_seconds INTEGER NOT NULL DEFAULT 0,
	created_at             TEXT NOT NULL,
	updated_at             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alert_rules_user   ON alert_rules(user_id);
CREATE INDEX IF NOT EXISTS idx_alert_rules_symbol ON alert_rules(symbol);

CREATE TABLE IF NOT EXISTS suppression_log (
	id        TEXT PRIMARY KEY,
	rule_id   TEXT NOT NULL,
	symbol    TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	reason    TEXT NOT NULL,
	meta      TEXT
);

CREATE INDEX IF NOT EXISTS idx_suppression_rule_ts ON suppression_log(rule_id, timestamp DESC);
`
