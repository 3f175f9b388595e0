package store

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	username TEXT,
	first_name TEXT,
	last_name TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	sender TEXT NOT NULL, -- user, bot
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_messages_user_sender_created ON messages(user_id, sender, created_at);

CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	user_message_id TEXT,
	"trigger" TEXT NOT NULL DEFAULT '',
	thought TEXT NOT NULL DEFAULT '',
	emotion_name TEXT NOT NULL DEFAULT '',
	emotion_intensity INTEGER NOT NULL DEFAULT 0,
	action TEXT NOT NULL DEFAULT '',
	consequence TEXT NOT NULL DEFAULT '',
	patterns TEXT NOT NULL DEFAULT '[]', -- JSON array of strings
	goal TEXT NOT NULL DEFAULT '',
	ineffectiveness_reason TEXT NOT NULL DEFAULT '',
	hidden_need TEXT NOT NULL DEFAULT '',
	alternatives TEXT NOT NULL DEFAULT '[]', -- JSON array of strings
	physiology TEXT NOT NULL DEFAULT '',
	raw_response TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_interactions_user_message ON interactions(user_message_id);
CREATE INDEX IF NOT EXISTS idx_interactions_user_created ON interactions(user_id, created_at);

CREATE TABLE IF NOT EXISTS journal_entries (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	source_message_id TEXT NOT NULL,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	description TEXT,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_journal_user_created ON journal_entries(user_id, created_at);

CREATE TABLE IF NOT EXISTS rules (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	description TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_rules_user_active ON rules(user_id, is_active);

CREATE TABLE IF NOT EXISTS daily_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	date TEXT NOT NULL, -- YYYY-MM-DD, UTC day
	message_count INTEGER NOT NULL,
	total_message_chars INTEGER NOT NULL,
	emotions TEXT NOT NULL,              -- JSON array of strings
	topics TEXT NOT NULL,                -- JSON array of strings
	message_timestamps TEXT NOT NULL,    -- JSON array of "HH:MM" strings
	message_word_counts TEXT NOT NULL,   -- JSON array of ints
	typos_per_message TEXT NOT NULL,     -- JSON array of ints
	sentiment_scores TEXT NOT NULL,      -- JSON array of floats
	emotional_intensities TEXT NOT NULL, -- JSON array of ints
	UNIQUE(user_id, date),
	FOREIGN KEY(user_id) REFERENCES users(id)
);
`
