package storage

// AUTOINCREMENT keeps ids from being reused after deletion.
const schema = `
-- The 'subjects' table groups items and carries per-side speech languages.
CREATE TABLE IF NOT EXISTS subjects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    front_lang TEXT NOT NULL DEFAULT '',
    back_lang TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

-- The 'items' table stores the flashcards themselves.
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_id INTEGER NOT NULL,
    front TEXT NOT NULL DEFAULT '',
    front_info TEXT NOT NULL DEFAULT '',
    back TEXT NOT NULL DEFAULT '',
    back_info TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,

    FOREIGN KEY(subject_id) REFERENCES subjects(id)
);

CREATE INDEX IF NOT EXISTS idx_items_subject ON items(subject_id);

-- The 'progress' table holds exactly one review state per item.
CREATE TABLE IF NOT EXISTS progress (
    item_id INTEGER PRIMARY KEY,
    level INTEGER NOT NULL DEFAULT 0 CHECK (level >= 0),
    last_studied INTEGER NOT NULL DEFAULT 0, -- unix ms, 0: never

    FOREIGN KEY(item_id) REFERENCES items(id)
);
`
