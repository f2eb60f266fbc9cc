package store

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    root TEXT NOT NULL,
    exclusion_root TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP,
    error_code TEXT,
    error_message TEXT
);

CREATE TABLE IF NOT EXISTS batches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL,
    delivered_at TIMESTAMP NOT NULL,
    path_count INTEGER NOT NULL,
    git_dir_changed BOOLEAN NOT NULL DEFAULT 0,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS batch_paths (
    batch_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (batch_id, seq),
    FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_batches_session ON batches(session_id);
CREATE INDEX IF NOT EXISTS idx_batches_delivered ON batches(delivered_at);
CREATE INDEX IF NOT EXISTS idx_batch_paths_path ON batch_paths(path);
`
