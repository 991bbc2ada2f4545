package sqlite

// Schema DDL. Parent references cascade on delete so removing a folder
// removes its whole subtree even when a caller skips the descendants.
const (
	createFolders = `CREATE TABLE IF NOT EXISTS folders (
    folder_id TEXT PRIMARY KEY,
    parent_id TEXT REFERENCES folders(folder_id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    changed_at TEXT,
    change_counter INTEGER NOT NULL DEFAULT 0
);`

	createFiles = `CREATE TABLE IF NOT EXISTS files (
    file_id TEXT PRIMARY KEY,
    parent_id TEXT REFERENCES folders(folder_id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    changed_at TEXT,
    change_counter INTEGER NOT NULL DEFAULT 0,
    extension TEXT NOT NULL,
    locked INTEGER NOT NULL DEFAULT 0,
    password_digest TEXT,
    importance INTEGER NOT NULL CHECK (importance BETWEEN 0 AND 4),
    size INTEGER NOT NULL DEFAULT 0,
    content TEXT
);`

	createIndexes = `
CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);
CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent_id);
`
)

// schemaStatements lists the DDL in execution order.
var schemaStatements = []string{createFolders, createFiles, createIndexes}
