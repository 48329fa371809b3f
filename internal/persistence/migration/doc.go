// Package migration applies versioned SQL files to a database/sql handle.
//
// Files are named {version}_{description}.sql and are read from an fs.FS,
// typically an embed.FS owned by the store package. Applied versions are
// tracked in the schema_migrations table. Each file runs inside its own
// transaction and is executed as a single batch, so trigger bodies may
// contain semicolons.
package migration
