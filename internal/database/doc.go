// Package database provides SQLite-based storage for adslwatch.
//
// AccountDB stores:
//   - registered credentials, one row per portal login
//   - account snapshots, one row per observed change
//   - login logs, one row per finished login run
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no cgo. All writes go through one connection; WAL mode keeps
// readers unblocked.
package database
