package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nao1215/adslwatch/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "adslwatch.db"

// maxParamsPerQuery keeps IN lists below SQLite's variable limit.
const maxParamsPerQuery = 500

// AccountDB is the SQLite store for credentials, snapshots, and login logs.
type AccountDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures AccountDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the AccountDB in dbDir.
func Open(dbDir string, opts Options) (*AccountDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys is a per-connection pragma, so it goes into the DSN.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AccountDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AccountDB) Close() error {
	return adb.db.Close()
}

// Path returns the database file path.
func (adb *AccountDB) Path() string {
	return adb.dbPath
}

func (adb *AccountDB) createTables() error {
	schema := `
	-- One row per registered portal login
	CREATE TABLE IF NOT EXISTS credentials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		login_name TEXT NOT NULL UNIQUE,
		secret TEXT NOT NULL,
		network_id TEXT NOT NULL DEFAULT '',
		line_number TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_credentials_line ON credentials(line_number);

	-- Account snapshots, written only when the content changes
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		credential_id INTEGER NOT NULL REFERENCES credentials(id) ON DELETE CASCADE,
		displayed_name TEXT,
		subscription_date TEXT,
		plan TEXT,
		status TEXT,
		available_balance TEXT,
		expiry_date TEXT,
		fingerprint TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_credential ON snapshots(credential_id, id);

	-- One row per finished login run; credential_id is NULL for candidates
	-- tried before registration
	CREATE TABLE IF NOT EXISTS login_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		credential_id INTEGER REFERENCES credentials(id) ON DELETE SET NULL,
		login_name TEXT NOT NULL,
		result TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_login_logs_login ON login_logs(login_name);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// InsertCredential registers a login and returns its ID.
// It returns ErrDuplicate when the login name already exists.
func (adb *AccountDB) InsertCredential(ctx context.Context, loginName, secret, networkID, lineNumber string) (int64, error) {
	query := `
	INSERT INTO credentials (login_name, secret, network_id, line_number)
	VALUES (?, ?, ?, ?)
	`

	result, err := adb.db.ExecContext(ctx, query, loginName, secret, networkID, lineNumber)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicate, loginName)
		}
		return 0, fmt.Errorf("failed to insert credential: %w", err)
	}
	return result.LastInsertId()
}

// CredentialByLogin returns the credential registered under loginName.
func (adb *AccountDB) CredentialByLogin(ctx context.Context, loginName string) (model.Credential, error) {
	query := `
	SELECT id, login_name, secret, network_id, line_number
	FROM credentials
	WHERE login_name = ?
	`

	var cred model.Credential
	err := adb.db.QueryRowContext(ctx, query, loginName).Scan(
		&cred.ID,
		&cred.LoginName,
		&cred.Secret,
		&cred.NetworkID,
		&cred.LineNumber,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, fmt.Errorf("%w: %s", ErrNotFound, loginName)
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}

// ListCredentials returns every registered credential ordered by ID.
func (adb *AccountDB) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	query := `
	SELECT id, login_name, secret, network_id, line_number
	FROM credentials
	ORDER BY id
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	creds := make([]model.Credential, 0)
	for rows.Next() {
		var cred model.Credential
		if err := rows.Scan(&cred.ID, &cred.LoginName, &cred.Secret, &cred.NetworkID, &cred.LineNumber); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// ExistingLines reports which of lines are already registered.
// The returned map only holds lines that exist.
func (adb *AccountDB) ExistingLines(ctx context.Context, lines []string) (map[string]bool, error) {
	existing := make(map[string]bool)

	for start := 0; start < len(lines); start += maxParamsPerQuery {
		chunk := lines[start:min(start+maxParamsPerQuery, len(lines))]

		args := make([]any, len(chunk))
		for i, line := range chunk {
			args[i] = line
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := "SELECT DISTINCT line_number FROM credentials WHERE line_number IN (" + placeholders + ")" //nolint:gosec // placeholders only

		rows, err := adb.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query existing lines: %w", err)
		}
		for rows.Next() {
			var line string
			if err := rows.Scan(&line); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan line: %w", err)
			}
			existing[line] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// SnapshotRecord is a stored snapshot.
type SnapshotRecord struct {
	ID           int64
	CredentialID int64
	Snapshot     model.AccountSnapshot
	Fingerprint  string
	Timestamp    time.Time
}

// SaveSnapshot stores snap for credentialID. Nothing is written when the
// latest stored snapshot has the same content.
func (adb *AccountDB) SaveSnapshot(ctx context.Context, credentialID int64, snap model.AccountSnapshot) error {
	fingerprint := snap.Fingerprint()

	latest, err := adb.LatestSnapshot(ctx, credentialID)
	if err != nil {
		return err
	}
	if latest != nil && latest.Fingerprint == fingerprint {
		return nil
	}

	query := `
	INSERT INTO snapshots (credential_id, displayed_name, subscription_date, plan, status,
		available_balance, expiry_date, fingerprint)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = adb.db.ExecContext(ctx, query,
		credentialID,
		snap.DisplayedName,
		snap.SubscriptionDate,
		snap.PlanText,
		snap.StatusText,
		snap.AvailableBalanceText,
		snap.ExpiryDateText,
		fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot of credentialID, or nil when
// none was stored yet.
func (adb *AccountDB) LatestSnapshot(ctx context.Context, credentialID int64) (*SnapshotRecord, error) {
	query := `
	SELECT id, credential_id, displayed_name, subscription_date, plan, status,
		available_balance, expiry_date, fingerprint, timestamp
	FROM snapshots
	WHERE credential_id = ?
	ORDER BY id DESC
	LIMIT 1
	`

	var rec SnapshotRecord
	var timestamp string
	err := adb.db.QueryRowContext(ctx, query, credentialID).Scan(
		&rec.ID,
		&rec.CredentialID,
		&rec.Snapshot.DisplayedName,
		&rec.Snapshot.SubscriptionDate,
		&rec.Snapshot.PlanText,
		&rec.Snapshot.StatusText,
		&rec.Snapshot.AvailableBalanceText,
		&rec.Snapshot.ExpiryDateText,
		&rec.Fingerprint,
		&timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	rec.Timestamp = parseTimestamp(timestamp)
	return &rec, nil
}

// CountSnapshots returns how many snapshots are stored for credentialID.
func (adb *AccountDB) CountSnapshots(ctx context.Context, credentialID int64) (int, error) {
	var n int
	err := adb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots WHERE credential_id = ?", credentialID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// LoginLog is a stored login run.
type LoginLog struct {
	ID           int64
	CredentialID int64
	LoginName    string
	Result       string
	Details      string
	Timestamp    time.Time
}

// RecordLog stores the outcome of one login run. A credential without an
// ID is recorded by login name only.
func (adb *AccountDB) RecordLog(ctx context.Context, cred model.Credential, result, details string) error {
	var credentialID sql.NullInt64
	if cred.ID > 0 {
		credentialID = sql.NullInt64{Int64: cred.ID, Valid: true}
	}

	query := `
	INSERT INTO login_logs (credential_id, login_name, result, details)
	VALUES (?, ?, ?, ?)
	`
	if _, err := adb.db.ExecContext(ctx, query, credentialID, cred.LoginName, result, details); err != nil {
		return fmt.Errorf("failed to record login log: %w", err)
	}
	return nil
}

// LoginHistory returns the newest login logs for loginName, newest first.
func (adb *AccountDB) LoginHistory(ctx context.Context, loginName string, limit int) ([]LoginLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, COALESCE(credential_id, 0), login_name, result, COALESCE(details, ''), timestamp
	FROM login_logs
	WHERE login_name = ?
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := adb.db.QueryContext(ctx, query, loginName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login history: %w", err)
	}
	defer rows.Close()

	logs := make([]LoginLog, 0)
	for rows.Next() {
		var l LoginLog
		var timestamp string
		if err := rows.Scan(&l.ID, &l.CredentialID, &l.LoginName, &l.Result, &l.Details, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan login log: %w", err)
		}
		l.Timestamp = parseTimestamp(timestamp)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// timestampFormats contains the timestamp formats SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
