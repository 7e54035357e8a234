// ABOUTME: SQLite-backed encrypted credential storage using modernc.org/sqlite
// ABOUTME: Stores the refresh token and user profile sealed with NaCl secretbox

package keyring

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
	_ "modernc.org/sqlite"

	"github.com/2389/railboard/internal/session"
)

// Record keys. Two logical records, written and erased together.
const (
	refreshTokenKey = "auth_refresh_token"
	userProfileKey  = "auth_user"
)

const deviceKeySize = 32

// Keyring stores encrypted credential records in a local SQLite database.
type Keyring struct {
	db     *sql.DB
	key    [32]byte
	logger *slog.Logger
}

// Open creates or opens a keyring at dbPath. The device key file at
// keyPath is created with random contents on first use and must remain
// stable for stored credentials to stay readable. Parent directories are
// created if needed. Pass nil logger for default.
func Open(dbPath, keyPath string, logger *slog.Logger) (*Keyring, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "keyring")

	key, err := loadOrCreateDeviceKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading device key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening credential database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	k := &Keyring{db: db, logger: logger}
	// Store key derivation isolates databases copied between devices.
	k.key = sha256.Sum256(key)

	if err := k.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return k, nil
}

func (k *Keyring) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			key        TEXT PRIMARY KEY,
			nonce      BLOB NOT NULL,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`
	if _, err := k.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (k *Keyring) Close() error {
	return k.db.Close()
}

// Save writes the refresh token and user profile together in one
// transaction, replacing any previous credential.
func (k *Keyring) Save(ctx context.Context, cred session.Credential) error {
	profile, err := json.Marshal(cred.User)
	if err != nil {
		return fmt.Errorf("encoding user profile: %w", err)
	}

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range []struct {
		key   string
		value []byte
	}{
		{refreshTokenKey, []byte(cred.RefreshToken)},
		{userProfileKey, profile},
	} {
		nonce, sealed, err := k.seal(rec.value)
		if err != nil {
			return fmt.Errorf("sealing %s: %w", rec.key, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (key, nonce, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET nonce = excluded.nonce, value = excluded.value, updated_at = excluded.updated_at
		`, rec.key, nonce, sealed, now)
		if err != nil {
			return fmt.Errorf("writing %s: %w", rec.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing credential: %w", err)
	}

	k.logger.Debug("credential saved", "user_id", cred.User.ID)
	return nil
}

// Load reads the persisted credential. Any storage failure, missing
// record, decryption failure, or malformed profile is logged and mapped
// to nil: a partial credential is treated as absent, never partially
// restored.
func (k *Keyring) Load(ctx context.Context) *session.Credential {
	refresh, ok := k.loadRecord(ctx, refreshTokenKey)
	if !ok {
		return nil
	}
	profile, ok := k.loadRecord(ctx, userProfileKey)
	if !ok {
		return nil
	}

	if len(refresh) == 0 {
		k.logger.Warn("stored refresh token is empty; treating credential as absent")
		return nil
	}

	var user session.AuthUser
	if err := json.Unmarshal(profile, &user); err != nil {
		k.logger.Warn("stored profile is malformed; treating credential as absent", "error", err)
		return nil
	}
	if user.ID == "" || user.Email == "" {
		k.logger.Warn("stored profile failed validation; treating credential as absent")
		return nil
	}

	return &session.Credential{RefreshToken: string(refresh), User: user}
}

// Erase removes both records in one transaction. Erasing an empty
// keyring is not an error.
func (k *Keyring) Erase(ctx context.Context) error {
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE key IN (?, ?)", refreshTokenKey, userProfileKey); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing erase: %w", err)
	}

	k.logger.Debug("credential erased")
	return nil
}

// loadRecord reads and decrypts a single record. Returns ok=false when
// the record is missing or unreadable.
func (k *Keyring) loadRecord(ctx context.Context, key string) ([]byte, bool) {
	var nonce, sealed []byte
	err := k.db.QueryRowContext(ctx, "SELECT nonce, value FROM records WHERE key = ?", key).Scan(&nonce, &sealed)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		k.logger.Warn("failed to read credential record", "key", key, "error", err)
		return nil, false
	}

	plain, err := k.open(nonce, sealed)
	if err != nil {
		k.logger.Warn("failed to decrypt credential record", "key", key, "error", err)
		return nil, false
	}
	return plain, true
}

func (k *Keyring) seal(plaintext []byte) (nonce, sealed []byte, err error) {
	var n [24]byte
	if _, err := io.ReadFull(rand.Reader, n[:]); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	return n[:], secretbox.Seal(nil, plaintext, &n, &k.key), nil
}

func (k *Keyring) open(nonce, sealed []byte) ([]byte, error) {
	if len(nonce) != 24 {
		return nil, errors.New("invalid nonce length")
	}
	var n [24]byte
	copy(n[:], nonce)
	plain, ok := secretbox.Open(nil, sealed, &n, &k.key)
	if !ok {
		return nil, errors.New("decryption failed")
	}
	return plain, nil
}

// loadOrCreateDeviceKey reads the device key file, generating it with
// random contents on first use.
func loadOrCreateDeviceKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != deviceKeySize {
			return nil, fmt.Errorf("device key file %s has unexpected size %d", path, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading device key: %w", err)
	}

	key = make([]byte, deviceKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generating device key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("writing device key: %w", err)
	}
	return key, nil
}
