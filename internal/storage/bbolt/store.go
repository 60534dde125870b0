// Package bbolt provides a BoltDB-backed implementation of the storage
// contracts. Records are stored as JSON values so the database stays
// inspectable with standard bolt tooling.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/liargame/internal/game/domain"
	"github.com/louisbranch/liargame/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	sessionBucket = "session"
	codeBucket    = "activation_code"
	guildBucket   = "guild"
)

// Store provides a BoltDB-backed session store and guild registry.
type Store struct {
	db *bbolt.DB
}

// codeRecord is the stored value for an unredeemed activation code.
type codeRecord struct {
	CreatedAt time.Time `json:"created_at"`
}

// guildRecord is the stored value for a registered guild.
type guildRecord struct {
	RegisteredAt time.Time `json:"registered_at"`
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put persists a session record keyed by guild ID.
func (s *Store) Put(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(session.GuildID) == "" {
		return fmt.Errorf("guild id is required")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucket))
		if bucket == nil {
			return fmt.Errorf("session bucket is missing")
		}
		return bucket.Put([]byte(session.GuildID), payload)
	})
}

// Get fetches the session record for a guild.
func (s *Store) Get(ctx context.Context, guildID string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.db == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(guildID) == "" {
		return domain.Session{}, fmt.Errorf("guild id is required")
	}

	var session domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucket))
		if bucket == nil {
			return fmt.Errorf("session bucket is missing")
		}
		payload := bucket.Get([]byte(guildID))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	return session, nil
}

// PutCode stores an unredeemed activation code.
func (s *Store) PutCode(ctx context.Context, code string, createdAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("activation code is required")
	}

	payload, err := json.Marshal(codeRecord{CreatedAt: createdAt.UTC()})
	if err != nil {
		return fmt.Errorf("marshal code record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(codeBucket))
		if bucket == nil {
			return fmt.Errorf("activation code bucket is missing")
		}
		if bucket.Get([]byte(code)) != nil {
			return storage.ErrAlreadyExists
		}
		return bucket.Put([]byte(code), payload)
	})
}

// ListCodes returns every unredeemed activation code in key order.
func (s *Store) ListCodes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var codes []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(codeBucket))
		if bucket == nil {
			return fmt.Errorf("activation code bucket is missing")
		}
		return bucket.ForEach(func(key, _ []byte) error {
			codes = append(codes, string(key))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// RedeemCode consumes an activation code and registers the guild in one
// transaction, so a code can never be spent twice.
func (s *Store) RedeemCode(ctx context.Context, code, guildID string, redeemedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("activation code is required")
	}
	if strings.TrimSpace(guildID) == "" {
		return fmt.Errorf("guild id is required")
	}

	payload, err := json.Marshal(guildRecord{RegisteredAt: redeemedAt.UTC()})
	if err != nil {
		return fmt.Errorf("marshal guild record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		codes := tx.Bucket([]byte(codeBucket))
		if codes == nil {
			return fmt.Errorf("activation code bucket is missing")
		}
		guilds := tx.Bucket([]byte(guildBucket))
		if guilds == nil {
			return fmt.Errorf("guild bucket is missing")
		}

		if guilds.Get([]byte(guildID)) != nil {
			return storage.ErrAlreadyExists
		}
		if codes.Get([]byte(code)) == nil {
			return storage.ErrNotFound
		}
		if err := codes.Delete([]byte(code)); err != nil {
			return fmt.Errorf("delete activation code: %w", err)
		}
		return guilds.Put([]byte(guildID), payload)
	})
}

// IsRegistered reports whether the guild has redeemed an activation code.
func (s *Store) IsRegistered(ctx context.Context, guildID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.db == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(guildID) == "" {
		return false, fmt.Errorf("guild id is required")
	}

	var registered bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(guildBucket))
		if bucket == nil {
			return fmt.Errorf("guild bucket is missing")
		}
		registered = bucket.Get([]byte(guildID)) != nil
		return nil
	})
	if err != nil {
		return false, err
	}

	return registered, nil
}

// ListGuilds returns every registered guild ID in key order.
func (s *Store) ListGuilds(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var guilds []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(guildBucket))
		if bucket == nil {
			return fmt.Errorf("guild bucket is missing")
		}
		return bucket.ForEach(func(key, _ []byte) error {
			guilds = append(guilds, string(key))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return guilds, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{sessionBucket, codeBucket, guildBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
