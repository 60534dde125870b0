// Package storage defines the persistence contracts for the bot.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/liargame/internal/game/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a record with the same key is already stored.
var ErrAlreadyExists = errors.New("record already exists")

// SessionStore persists one game session record per guild. The contract is
// coarse: whole-record reads and unconditional whole-record writes. Callers
// own read-modify-write atomicity.
type SessionStore interface {
	Put(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, guildID string) (domain.Session, error)
}

// GuildRegistry persists activation codes and the set of registered guilds.
type GuildRegistry interface {
	// PutCode stores an unredeemed activation code. Returns ErrAlreadyExists
	// when the code is already stored.
	PutCode(ctx context.Context, code string, createdAt time.Time) error
	// ListCodes returns every unredeemed activation code.
	ListCodes(ctx context.Context) ([]string, error)
	// RedeemCode atomically consumes a code and registers the guild. Returns
	// ErrNotFound for unknown codes and ErrAlreadyExists when the guild is
	// already registered.
	RedeemCode(ctx context.Context, code, guildID string, redeemedAt time.Time) error
	// IsRegistered reports whether the guild has redeemed a code.
	IsRegistered(ctx context.Context, guildID string) (bool, error)
	// ListGuilds returns every registered guild ID.
	ListGuilds(ctx context.Context) ([]string, error)
}
