// Package license gates guild access behind single-use activation codes.
// The bot owner mints codes out of band; a guild admin redeems one to
// register their guild, and only registered guilds can run games.
package license

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/liargame/internal/errors"
	"github.com/louisbranch/liargame/internal/game/policy"
	"github.com/louisbranch/liargame/internal/storage"
)

// maxCodeCollisions bounds the retries when a generated code is already
// stored. The code space makes even one collision vanishingly unlikely.
const maxCodeCollisions = 5

// Service manages activation codes and guild registration.
type Service struct {
	registry storage.GuildRegistry
	newCode  func() (string, error)
	clock    func() time.Time
}

// NewService creates a Service with the default code generator and the wall
// clock.
func NewService(registry storage.GuildRegistry) *Service {
	return &Service{registry: registry, newCode: NewCode, clock: time.Now}
}

// GenerateCodes mints count fresh activation codes. Owner only.
func (s *Service) GenerateCodes(ctx context.Context, actor policy.Actor, count int) ([]string, error) {
	if !actor.BotOwner {
		return nil, apperrors.New(apperrors.CodeOwnerOnly, errOwnerOnly)
	}
	if count < 1 {
		return nil, apperrors.New(apperrors.CodeInvalidCodeCount, fmt.Errorf("invalid code count %d", count))
	}

	codes := make([]string, 0, count)
	for len(codes) < count {
		code, err := s.storeFreshCode(ctx)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func (s *Service) storeFreshCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeCollisions; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("generate activation code: %w", err)
		}
		err = s.registry.PutCode(ctx, code, s.clock().UTC())
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("store activation code: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("gave up after %d code collisions", maxCodeCollisions)
}

// Redeem consumes an activation code and registers the guild.
func (s *Service) Redeem(ctx context.Context, guildID, code string) error {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return apperrors.New(apperrors.CodeInvalidActivationCode, fmt.Errorf("malformed code %q", code))
	}

	err := s.registry.RedeemCode(ctx, code, guildID, s.clock().UTC())
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return apperrors.New(apperrors.CodeInvalidActivationCode, err)
	case stderrors.Is(err, storage.ErrAlreadyExists):
		return apperrors.New(apperrors.CodeGuildAlreadyRegistered, err)
	case err != nil:
		return fmt.Errorf("redeem activation code: %w", err)
	}
	return nil
}

// ListCodes returns every unredeemed activation code. Owner only.
func (s *Service) ListCodes(ctx context.Context, actor policy.Actor) ([]string, error) {
	if !actor.BotOwner {
		return nil, apperrors.New(apperrors.CodeOwnerOnly, errOwnerOnly)
	}
	codes, err := s.registry.ListCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activation codes: %w", err)
	}
	return codes, nil
}

// ListGuilds returns every registered guild ID. Owner only.
func (s *Service) ListGuilds(ctx context.Context, actor policy.Actor) ([]string, error) {
	if !actor.BotOwner {
		return nil, apperrors.New(apperrors.CodeOwnerOnly, errOwnerOnly)
	}
	guilds, err := s.registry.ListGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registered guilds: %w", err)
	}
	return guilds, nil
}

// Registered reports whether a guild has redeemed an activation code.
func (s *Service) Registered(ctx context.Context, guildID string) (bool, error) {
	ok, err := s.registry.IsRegistered(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("check guild registration: %w", err)
	}
	return ok, nil
}

var errOwnerOnly = stderrors.New("caller is not the bot owner")
