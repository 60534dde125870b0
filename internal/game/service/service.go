// Package service implements the per-guild game session state machine. Every
// operation locks the guild, loads the current record, validates through the
// domain transitions and the authorization policy, performs its channel and
// DM side effects, and persists the result before releasing the lock.
package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/louisbranch/liargame/internal/errors"
	"github.com/louisbranch/liargame/internal/game/domain"
	"github.com/louisbranch/liargame/internal/game/notify"
	"github.com/louisbranch/liargame/internal/game/policy"
	"github.com/louisbranch/liargame/internal/game/roles"
	"github.com/louisbranch/liargame/internal/storage"
)

// SessionService coordinates game sessions for all guilds.
type SessionService struct {
	store    storage.SessionStore
	notifier *notify.Notifier
	pickLiar func(participants []string) (string, error)
	clock    func() time.Time
	locks    *guildLocks
}

// NewSessionService creates a service with a crypto-seeded liar draw and the
// wall clock.
func NewSessionService(store storage.SessionStore, notifier *notify.Notifier) (*SessionService, error) {
	assigner, err := roles.New()
	if err != nil {
		return nil, fmt.Errorf("init liar draw: %w", err)
	}
	return &SessionService{
		store:    store,
		notifier: notifier,
		pickLiar: assigner.Pick,
		clock:    time.Now,
		locks:    newGuildLocks(),
	}, nil
}

// Open starts a new lobby hosted by hostID and posts its status message in
// channelID.
func (s *SessionService) Open(ctx context.Context, guildID, channelID, hostID string) (domain.Session, error) {
	defer s.locks.acquire(guildID)()

	session, err := s.load(ctx, guildID)
	if err != nil {
		return domain.Session{}, err
	}

	opened, err := session.Open(hostID, s.clock())
	if err != nil {
		return domain.Session{}, rejection(err)
	}

	ref, err := s.notifier.PostLobby(ctx, channelID, len(opened.Participants))
	if err != nil {
		return domain.Session{}, fmt.Errorf("open session: %w", err)
	}
	opened = opened.WithLobbyMessage(ref)

	if err := s.persist(ctx, opened); err != nil {
		return domain.Session{}, err
	}
	return opened, nil
}

// Join adds userID to the lobby roster and refreshes the lobby message.
func (s *SessionService) Join(ctx context.Context, guildID, userID string) (domain.Session, error) {
	defer s.locks.acquire(guildID)()

	session, err := s.load(ctx, guildID)
	if err != nil {
		return domain.Session{}, err
	}

	joined, err := session.Join(userID)
	if err != nil {
		return domain.Session{}, rejection(err)
	}

	if err := s.persist(ctx, joined); err != nil {
		return domain.Session{}, err
	}
	s.notifier.RefreshLobby(ctx, joined)
	return joined, nil
}

// Start moves an open lobby into play, posts the game instructions, and
// removes the lobby message.
func (s *SessionService) Start(ctx context.Context, guildID, channelID string, actor policy.Actor) (domain.Session, error) {
	defer s.locks.acquire(guildID)()

	session, err := s.load(ctx, guildID)
	if err != nil {
		return domain.Session{}, err
	}

	if !policy.Can(actor, policy.ActionStart, session) {
		return domain.Session{}, apperrors.New(apperrors.CodeNotHost, errNotHost)
	}

	started, err := session.Start()
	if err != nil {
		return domain.Session{}, rejection(err)
	}

	if err := s.notifier.AnnounceStart(ctx, channelID); err != nil {
		return domain.Session{}, fmt.Errorf("start session: %w", err)
	}
	s.notifier.DeleteLobby(ctx, session)

	if err := s.persist(ctx, started); err != nil {
		return domain.Session{}, err
	}
	return started, nil
}

// SendTopic draws the liar and delivers one DM per participant, the keyword
// to citizens and the role notice to the liar. The topic flag is only set
// after every delivery succeeds; a partial fan-out is rolled back and leaves
// the session untouched so the host can retry.
func (s *SessionService) SendTopic(ctx context.Context, guildID string, actor policy.Actor, keyword string) (domain.Session, error) {
	defer s.locks.acquire(guildID)()

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return domain.Session{}, apperrors.New(apperrors.CodeEmptyKeyword, errEmptyKeyword)
	}

	session, err := s.load(ctx, guildID)
	if err != nil {
		return domain.Session{}, err
	}

	if !policy.Can(actor, policy.ActionSendTopic, session) {
		return domain.Session{}, apperrors.New(apperrors.CodeNotHost, errNotHost)
	}

	sent, err := session.MarkTopicSent()
	if err != nil {
		return domain.Session{}, rejection(err)
	}

	liarID, err := s.pickLiar(session.Participants)
	if err != nil {
		return domain.Session{}, fmt.Errorf("pick liar: %w", err)
	}

	if err := s.notifier.DistributeSecrets(ctx, session, liarID, keyword); err != nil {
		return domain.Session{}, apperrors.New(apperrors.CodeDeliveryFailed, err)
	}

	if err := s.persist(ctx, sent); err != nil {
		// DMs already went out but the flag did not stick; a retry
		// re-draws the liar.
		log.Printf("persist topic flag guild_id=%s: %v", guildID, err)
		return domain.Session{}, err
	}
	return sent, nil
}

// AdvanceDay posts the announcement for day and records its flag. Days must
// be announced in order, each exactly once, and only after the topic DMs
// went out.
func (s *SessionService) AdvanceDay(ctx context.Context, guildID, channelID string, actor policy.Actor, day domain.Day) (domain.Session, error) {
	defer s.locks.acquire(guildID)()

	session, err := s.load(ctx, guildID)
	if err != nil {
		return domain.Session{}, err
	}

	if !policy.Can(actor, policy.ActionAdvanceDay, session) {
		return domain.Session{}, apperrors.New(apperrors.CodeNotHost, errNotHost)
	}

	advanced, err := session.AdvanceDay(day)
	if err != nil {
		return domain.Session{}, rejection(err)
	}

	if err := s.notifier.AnnounceDay(ctx, channelID, day); err != nil {
		return domain.Session{}, fmt.Errorf("advance day: %w", err)
	}

	if err := s.persist(ctx, advanced); err != nil {
		return domain.Session{}, err
	}
	return advanced, nil
}

// Discuss posts the repeatable discussion prompt. No state changes.
func (s *SessionService) Discuss(ctx context.Context, guildID, channelID string, actor policy.Actor) error {
	defer s.locks.acquire(guildID)()

	session, err := s.load(ctx, guildID)
	if err != nil {
		return err
	}

	if !policy.Can(actor, policy.ActionDiscuss, session) {
		return apperrors.New(apperrors.CodeNotHost, errNotHost)
	}
	if err := session.CanDiscuss(); err != nil {
		return rejection(err)
	}

	if err := s.notifier.AnnounceDiscussion(ctx, channelID); err != nil {
		return fmt.Errorf("post discussion: %w", err)
	}
	return nil
}

// Quit lets the host abandon their own lobby before play begins, deleting
// the lobby message and resetting the session.
func (s *SessionService) Quit(ctx context.Context, guildID string, actor policy.Actor) error {
	defer s.locks.acquire(guildID)()

	session, err := s.load(ctx, guildID)
	if err != nil {
		return err
	}
	if !session.Active() {
		return apperrors.New(apperrors.CodeNoActiveSession, domain.ErrNoActiveSession)
	}
	if !policy.Can(actor, policy.ActionQuit, session) {
		return apperrors.New(apperrors.CodeNotHost, errNotHost)
	}

	s.notifier.DeleteLobby(ctx, session)
	return s.persist(ctx, session.Reset())
}

// Terminate force-closes an active session regardless of phase. Allowed for
// the bot owner, the host, and guild admins.
func (s *SessionService) Terminate(ctx context.Context, guildID string, actor policy.Actor) error {
	defer s.locks.acquire(guildID)()

	session, err := s.load(ctx, guildID)
	if err != nil {
		return err
	}
	if !session.Active() {
		return apperrors.New(apperrors.CodeNoActiveSession, domain.ErrNoActiveSession)
	}
	if !policy.Can(actor, policy.ActionTerminate, session) {
		return apperrors.New(apperrors.CodeNotAuthorized, errNotAuthorized)
	}

	s.notifier.DeleteLobby(ctx, session)
	return s.persist(ctx, session.Reset())
}

// Session returns the current record for a guild, defaulting to a closed
// session when none was ever stored.
func (s *SessionService) Session(ctx context.Context, guildID string) (domain.Session, error) {
	return s.load(ctx, guildID)
}

func (s *SessionService) load(ctx context.Context, guildID string) (domain.Session, error) {
	session, err := s.store.Get(ctx, guildID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return domain.New(guildID), nil
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session guild_id=%s: %w", guildID, err)
	}
	return session, nil
}

func (s *SessionService) persist(ctx context.Context, session domain.Session) error {
	session.UpdatedAt = s.clock().UTC()
	if err := s.store.Put(ctx, session); err != nil {
		return fmt.Errorf("persist session guild_id=%s: %w", session.GuildID, err)
	}
	return nil
}

var (
	errNotHost       = stderrors.New("caller is not the host")
	errNotAuthorized = stderrors.New("caller is not the host, a guild admin, or the bot owner")
	errEmptyKeyword  = stderrors.New("keyword is required")
)

// rejection wraps a domain transition error with its user-facing code.
func rejection(err error) error {
	return apperrors.New(rejectionCode(err), err)
}

func rejectionCode(err error) apperrors.Code {
	switch {
	case stderrors.Is(err, domain.ErrSessionAlreadyOpen):
		return apperrors.CodeSessionAlreadyOpen
	case stderrors.Is(err, domain.ErrNoActiveSession):
		return apperrors.CodeNoActiveSession
	case stderrors.Is(err, domain.ErrLobbyNotOpen):
		return apperrors.CodeLobbyNotOpen
	case stderrors.Is(err, domain.ErrGameNotStarted):
		return apperrors.CodeGameNotStarted
	case stderrors.Is(err, domain.ErrLobbyFull):
		return apperrors.CodeLobbyFull
	case stderrors.Is(err, domain.ErrHostCannotJoin):
		return apperrors.CodeHostCannotJoin
	case stderrors.Is(err, domain.ErrAlreadyJoined):
		return apperrors.CodeAlreadyJoined
	case stderrors.Is(err, domain.ErrRosterTooSmall):
		return apperrors.CodeRosterTooSmall
	case stderrors.Is(err, domain.ErrTopicAlreadySent):
		return apperrors.CodeTopicAlreadySent
	case stderrors.Is(err, domain.ErrTopicNotSent):
		return apperrors.CodeTopicNotSent
	case stderrors.Is(err, domain.ErrDayAlreadyAnnounced):
		return apperrors.CodeDayAlreadyAnnounced
	case stderrors.Is(err, domain.ErrDayOutOfOrder):
		return apperrors.CodeDayOutOfOrder
	case stderrors.Is(err, domain.ErrInvalidDay):
		return apperrors.CodeInvalidDay
	default:
		return apperrors.CodeUnknown
	}
}
