package domain

import (
	"errors"
	"strings"
	"time"
)

// Status describes the lifecycle state of a guild's game session.
type Status int

const (
	// StatusClosed indicates no session exists for the guild.
	StatusClosed Status = iota
	// StatusOpen indicates the lobby is accepting joins.
	StatusOpen
	// StatusInGame indicates role-play is in progress.
	StatusInGame
)

// Day identifies one of the three announcement days.
type Day int

const (
	// Day1 is the first announcement day.
	Day1 Day = 1
	// Day2 is the second announcement day.
	Day2 Day = 2
	// Day3 is the third and final announcement day.
	Day3 Day = 3
)

const (
	// MaxParticipants caps the lobby roster.
	MaxParticipants = 8
	// MinParticipantsToStart is the smallest roster that can enter play.
	MinParticipantsToStart = 4
)

var (
	// ErrEmptyGuildID indicates a missing guild ID.
	ErrEmptyGuildID = errors.New("guild id is required")
	// ErrEmptyHostID indicates a missing host ID.
	ErrEmptyHostID = errors.New("host id is required")
	// ErrEmptyUserID indicates a missing user ID.
	ErrEmptyUserID = errors.New("user id is required")
	// ErrSessionAlreadyOpen indicates a non-closed session already exists.
	ErrSessionAlreadyOpen = errors.New("a session is already open for this guild")
	// ErrNoActiveSession indicates no session is open or in game.
	ErrNoActiveSession = errors.New("no active session for this guild")
	// ErrLobbyNotOpen indicates the session is not accepting joins.
	ErrLobbyNotOpen = errors.New("lobby is not open")
	// ErrGameNotStarted indicates the session has not entered play.
	ErrGameNotStarted = errors.New("game has not started")
	// ErrLobbyFull indicates the roster is at capacity.
	ErrLobbyFull = errors.New("lobby is full")
	// ErrHostCannotJoin indicates the host tried to join their own roster.
	ErrHostCannotJoin = errors.New("host cannot join their own game")
	// ErrAlreadyJoined indicates the user is already on the roster.
	ErrAlreadyJoined = errors.New("user already joined")
	// ErrRosterTooSmall indicates too few participants to start.
	ErrRosterTooSmall = errors.New("not enough participants to start")
	// ErrTopicAlreadySent indicates the secret fan-out already succeeded.
	ErrTopicAlreadySent = errors.New("topic already sent")
	// ErrTopicNotSent indicates the secret fan-out has not succeeded yet.
	ErrTopicNotSent = errors.New("topic has not been sent")
	// ErrDayAlreadyAnnounced indicates the day flag is already set.
	ErrDayAlreadyAnnounced = errors.New("day already announced")
	// ErrDayOutOfOrder indicates an earlier day flag is still unset.
	ErrDayOutOfOrder = errors.New("earlier day not announced yet")
	// ErrInvalidDay indicates a day outside 1..3.
	ErrInvalidDay = errors.New("invalid day")
)

// MessageRef identifies a single posted message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Session is the per-guild game record. The zero value (plus GuildID) is a
// valid closed session.
//
// Invariants, enforced by every transition before the record is persisted:
// the host is never on the roster, the roster never exceeds MaxParticipants,
// entering play requires MinParticipantsToStart, and day flags only move
// false to true in order.
type Session struct {
	GuildID      string
	Status       Status
	HostID       string
	Participants []string
	LobbyMessage *MessageRef // nil once the lobby message is no longer tracked
	TopicSent    bool
	Day1Done     bool
	Day2Done     bool
	Day3Done     bool
	OpenedAt     time.Time
	UpdatedAt    time.Time
}

// New returns the default closed session for a guild.
func New(guildID string) Session {
	return Session{GuildID: guildID, Status: StatusClosed}
}

// Open transitions a closed session to an open lobby owned by hostID.
func (s Session) Open(hostID string, openedAt time.Time) (Session, error) {
	hostID = strings.TrimSpace(hostID)
	if strings.TrimSpace(s.GuildID) == "" {
		return Session{}, ErrEmptyGuildID
	}
	if hostID == "" {
		return Session{}, ErrEmptyHostID
	}
	if s.Status != StatusClosed {
		return Session{}, ErrSessionAlreadyOpen
	}

	opened := New(s.GuildID)
	opened.Status = StatusOpen
	opened.HostID = hostID
	opened.Participants = []string{}
	opened.OpenedAt = openedAt.UTC()
	opened.UpdatedAt = openedAt.UTC()
	return opened, nil
}

// WithLobbyMessage records the tracked lobby status message.
func (s Session) WithLobbyMessage(ref MessageRef) Session {
	s.LobbyMessage = &ref
	return s
}

// Join appends userID to the roster.
func (s Session) Join(userID string) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, ErrEmptyUserID
	}
	if s.Status != StatusOpen {
		return Session{}, ErrLobbyNotOpen
	}
	if userID == s.HostID {
		return Session{}, ErrHostCannotJoin
	}
	if len(s.Participants) >= MaxParticipants {
		return Session{}, ErrLobbyFull
	}
	for _, existing := range s.Participants {
		if existing == userID {
			return Session{}, ErrAlreadyJoined
		}
	}

	roster := make([]string, len(s.Participants), len(s.Participants)+1)
	copy(roster, s.Participants)
	s.Participants = append(roster, userID)
	return s, nil
}

// Start transitions an open lobby into play. The lobby message reference is
// dropped because the message is deleted at start.
func (s Session) Start() (Session, error) {
	if s.Status != StatusOpen {
		return Session{}, ErrLobbyNotOpen
	}
	if len(s.Participants) < MinParticipantsToStart {
		return Session{}, ErrRosterTooSmall
	}

	s.Status = StatusInGame
	s.LobbyMessage = nil
	return s, nil
}

// MarkTopicSent records a fully successful secret fan-out.
func (s Session) MarkTopicSent() (Session, error) {
	if s.Status != StatusInGame {
		return Session{}, ErrGameNotStarted
	}
	if s.TopicSent {
		return Session{}, ErrTopicAlreadySent
	}

	s.TopicSent = true
	return s, nil
}

// AdvanceDay sets the flag for day, gated on the topic fan-out and on every
// earlier day already being announced. Flags are monotonic.
func (s Session) AdvanceDay(day Day) (Session, error) {
	if day < Day1 || day > Day3 {
		return Session{}, ErrInvalidDay
	}
	if s.Status != StatusInGame {
		return Session{}, ErrGameNotStarted
	}
	if !s.TopicSent {
		return Session{}, ErrTopicNotSent
	}
	if s.DayAnnounced(day) {
		return Session{}, ErrDayAlreadyAnnounced
	}
	for prior := Day1; prior < day; prior++ {
		if !s.DayAnnounced(prior) {
			return Session{}, ErrDayOutOfOrder
		}
	}

	switch day {
	case Day1:
		s.Day1Done = true
	case Day2:
		s.Day2Done = true
	case Day3:
		s.Day3Done = true
	}
	return s, nil
}

// DayAnnounced reports whether the flag for day is set.
func (s Session) DayAnnounced(day Day) bool {
	switch day {
	case Day1:
		return s.Day1Done
	case Day2:
		return s.Day2Done
	case Day3:
		return s.Day3Done
	default:
		return false
	}
}

// CanDiscuss reports whether a discussion prompt may be posted. Discussion
// is repeatable and sets no flag.
func (s Session) CanDiscuss() error {
	if s.Status != StatusInGame {
		return ErrGameNotStarted
	}
	if !s.TopicSent {
		return ErrTopicNotSent
	}
	return nil
}

// Reset returns the session to closed defaults, keeping only the guild ID.
func (s Session) Reset() Session {
	return New(s.GuildID)
}

// Active reports whether the session is open or in game.
func (s Session) Active() bool {
	return s.Status != StatusClosed
}
