// Package policy provides authorization decisions for game session actions.
package policy

import "github.com/louisbranch/liargame/internal/game/domain"

// Actor describes the requester of an action as seen at the platform edge.
// BotOwner and GuildAdmin are resolved by the caller: the former against the
// configured owner ID, the latter against the guild's permission model.
type Actor struct {
	UserID     string
	BotOwner   bool
	GuildAdmin bool
}

// Action represents a policy decision for a session action.
type Action int

const (
	// ActionStart allows moving an open lobby into play.
	ActionStart Action = iota + 1
	// ActionSendTopic allows distributing the secret keyword.
	ActionSendTopic
	// ActionAdvanceDay allows posting a day announcement.
	ActionAdvanceDay
	// ActionDiscuss allows posting a discussion prompt.
	ActionDiscuss
	// ActionQuit allows the host to tear the session down.
	ActionQuit
	// ActionTerminate allows forced session teardown.
	ActionTerminate
)

// Can reports whether the actor may perform the action on the session.
//
// Host-only: start, topic, day announcements, discussion, quit. Forced
// termination is open to the bot owner, the host, and guild admins.
func Can(actor Actor, action Action, session domain.Session) bool {
	isHost := actor.UserID != "" && actor.UserID == session.HostID

	switch action {
	case ActionStart, ActionSendTopic, ActionAdvanceDay, ActionDiscuss, ActionQuit:
		return isHost
	case ActionTerminate:
		return actor.BotOwner || isHost || actor.GuildAdmin
	default:
		return false
	}
}
