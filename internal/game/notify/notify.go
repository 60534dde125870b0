// Package notify renders and delivers the bot's game messages: the public
// lobby status message, game announcements, and the per-participant secret
// fan-out. Transport is abstracted behind messenger interfaces so the engine
// stays free of platform types.
package notify

import (
	"context"
	"fmt"

	"github.com/louisbranch/liargame/internal/game/domain"
)

// Action labels an interactive control attached to a message. The platform
// adapter maps each action back to a named operation.
type Action string

const (
	ActionJoin    Action = "join"
	ActionStart   Action = "start"
	ActionQuit    Action = "quit"
	ActionDay1    Action = "day1"
	ActionDay2    Action = "day2"
	ActionDay3    Action = "day3"
	ActionDiscuss Action = "discuss"
	ActionKeyword Action = "keyword"
)

// Message colors, carried through to platform embeds.
const (
	colorNeutral = 0x000000
	colorLiar    = 0xFF0000
	colorCitizen = 0x14B724
)

// Message is platform-neutral message content.
type Message struct {
	Title   string
	Body    string
	Color   int
	Actions []Action
}

// ChannelMessenger posts, edits, and deletes messages in a public channel.
type ChannelMessenger interface {
	Post(ctx context.Context, channelID string, msg Message) (domain.MessageRef, error)
	Edit(ctx context.Context, ref domain.MessageRef, msg Message) error
	Delete(ctx context.Context, ref domain.MessageRef) error
}

// DirectMessenger delivers a private message to a single user.
//
// Implementations must return a *DeliveryError with Unreachable set when the
// recipient's private channel refuses delivery, and one without it for
// transport-level failures; the two are logged differently.
type DirectMessenger interface {
	SendPrivate(ctx context.Context, userID string, msg Message) (domain.MessageRef, error)
}

// DeliveryError describes a failed private delivery.
type DeliveryError struct {
	UserID      string
	Unreachable bool
	Err         error
}

// Error formats the failure with its recipient.
func (e *DeliveryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Unreachable {
		return fmt.Sprintf("recipient %s unreachable: %v", e.UserID, e.Err)
	}
	return fmt.Sprintf("deliver to %s: %v", e.UserID, e.Err)
}

// Unwrap exposes the transport cause.
func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LobbyMessage renders the public lobby status for the current roster size.
func LobbyMessage(participants int) Message {
	return Message{
		Title:   "Liar Game",
		Body:    fmt.Sprintf("Players: %d/%d", participants, domain.MaxParticipants),
		Color:   colorNeutral,
		Actions: []Action{ActionJoin, ActionStart, ActionQuit},
	}
}

// HostPanelMessage renders the host's private control panel.
func HostPanelMessage() Message {
	return Message{
		Title:   "Host Menu",
		Body:    "You are the **host**. Run the game from here!",
		Color:   colorNeutral,
		Actions: []Action{ActionDay1, ActionDay2, ActionDay3, ActionDiscuss, ActionKeyword},
	}
}

// GameStartMessage renders the public instructions posted when play begins.
func GameStartMessage() Message {
	return Message{
		Title: "The Liar Game has started!",
		Body: "> Everyone except one **liar** receives the secret **keyword** by DM.\n" +
			"> The **liar** is chosen at random and is told only that they are the liar.\n" +
			"> Each day, players take turns describing the keyword in a single sentence, without giving it away.\n" +
			"> The **liar** bluffs and describes it as if they knew it.\n" +
			"> After each day's descriptions the group **discusses** who the liar might be.\n" +
			"> After day 3, vote in the channel to catch the **liar**.\n" +
			"> If the accused is the liar, the liar gets one guess at the keyword: a correct guess wins the game for the liar, a wrong one for the citizens.\n" +
			"> If the accused is a citizen, the liar wins.\n\n" +
			"**Waiting for the host...**",
		Color: colorNeutral,
	}
}

// DayMessage renders the announcement for a given day.
func DayMessage(day domain.Day) Message {
	return Message{
		Title: fmt.Sprintf("Day %d", day),
		Body:  "Everyone, take turns describing the keyword.",
		Color: colorNeutral,
	}
}

// DiscussionMessage renders the repeatable discussion prompt.
func DiscussionMessage() Message {
	return Message{
		Title: "Discussion",
		Body:  "Discuss who you think the liar is.",
		Color: colorCitizen,
	}
}

// LiarMessage renders the secret role notice sent to the liar. It carries no
// keyword.
func LiarMessage() Message {
	return Message{
		Title: "Liar",
		Body:  "You are the **liar**. Fool the citizens and win!",
		Color: colorLiar,
	}
}

// CitizenMessage renders the secret keyword notice sent to everyone else.
func CitizenMessage(keyword string) Message {
	return Message{
		Title: "Citizen",
		Body:  fmt.Sprintf("You are a **citizen**. The keyword is **%s**.", keyword),
		Color: colorCitizen,
	}
}
