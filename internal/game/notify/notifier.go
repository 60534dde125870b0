package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/louisbranch/liargame/internal/game/domain"
)

// Notifier fans game messages out to the public channel and to participant
// DMs.
type Notifier struct {
	channel ChannelMessenger
	direct  DirectMessenger
}

// New creates a Notifier over the given messengers.
func New(channel ChannelMessenger, direct DirectMessenger) *Notifier {
	return &Notifier{channel: channel, direct: direct}
}

// PostLobby posts a fresh lobby status message and returns its reference.
func (n *Notifier) PostLobby(ctx context.Context, channelID string, participants int) (domain.MessageRef, error) {
	ref, err := n.channel.Post(ctx, channelID, LobbyMessage(participants))
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("post lobby message: %w", err)
	}
	return ref, nil
}

// RefreshLobby edits the tracked lobby message in place with the current
// roster size. The edit is best-effort: a missing or stale message is logged
// and swallowed.
func (n *Notifier) RefreshLobby(ctx context.Context, session domain.Session) {
	if session.LobbyMessage == nil {
		return
	}
	if err := n.channel.Edit(ctx, *session.LobbyMessage, LobbyMessage(len(session.Participants))); err != nil {
		log.Printf("refresh lobby message guild_id=%s message_id=%s: %v",
			session.GuildID, session.LobbyMessage.MessageID, err)
	}
}

// DeleteLobby removes the tracked lobby message. Best-effort: failures are
// logged and never surfaced, so state resets proceed regardless.
func (n *Notifier) DeleteLobby(ctx context.Context, session domain.Session) {
	if session.LobbyMessage == nil {
		return
	}
	if err := n.channel.Delete(ctx, *session.LobbyMessage); err != nil {
		log.Printf("delete lobby message guild_id=%s message_id=%s: %v",
			session.GuildID, session.LobbyMessage.MessageID, err)
	}
}

// AnnounceStart posts the public game-start instructions.
func (n *Notifier) AnnounceStart(ctx context.Context, channelID string) error {
	if _, err := n.channel.Post(ctx, channelID, GameStartMessage()); err != nil {
		return fmt.Errorf("post game start: %w", err)
	}
	return nil
}

// AnnounceDay posts the announcement for a day.
func (n *Notifier) AnnounceDay(ctx context.Context, channelID string, day domain.Day) error {
	if _, err := n.channel.Post(ctx, channelID, DayMessage(day)); err != nil {
		return fmt.Errorf("post day %d announcement: %w", day, err)
	}
	return nil
}

// AnnounceDiscussion posts the discussion prompt.
func (n *Notifier) AnnounceDiscussion(ctx context.Context, channelID string) error {
	if _, err := n.channel.Post(ctx, channelID, DiscussionMessage()); err != nil {
		return fmt.Errorf("post discussion prompt: %w", err)
	}
	return nil
}

// DistributeSecrets delivers exactly one private message per participant:
// the liar learns their role, everyone else receives the keyword. The
// fan-out is all-or-nothing: on the first failed delivery every message
// already delivered in this invocation is deleted (best-effort) and the
// failure is returned so the caller can leave the topic flag unset and
// allow a retry.
func (n *Notifier) DistributeSecrets(ctx context.Context, session domain.Session, liarID, keyword string) error {
	delivered := make([]domain.MessageRef, 0, len(session.Participants))

	for _, userID := range session.Participants {
		msg := CitizenMessage(keyword)
		if userID == liarID {
			msg = LiarMessage()
		}

		ref, err := n.direct.SendPrivate(ctx, userID, msg)
		if err != nil {
			n.rollback(ctx, session.GuildID, delivered)
			return fmt.Errorf("distribute secrets: %w", err)
		}
		delivered = append(delivered, ref)
	}

	return nil
}

// rollback deletes already delivered secret messages. Deletion failures are
// logged and not retried; residue is acceptable as long as the topic flag
// stays unset.
func (n *Notifier) rollback(ctx context.Context, guildID string, delivered []domain.MessageRef) {
	for _, ref := range delivered {
		if err := n.channel.Delete(ctx, ref); err != nil {
			log.Printf("rollback secret message guild_id=%s message_id=%s: %v",
				guildID, ref.MessageID, err)
		}
	}
}
