// Package discord binds the game engine to the Discord gateway: slash
// commands, message component buttons, and modals in; embeds and DMs out.
package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/louisbranch/liargame/internal/game/domain"
	"github.com/louisbranch/liargame/internal/game/notify"
	"github.com/louisbranch/liargame/internal/game/policy"
)

// Kind tags a decoded interaction with the engine operation it requests.
type Kind int

const (
	// KindOpen opens a lobby.
	KindOpen Kind = iota + 1
	// KindJoin joins the lobby roster.
	KindJoin
	// KindStart moves the lobby into play.
	KindStart
	// KindQuit lets the host abandon the lobby.
	KindQuit
	// KindKeywordPrompt opens the keyword entry modal.
	KindKeywordPrompt
	// KindSendTopic distributes the keyword DMs.
	KindSendTopic
	// KindAdvanceDay posts a day announcement.
	KindAdvanceDay
	// KindDiscuss posts the discussion prompt.
	KindDiscuss
	// KindTerminate force-closes the session.
	KindTerminate
	// KindRedeem redeems an activation code for the guild.
	KindRedeem
	// KindGenerateCodes mints activation codes.
	KindGenerateCodes
	// KindListCodes lists unredeemed activation codes.
	KindListCodes
	// KindListGuilds lists registered guilds.
	KindListGuilds
)

var kindNames = map[Kind]string{
	KindOpen:          "open",
	KindJoin:          "join",
	KindStart:         "start",
	KindQuit:          "quit",
	KindKeywordPrompt: "keyword_prompt",
	KindSendTopic:     "send_topic",
	KindAdvanceDay:    "advance_day",
	KindDiscuss:       "discuss",
	KindTerminate:     "terminate",
	KindRedeem:        "redeem",
	KindGenerateCodes: "generate_codes",
	KindListCodes:     "list_codes",
	KindListGuilds:    "list_guilds",
}

// String returns the wire-stable name of the kind, used in traces and logs.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Operation is one decoded interaction, carrying only the fields its kind
// uses.
type Operation struct {
	Kind      Kind
	GuildID   string
	ChannelID string
	Actor     policy.Actor
	Keyword   string
	Day       domain.Day
	Code      string
	Count     int
}

// Custom IDs for the keyword modal flow.
const (
	keywordModalID = "keyword_modal"
	keywordInputID = "keyword_input"
)

// errUnknownInteraction indicates an interaction this bot does not handle.
var errUnknownInteraction = errors.New("unknown interaction")

// decodeOperation maps an incoming interaction to an Operation. ownerID is
// the configured bot owner used to resolve the actor.
func decodeOperation(i *discordgo.InteractionCreate, ownerID string) (Operation, error) {
	op := Operation{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Actor:     actorFrom(i, ownerID),
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return decodeCommand(op, i.ApplicationCommandData())
	case discordgo.InteractionMessageComponent:
		return decodeComponent(op, i.MessageComponentData())
	case discordgo.InteractionModalSubmit:
		return decodeModal(op, i.ModalSubmitData())
	default:
		return Operation{}, fmt.Errorf("%w: type %d", errUnknownInteraction, i.Type)
	}
}

func decodeCommand(op Operation, data discordgo.ApplicationCommandInteractionData) (Operation, error) {
	switch data.Name {
	case commandGame:
		op.Kind = KindOpen
		return op, nil
	case commandEndGame:
		op.Kind = KindTerminate
		return op, nil
	case commandLicense:
		return decodeLicenseCommand(op, data)
	default:
		return Operation{}, fmt.Errorf("%w: command %q", errUnknownInteraction, data.Name)
	}
}

func decodeLicenseCommand(op Operation, data discordgo.ApplicationCommandInteractionData) (Operation, error) {
	if len(data.Options) == 0 {
		return Operation{}, fmt.Errorf("%w: license command without subcommand", errUnknownInteraction)
	}

	sub := data.Options[0]
	switch sub.Name {
	case subcommandRedeem:
		op.Kind = KindRedeem
		for _, opt := range sub.Options {
			if opt.Name == optionCode {
				op.Code = opt.StringValue()
			}
		}
		return op, nil
	case subcommandGenerate:
		op.Kind = KindGenerateCodes
		op.Count = 1
		for _, opt := range sub.Options {
			if opt.Name == optionCount {
				op.Count = int(opt.IntValue())
			}
		}
		return op, nil
	case subcommandCodes:
		op.Kind = KindListCodes
		return op, nil
	case subcommandGuilds:
		op.Kind = KindListGuilds
		return op, nil
	default:
		return Operation{}, fmt.Errorf("%w: license subcommand %q", errUnknownInteraction, sub.Name)
	}
}

func decodeComponent(op Operation, data discordgo.MessageComponentInteractionData) (Operation, error) {
	switch notify.Action(data.CustomID) {
	case notify.ActionJoin:
		op.Kind = KindJoin
	case notify.ActionStart:
		op.Kind = KindStart
	case notify.ActionQuit:
		op.Kind = KindQuit
	case notify.ActionKeyword:
		op.Kind = KindKeywordPrompt
	case notify.ActionDay1:
		op.Kind = KindAdvanceDay
		op.Day = domain.Day1
	case notify.ActionDay2:
		op.Kind = KindAdvanceDay
		op.Day = domain.Day2
	case notify.ActionDay3:
		op.Kind = KindAdvanceDay
		op.Day = domain.Day3
	case notify.ActionDiscuss:
		op.Kind = KindDiscuss
	default:
		return Operation{}, fmt.Errorf("%w: component %q", errUnknownInteraction, data.CustomID)
	}
	return op, nil
}

func decodeModal(op Operation, data discordgo.ModalSubmitInteractionData) (Operation, error) {
	if data.CustomID != keywordModalID {
		return Operation{}, fmt.Errorf("%w: modal %q", errUnknownInteraction, data.CustomID)
	}

	op.Kind = KindSendTopic
	op.Keyword = modalInputValue(data, keywordInputID)
	return op, nil
}

func modalInputValue(data discordgo.ModalSubmitInteractionData, inputID string) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			input, ok := component.(*discordgo.TextInput)
			if ok && input.CustomID == inputID {
				return input.Value
			}
		}
	}
	return ""
}

// actorFrom resolves the requesting user and their privileges. Member is set
// for guild interactions and carries the resolved permission set.
func actorFrom(i *discordgo.InteractionCreate, ownerID string) policy.Actor {
	var actor policy.Actor
	switch {
	case i.Member != nil && i.Member.User != nil:
		actor.UserID = i.Member.User.ID
		actor.GuildAdmin = i.Member.Permissions&discordgo.PermissionAdministrator != 0
	case i.User != nil:
		actor.UserID = i.User.ID
	}
	actor.BotOwner = ownerID != "" && actor.UserID == ownerID
	return actor
}
