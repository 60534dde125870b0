package discord

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/liargame/internal/errors"
	"github.com/louisbranch/liargame/internal/game/notify"
	"github.com/louisbranch/liargame/internal/game/service"
	"github.com/louisbranch/liargame/internal/license"
)

// interactionResponder is the slice of the discordgo session the dispatcher
// replies through.
type interactionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Dispatcher routes decoded interactions to the game and license services
// and turns their results into interaction responses. All rejections are
// answered ephemerally so only the requester sees them.
type Dispatcher struct {
	sessions *service.SessionService
	licenses *license.Service
	ownerID  string
	tracer   trace.Tracer
}

// NewDispatcher creates a Dispatcher. ownerID is the Discord user ID allowed
// to mint activation codes.
func NewDispatcher(sessions *service.SessionService, licenses *license.Service, ownerID string) *Dispatcher {
	return &Dispatcher{
		sessions: sessions,
		licenses: licenses,
		ownerID:  ownerID,
		tracer:   otel.Tracer("liargame/discord"),
	}
}

// HandleInteraction is the discordgo gateway handler entry point.
func (d *Dispatcher) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	d.handle(context.Background(), s, i)
}

func (d *Dispatcher) handle(ctx context.Context, responder interactionResponder, i *discordgo.InteractionCreate) {
	op, err := decodeOperation(i, d.ownerID)
	if err != nil {
		log.Printf("decode interaction guild_id=%s: %v", i.GuildID, err)
		return
	}

	requestID := uuid.NewString()
	ctx, span := d.tracer.Start(ctx, "interaction."+op.Kind.String(), trace.WithAttributes(
		attribute.String("liargame.operation", op.Kind.String()),
		attribute.String("liargame.guild_id", op.GuildID),
		attribute.String("liargame.request_id", requestID),
	))
	defer span.End()

	response, err := d.execute(ctx, op)
	if err != nil {
		span.RecordError(err)
		code := apperrors.CodeOf(err)
		log.Printf("operation=%s guild_id=%s user_id=%s request_id=%s code=%s err=%v",
			op.Kind, op.GuildID, op.Actor.UserID, requestID, code, err)
		response = ephemeralText(apperrors.Message(code))
	} else {
		log.Printf("operation=%s guild_id=%s user_id=%s request_id=%s ok",
			op.Kind, op.GuildID, op.Actor.UserID, requestID)
	}

	if err := responder.InteractionRespond(i.Interaction, response, discordgo.WithContext(ctx)); err != nil {
		log.Printf("respond operation=%s guild_id=%s request_id=%s: %v",
			op.Kind, op.GuildID, requestID, err)
	}
}

func (d *Dispatcher) execute(ctx context.Context, op Operation) (*discordgo.InteractionResponse, error) {
	switch op.Kind {
	case KindOpen:
		if err := d.requireRegistered(ctx, op.GuildID); err != nil {
			return nil, err
		}
		if _, err := d.sessions.Open(ctx, op.GuildID, op.ChannelID, op.Actor.UserID); err != nil {
			return nil, err
		}
		return hostPanelResponse(), nil

	case KindJoin:
		if _, err := d.sessions.Join(ctx, op.GuildID, op.Actor.UserID); err != nil {
			return nil, err
		}
		return ephemeralText("You joined the game."), nil

	case KindStart:
		if _, err := d.sessions.Start(ctx, op.GuildID, op.ChannelID, op.Actor); err != nil {
			return nil, err
		}
		return ephemeralText("The game has started. Send the keyword from your Host Menu."), nil

	case KindQuit:
		if err := d.sessions.Quit(ctx, op.GuildID, op.Actor); err != nil {
			return nil, err
		}
		return ephemeralText("The lobby was closed."), nil

	case KindKeywordPrompt:
		return keywordModalResponse(), nil

	case KindSendTopic:
		if _, err := d.sessions.SendTopic(ctx, op.GuildID, op.Actor, op.Keyword); err != nil {
			return nil, err
		}
		return ephemeralText("The keyword was sent to every player."), nil

	case KindAdvanceDay:
		if _, err := d.sessions.AdvanceDay(ctx, op.GuildID, op.ChannelID, op.Actor, op.Day); err != nil {
			return nil, err
		}
		return ephemeralText(fmt.Sprintf("Day %d announced.", op.Day)), nil

	case KindDiscuss:
		if err := d.sessions.Discuss(ctx, op.GuildID, op.ChannelID, op.Actor); err != nil {
			return nil, err
		}
		return ephemeralText("Discussion prompt posted."), nil

	case KindTerminate:
		if err := d.sessions.Terminate(ctx, op.GuildID, op.Actor); err != nil {
			return nil, err
		}
		return ephemeralText("The game was terminated."), nil

	case KindRedeem:
		if !op.Actor.GuildAdmin && !op.Actor.BotOwner {
			return nil, apperrors.New(apperrors.CodeAdminOnly, errAdminOnly)
		}
		if err := d.licenses.Redeem(ctx, op.GuildID, op.Code); err != nil {
			return nil, err
		}
		return ephemeralText("This server is now registered. Have fun!"), nil

	case KindGenerateCodes:
		codes, err := d.licenses.GenerateCodes(ctx, op.Actor, op.Count)
		if err != nil {
			return nil, err
		}
		return ephemeralText(codeBlock(codes)), nil

	case KindListCodes:
		codes, err := d.licenses.ListCodes(ctx, op.Actor)
		if err != nil {
			return nil, err
		}
		if len(codes) == 0 {
			return ephemeralText("No unredeemed codes."), nil
		}
		return ephemeralText(codeBlock(codes)), nil

	case KindListGuilds:
		guilds, err := d.licenses.ListGuilds(ctx, op.Actor)
		if err != nil {
			return nil, err
		}
		if len(guilds) == 0 {
			return ephemeralText("No registered servers."), nil
		}
		return ephemeralText(codeBlock(guilds)), nil

	default:
		return nil, fmt.Errorf("%w: kind %s", errUnknownInteraction, op.Kind)
	}
}

func (d *Dispatcher) requireRegistered(ctx context.Context, guildID string) error {
	registered, err := d.licenses.Registered(ctx, guildID)
	if err != nil {
		return err
	}
	if !registered {
		return apperrors.New(apperrors.CodeGuildNotRegistered, fmt.Errorf("guild %s is not registered", guildID))
	}
	return nil
}

var errAdminOnly = stderrors.New("caller is not a guild admin")

func ephemeralText(text string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// hostPanelResponse renders the ephemeral host control panel shown to the
// lobby creator.
func hostPanelResponse() *discordgo.InteractionResponse {
	panel := notify.HostPanelMessage()
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed(panel)},
			Components: components(panel),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	}
}

func keywordModalResponse() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: keywordModalID,
			Title:    "Keyword",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    keywordInputID,
							Label:       "Keyword",
							Style:       discordgo.TextInputShort,
							Placeholder: "The secret keyword for the citizens",
							Required:    true,
						},
					},
				},
			},
		},
	}
}

func codeBlock(lines []string) string {
	return "```\n" + strings.Join(lines, "\n") + "\n```"
}
