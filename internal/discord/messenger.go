package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/louisbranch/liargame/internal/game/domain"
	"github.com/louisbranch/liargame/internal/game/notify"
)

// messageAPI is the slice of the discordgo session the messengers need.
type messageAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Messenger adapts a discordgo session to the engine's messenger contracts.
type Messenger struct {
	api messageAPI
}

// NewMessenger wraps a discordgo session.
func NewMessenger(api messageAPI) *Messenger {
	return &Messenger{api: api}
}

// Post sends msg as an embed in channelID.
func (m *Messenger) Post(ctx context.Context, channelID string, msg notify.Message) (domain.MessageRef, error) {
	sent, err := m.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed(msg)},
		Components: components(msg),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("send channel message: %w", err)
	}
	return domain.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.ID}, nil
}

// Edit replaces the embed and controls of an existing message.
func (m *Messenger) Edit(ctx context.Context, ref domain.MessageRef, msg notify.Message) error {
	embeds := []*discordgo.MessageEmbed{embed(msg)}
	controls := components(msg)
	_, err := m.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ref.ChannelID,
		ID:         ref.MessageID,
		Embeds:     &embeds,
		Components: &controls,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("edit channel message: %w", err)
	}
	return nil
}

// Delete removes a message.
func (m *Messenger) Delete(ctx context.Context, ref domain.MessageRef) error {
	if err := m.api.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete channel message: %w", err)
	}
	return nil
}

// SendPrivate delivers msg to the user's DM channel. A recipient whose DMs
// reject the bot yields a notify.DeliveryError with Unreachable set.
func (m *Messenger) SendPrivate(ctx context.Context, userID string, msg notify.Message) (domain.MessageRef, error) {
	channel, err := m.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.MessageRef{}, &notify.DeliveryError{UserID: userID, Unreachable: dmsClosed(err), Err: err}
	}

	sent, err := m.api.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed(msg)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return domain.MessageRef{}, &notify.DeliveryError{UserID: userID, Unreachable: dmsClosed(err), Err: err}
	}
	return domain.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.ID}, nil
}

// dmsClosed reports whether err is Discord telling us the recipient does not
// accept DMs from the bot.
func dmsClosed(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Message == nil {
		return false
	}
	return rest.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser
}

func embed(msg notify.Message) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       msg.Color,
	}
}

var buttonLabels = map[notify.Action]string{
	notify.ActionJoin:    "Join",
	notify.ActionStart:   "Start",
	notify.ActionQuit:    "Quit",
	notify.ActionDay1:    "Day 1",
	notify.ActionDay2:    "Day 2",
	notify.ActionDay3:    "Day 3",
	notify.ActionDiscuss: "Discussion",
	notify.ActionKeyword: "Keyword",
}

var buttonStyles = map[notify.Action]discordgo.ButtonStyle{
	notify.ActionJoin:    discordgo.PrimaryButton,
	notify.ActionStart:   discordgo.SuccessButton,
	notify.ActionQuit:    discordgo.DangerButton,
	notify.ActionDay1:    discordgo.SecondaryButton,
	notify.ActionDay2:    discordgo.SecondaryButton,
	notify.ActionDay3:    discordgo.SecondaryButton,
	notify.ActionDiscuss: discordgo.PrimaryButton,
	notify.ActionKeyword: discordgo.SuccessButton,
}

func components(msg notify.Message) []discordgo.MessageComponent {
	if len(msg.Actions) == 0 {
		return nil
	}

	buttons := make([]discordgo.MessageComponent, 0, len(msg.Actions))
	for _, action := range msg.Actions {
		style, ok := buttonStyles[action]
		if !ok {
			style = discordgo.SecondaryButton
		}
		label := buttonLabels[action]
		if label == "" {
			label = string(action)
		}
		buttons = append(buttons, discordgo.Button{
			Label:    label,
			Style:    style,
			CustomID: string(action),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}
