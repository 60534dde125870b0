package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Slash command and option names.
const (
	commandGame    = "game"
	commandEndGame = "endgame"
	commandLicense = "license"

	subcommandRedeem   = "redeem"
	subcommandGenerate = "generate"
	subcommandCodes    = "codes"
	subcommandGuilds   = "guilds"

	optionCode  = "code"
	optionCount = "count"
)

// Commands returns the application command set the bot registers on startup.
func Commands() []*discordgo.ApplicationCommand {
	minCount := float64(1)

	return []*discordgo.ApplicationCommand{
		{
			Name:        commandGame,
			Description: "Open a Liar Game lobby in this channel",
		},
		{
			Name:        commandEndGame,
			Description: "Force-close the current Liar Game session",
		},
		{
			Name:        commandLicense,
			Description: "Manage Liar Game activation for this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandRedeem,
					Description: "Redeem an activation code for this server",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        optionCode,
							Description: "Activation code",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandGenerate,
					Description: "Generate activation codes (bot owner only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        optionCount,
							Description: "How many codes to generate",
							Required:    true,
							MinValue:    &minCount,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandCodes,
					Description: "List unredeemed activation codes (bot owner only)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandGuilds,
					Description: "List registered servers (bot owner only)",
				},
			},
		},
	}
}

// RegisterCommands upserts the bot's global application commands.
func RegisterCommands(session *discordgo.Session, applicationID string) error {
	for _, command := range Commands() {
		if _, err := session.ApplicationCommandCreate(applicationID, "", command); err != nil {
			return fmt.Errorf("register command %s: %w", command.Name, err)
		}
	}
	return nil
}
