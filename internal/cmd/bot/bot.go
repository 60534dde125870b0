// Package bot wires the Discord gateway, the game engine, and storage into
// the runnable bot process.
package bot

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/louisbranch/liargame/internal/discord"
	"github.com/louisbranch/liargame/internal/game/notify"
	"github.com/louisbranch/liargame/internal/game/service"
	"github.com/louisbranch/liargame/internal/license"
	"github.com/louisbranch/liargame/internal/platform/cmd"
	"github.com/louisbranch/liargame/internal/storage/bbolt"
)

// Config holds runtime settings for the bot process.
type Config struct {
	// Token is the Discord bot token.
	Token string `env:"LIARGAME_TOKEN"`
	// OwnerID is the Discord user ID allowed to mint activation codes.
	OwnerID string `env:"LIARGAME_OWNER_ID"`
	// StoragePath is the BoltDB file backing sessions and licenses.
	StoragePath string `env:"LIARGAME_DB_PATH" envDefault:"liargame.db"`
}

// ParseConfig resolves configuration from the environment and flags. Flags
// win over environment values.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := cmd.ParseConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	fs.StringVar(&cfg.Token, "token", cfg.Token, "Discord bot token")
	fs.StringVar(&cfg.OwnerID, "owner", cfg.OwnerID, "Discord user ID of the bot owner")
	fs.StringVar(&cfg.StoragePath, "db", cfg.StoragePath, "path to the BoltDB storage file")
	if err := cmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	if cfg.Token == "" {
		return Config{}, errors.New("a bot token is required (flag -token or LIARGAME_TOKEN)")
	}
	return cfg, nil
}

// Run connects to Discord and serves interactions until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	return cmd.RunWithTelemetry(ctx, cmd.ServiceBot, func(ctx context.Context) error {
		store, err := bbolt.Open(cfg.StoragePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close storage: %v", err)
			}
		}()

		gateway, err := discordgo.New("Bot " + cfg.Token)
		if err != nil {
			return fmt.Errorf("create discord session: %w", err)
		}
		gateway.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

		messenger := discord.NewMessenger(gateway)
		sessions, err := service.NewSessionService(store, notify.New(messenger, messenger))
		if err != nil {
			return err
		}
		licenses := license.NewService(store)
		dispatcher := discord.NewDispatcher(sessions, licenses, cfg.OwnerID)
		gateway.AddHandler(dispatcher.HandleInteraction)

		if err := gateway.Open(); err != nil {
			return fmt.Errorf("open discord gateway: %w", err)
		}
		defer func() {
			if err := gateway.Close(); err != nil {
				log.Printf("close discord gateway: %v", err)
			}
		}()

		if err := discord.RegisterCommands(gateway, gateway.State.User.ID); err != nil {
			return err
		}

		log.Printf("bot ready user_id=%s storage=%s", gateway.State.User.ID, cfg.StoragePath)
		<-ctx.Done()
		log.Printf("bot stopping")
		return nil
	})
}
