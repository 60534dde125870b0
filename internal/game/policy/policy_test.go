package policy

import (
	"testing"

	"github.com/louisbranch/liargame/internal/game/domain"
)

func TestCanHostOnlyActions(t *testing.T) {
	session := domain.Session{GuildID: "g", HostID: "host", Status: domain.StatusInGame}

	hostOnly := []Action{ActionStart, ActionSendTopic, ActionAdvanceDay, ActionDiscuss, ActionQuit}
	for _, action := range hostOnly {
		if !Can(Actor{UserID: "host"}, action, session) {
			t.Errorf("expected host allowed for action %d", action)
		}
		if Can(Actor{UserID: "player"}, action, session) {
			t.Errorf("expected non-host denied for action %d", action)
		}
		// Admins and the bot owner get no shortcut for host-only actions.
		if Can(Actor{UserID: "admin", GuildAdmin: true}, action, session) {
			t.Errorf("expected guild admin denied for action %d", action)
		}
		if Can(Actor{UserID: "owner", BotOwner: true}, action, session) {
			t.Errorf("expected bot owner denied for action %d", action)
		}
	}
}

func TestCanTerminate(t *testing.T) {
	session := domain.Session{GuildID: "g", HostID: "host", Status: domain.StatusInGame}

	cases := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"host", Actor{UserID: "host"}, true},
		{"bot owner", Actor{UserID: "owner", BotOwner: true}, true},
		{"guild admin", Actor{UserID: "admin", GuildAdmin: true}, true},
		{"bystander", Actor{UserID: "someone"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.actor, ActionTerminate, session); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCanDeniesEmptyUserAgainstEmptyHost(t *testing.T) {
	session := domain.Session{GuildID: "g", Status: domain.StatusClosed}
	if Can(Actor{}, ActionQuit, session) {
		t.Fatal("expected empty actor denied even when host is unset")
	}
}

func TestCanDeniesUnknownAction(t *testing.T) {
	session := domain.Session{GuildID: "g", HostID: "host"}
	if Can(Actor{UserID: "host"}, Action(0), session) {
		t.Fatal("expected unknown action denied")
	}
}
