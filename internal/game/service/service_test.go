package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/liargame/internal/errors"
	"github.com/louisbranch/liargame/internal/game/domain"
	"github.com/louisbranch/liargame/internal/game/notify"
	"github.com/louisbranch/liargame/internal/game/policy"
	"github.com/louisbranch/liargame/internal/storage"
)

type fakeStore struct {
	lock     sync.Mutex
	sessions map[string]domain.Session
	putErr   error
	getErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]domain.Session)}
}

func (f *fakeStore) Put(ctx context.Context, session domain.Session) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.sessions[session.GuildID] = session
	return nil
}

func (f *fakeStore) Get(ctx context.Context, guildID string) (domain.Session, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.getErr != nil {
		return domain.Session{}, f.getErr
	}
	session, ok := f.sessions[guildID]
	if !ok {
		return domain.Session{}, storage.ErrNotFound
	}
	return session, nil
}

type postedMessage struct {
	ChannelID string
	Msg       notify.Message
}

type fakeChannel struct {
	lock    sync.Mutex
	posts   []postedMessage
	edits   []domain.MessageRef
	deleted []domain.MessageRef
	postErr error
	nextID  int
}

func (f *fakeChannel) Post(ctx context.Context, channelID string, msg notify.Message) (domain.MessageRef, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.postErr != nil {
		return domain.MessageRef{}, f.postErr
	}
	f.nextID++
	f.posts = append(f.posts, postedMessage{ChannelID: channelID, Msg: msg})
	return domain.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("msg-%d", f.nextID)}, nil
}

func (f *fakeChannel) Edit(ctx context.Context, ref domain.MessageRef, msg notify.Message) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.edits = append(f.edits, ref)
	return nil
}

func (f *fakeChannel) Delete(ctx context.Context, ref domain.MessageRef) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

type sentDM struct {
	UserID string
	Msg    notify.Message
}

type fakeDirect struct {
	lock    sync.Mutex
	sent    []sentDM
	failFor map[string]error
	nextID  int
}

func (f *fakeDirect) SendPrivate(ctx context.Context, userID string, msg notify.Message) (domain.MessageRef, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err, ok := f.failFor[userID]; ok {
		return domain.MessageRef{}, &notify.DeliveryError{UserID: userID, Unreachable: true, Err: err}
	}
	f.nextID++
	f.sent = append(f.sent, sentDM{UserID: userID, Msg: msg})
	return domain.MessageRef{ChannelID: "dm-" + userID, MessageID: fmt.Sprintf("dm-%d", f.nextID)}, nil
}

func newTestService(store *fakeStore, channel *fakeChannel, direct *fakeDirect) *SessionService {
	return &SessionService{
		store:    store,
		notifier: notify.New(channel, direct),
		pickLiar: func(participants []string) (string, error) {
			return participants[0], nil
		},
		clock: func() time.Time {
			return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
		},
		locks: newGuildLocks(),
	}
}

func hostActor() policy.Actor  { return policy.Actor{UserID: "host"} }
func adminActor() policy.Actor { return policy.Actor{UserID: "admin", GuildAdmin: true} }
func ownerActor() policy.Actor { return policy.Actor{UserID: "owner", BotOwner: true} }

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection with code %s, got nil", want)
	}
	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("expected code %s, got %s (%v)", want, got, err)
	}
}

// openLobby drives a fresh guild to an open lobby with n participants.
func openLobby(t *testing.T, svc *SessionService, guildID string, n int) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Open(ctx, guildID, "chan", "host"); err != nil {
		t.Fatalf("open lobby: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := svc.Join(ctx, guildID, fmt.Sprintf("player-%d", i)); err != nil {
			t.Fatalf("join player-%d: %v", i, err)
		}
	}
}

// startGame drives a fresh guild through lobby and into play with n
// participants.
func startGame(t *testing.T, svc *SessionService, guildID string, n int) {
	t.Helper()
	openLobby(t, svc, guildID, n)
	if _, err := svc.Start(context.Background(), guildID, "chan", hostActor()); err != nil {
		t.Fatalf("start game: %v", err)
	}
}

func TestOpen(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{}
	svc := newTestService(store, channel, &fakeDirect{})
	ctx := context.Background()

	session, err := svc.Open(ctx, "guild", "chan", "host")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Status != domain.StatusOpen {
		t.Fatalf("expected open status, got %d", session.Status)
	}
	if session.HostID != "host" {
		t.Fatalf("expected host, got %q", session.HostID)
	}
	if session.LobbyMessage == nil || session.LobbyMessage.ChannelID != "chan" {
		t.Fatalf("expected tracked lobby message, got %+v", session.LobbyMessage)
	}
	if len(channel.posts) != 1 {
		t.Fatalf("expected 1 lobby post, got %d", len(channel.posts))
	}

	stored, err := store.Get(ctx, "guild")
	if err != nil {
		t.Fatalf("get stored session: %v", err)
	}
	if stored.Status != domain.StatusOpen {
		t.Fatalf("expected persisted open session, got %d", stored.Status)
	}
}

func TestOpenRejectsSecondSession(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})
	ctx := context.Background()

	if _, err := svc.Open(ctx, "guild", "chan", "host"); err != nil {
		t.Fatalf("first open: %v", err)
	}
	_, err := svc.Open(ctx, "guild", "chan", "other")
	assertCode(t, err, apperrors.CodeSessionAlreadyOpen)
}

func TestOpenLobbyPostFailure(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{postErr: errors.New("channel gone")}
	svc := newTestService(store, channel, &fakeDirect{})

	if _, err := svc.Open(context.Background(), "guild", "chan", "host"); err == nil {
		t.Fatal("expected error when lobby post fails")
	}
	if len(store.sessions) != 0 {
		t.Fatal("session must not be persisted when the lobby post fails")
	}
}

func TestJoin(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{}
	svc := newTestService(store, channel, &fakeDirect{})
	ctx := context.Background()
	openLobby(t, svc, "guild", 0)

	session, err := svc.Join(ctx, "guild", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(session.Participants) != 1 || session.Participants[0] != "alice" {
		t.Fatalf("expected roster [alice], got %v", session.Participants)
	}
	if len(channel.edits) != 1 {
		t.Fatalf("expected 1 lobby refresh, got %d", len(channel.edits))
	}
}

func TestJoinRejections(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})
	ctx := context.Background()
	openLobby(t, svc, "guild", 0)

	_, err := svc.Join(ctx, "guild", "host")
	assertCode(t, err, apperrors.CodeHostCannotJoin)

	if _, err := svc.Join(ctx, "guild", "alice"); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	_, err = svc.Join(ctx, "guild", "alice")
	assertCode(t, err, apperrors.CodeAlreadyJoined)

	_, err = svc.Join(ctx, "other-guild", "alice")
	assertCode(t, err, apperrors.CodeLobbyNotOpen)
}

func TestJoinFullLobby(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})
	openLobby(t, svc, "guild", domain.MaxParticipants)

	_, err := svc.Join(context.Background(), "guild", "latecomer")
	assertCode(t, err, apperrors.CodeLobbyFull)
}

func TestConcurrentJoins(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})
	ctx := context.Background()
	openLobby(t, svc, "guild", 0)

	const joiners = 12
	var wg sync.WaitGroup
	results := make([]error, joiners)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Join(ctx, "guild", fmt.Sprintf("player-%d", i))
		}(i)
	}
	wg.Wait()

	var ok, full int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case apperrors.CodeOf(err) == apperrors.CodeLobbyFull:
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if ok != domain.MaxParticipants {
		t.Fatalf("expected %d successful joins, got %d", domain.MaxParticipants, ok)
	}
	if full != joiners-domain.MaxParticipants {
		t.Fatalf("expected %d full rejections, got %d", joiners-domain.MaxParticipants, full)
	}

	session, err := svc.Session(ctx, "guild")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	seen := make(map[string]bool)
	for _, id := range session.Participants {
		if seen[id] {
			t.Fatalf("duplicate participant %s", id)
		}
		seen[id] = true
	}
	if len(session.Participants) != domain.MaxParticipants {
		t.Fatalf("expected roster of %d, got %d", domain.MaxParticipants, len(session.Participants))
	}
}

func TestStart(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{}
	svc := newTestService(store, channel, &fakeDirect{})
	openLobby(t, svc, "guild", 4)

	session, err := svc.Start(context.Background(), "guild", "chan", hostActor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Status != domain.StatusInGame {
		t.Fatalf("expected in-game status, got %d", session.Status)
	}
	if session.LobbyMessage != nil {
		t.Fatal("lobby message reference must be dropped on start")
	}
	if len(channel.deleted) != 1 {
		t.Fatalf("expected lobby message deletion, got %d", len(channel.deleted))
	}

	last := channel.posts[len(channel.posts)-1]
	if last.Msg.Title != notify.GameStartMessage().Title {
		t.Fatalf("expected game start instructions, got %q", last.Msg.Title)
	}
}

func TestStartRejections(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})
	ctx := context.Background()
	openLobby(t, svc, "guild", 3)

	_, err := svc.Start(ctx, "guild", "chan", policy.Actor{UserID: "player-0"})
	assertCode(t, err, apperrors.CodeNotHost)

	_, err = svc.Start(ctx, "guild", "chan", adminActor())
	assertCode(t, err, apperrors.CodeNotHost)

	_, err = svc.Start(ctx, "guild", "chan", hostActor())
	assertCode(t, err, apperrors.CodeRosterTooSmall)

	_, err = svc.Start(ctx, "no-session", "chan", hostActor())
	assertCode(t, err, apperrors.CodeNotHost)
}

func TestSendTopic(t *testing.T) {
	store := newFakeStore()
	direct := &fakeDirect{}
	svc := newTestService(store, &fakeChannel{}, direct)
	ctx := context.Background()
	startGame(t, svc, "guild", 4)

	session, err := svc.SendTopic(ctx, "guild", hostActor(), "pineapple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.TopicSent {
		t.Fatal("topic flag must be set after a full fan-out")
	}
	if len(direct.sent) != 4 {
		t.Fatalf("expected 4 DMs, got %d", len(direct.sent))
	}

	var liars, citizens int
	for _, dm := range direct.sent {
		switch dm.Msg.Title {
		case notify.LiarMessage().Title:
			liars++
			if dm.UserID != "player-0" {
				t.Fatalf("expected drawn liar player-0, got %s", dm.UserID)
			}
		case notify.CitizenMessage("pineapple").Title:
			citizens++
		default:
			t.Fatalf("unexpected DM title %q", dm.Msg.Title)
		}
	}
	if liars != 1 || citizens != 3 {
		t.Fatalf("expected 1 liar and 3 citizen notices, got %d and %d", liars, citizens)
	}
}

func TestSendTopicRollsBackOnDeliveryFailure(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{}
	direct := &fakeDirect{failFor: map[string]error{"player-2": errors.New("dms disabled")}}
	svc := newTestService(store, channel, direct)
	ctx := context.Background()
	startGame(t, svc, "guild", 4)

	_, err := svc.SendTopic(ctx, "guild", hostActor(), "pineapple")
	assertCode(t, err, apperrors.CodeDeliveryFailed)

	session, err := svc.Session(ctx, "guild")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.TopicSent {
		t.Fatal("topic flag must stay unset after a failed fan-out")
	}
	// player-0 and player-1 were delivered before the failure and must be
	// rolled back.
	if len(channel.deleted) != 2 {
		t.Fatalf("expected 2 rolled-back messages, got %d", len(channel.deleted))
	}

	// Retry after the recipient fixes their DMs, with a fresh draw.
	svc.pickLiar = func(participants []string) (string, error) {
		return participants[1], nil
	}
	delete(direct.failFor, "player-2")
	session, err = svc.SendTopic(ctx, "guild", hostActor(), "pineapple")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !session.TopicSent {
		t.Fatal("topic flag must be set after the retry")
	}
	for _, dm := range direct.sent {
		if dm.Msg.Title == notify.LiarMessage().Title && dm.UserID != "player-1" {
			t.Fatalf("expected re-drawn liar player-1, got %s", dm.UserID)
		}
	}
}

func TestSendTopicRejections(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})
	ctx := context.Background()

	_, err := svc.SendTopic(ctx, "guild", hostActor(), "  ")
	assertCode(t, err, apperrors.CodeEmptyKeyword)

	openLobby(t, svc, "guild", 4)
	_, err = svc.SendTopic(ctx, "guild", hostActor(), "pineapple")
	assertCode(t, err, apperrors.CodeGameNotStarted)

	startGame(t, svc, "guild-2", 4)
	_, err = svc.SendTopic(ctx, "guild-2", policy.Actor{UserID: "player-0"}, "pineapple")
	assertCode(t, err, apperrors.CodeNotHost)

	if _, err := svc.SendTopic(ctx, "guild-2", hostActor(), "pineapple"); err != nil {
		t.Fatalf("send topic: %v", err)
	}
	_, err = svc.SendTopic(ctx, "guild-2", hostActor(), "pineapple")
	assertCode(t, err, apperrors.CodeTopicAlreadySent)
}

func TestAdvanceDaySequence(t *testing.T) {
	channel := &fakeChannel{}
	svc := newTestService(newFakeStore(), channel, &fakeDirect{})
	ctx := context.Background()
	startGame(t, svc, "guild", 4)

	_, err := svc.AdvanceDay(ctx, "guild", "chan", hostActor(), domain.Day1)
	assertCode(t, err, apperrors.CodeTopicNotSent)

	if _, err := svc.SendTopic(ctx, "guild", hostActor(), "pineapple"); err != nil {
		t.Fatalf("send topic: %v", err)
	}

	_, err = svc.AdvanceDay(ctx, "guild", "chan", hostActor(), domain.Day2)
	assertCode(t, err, apperrors.CodeDayOutOfOrder)

	for _, day := range []domain.Day{domain.Day1, domain.Day2, domain.Day3} {
		session, err := svc.AdvanceDay(ctx, "guild", "chan", hostActor(), day)
		if err != nil {
			t.Fatalf("advance day %d: %v", day, err)
		}
		if !session.DayAnnounced(day) {
			t.Fatalf("day %d flag must be set", day)
		}
	}

	_, err = svc.AdvanceDay(ctx, "guild", "chan", hostActor(), domain.Day3)
	assertCode(t, err, apperrors.CodeDayAlreadyAnnounced)

	_, err = svc.AdvanceDay(ctx, "guild", "chan", hostActor(), domain.Day(4))
	assertCode(t, err, apperrors.CodeInvalidDay)

	last := channel.posts[len(channel.posts)-1]
	if last.Msg.Title != "Day 3" {
		t.Fatalf("expected day 3 announcement last, got %q", last.Msg.Title)
	}
}

func TestDiscussIsRepeatable(t *testing.T) {
	channel := &fakeChannel{}
	svc := newTestService(newFakeStore(), channel, &fakeDirect{})
	ctx := context.Background()
	startGame(t, svc, "guild", 4)

	if err := svc.Discuss(ctx, "guild", "chan", hostActor()); err == nil {
		t.Fatal("expected rejection before the topic fan-out")
	}

	if _, err := svc.SendTopic(ctx, "guild", hostActor(), "pineapple"); err != nil {
		t.Fatalf("send topic: %v", err)
	}

	before := len(channel.posts)
	for i := 0; i < 2; i++ {
		if err := svc.Discuss(ctx, "guild", "chan", hostActor()); err != nil {
			t.Fatalf("discuss %d: %v", i, err)
		}
	}
	if got := len(channel.posts) - before; got != 2 {
		t.Fatalf("expected 2 discussion prompts, got %d", got)
	}
}

func TestQuit(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{}
	svc := newTestService(store, channel, &fakeDirect{})
	ctx := context.Background()
	openLobby(t, svc, "guild", 2)

	err := svc.Quit(ctx, "guild", policy.Actor{UserID: "player-0"})
	assertCode(t, err, apperrors.CodeNotHost)

	if err := svc.Quit(ctx, "guild", hostActor()); err != nil {
		t.Fatalf("quit: %v", err)
	}
	if len(channel.deleted) != 1 {
		t.Fatalf("expected lobby message deletion, got %d", len(channel.deleted))
	}

	session, err := svc.Session(ctx, "guild")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.Active() {
		t.Fatal("session must be closed after quit")
	}

	err = svc.Quit(ctx, "guild", hostActor())
	assertCode(t, err, apperrors.CodeNoActiveSession)
}

func TestTerminate(t *testing.T) {
	tests := []struct {
		name  string
		actor policy.Actor
		code  apperrors.Code
	}{
		{name: "host", actor: hostActor()},
		{name: "guild admin", actor: adminActor()},
		{name: "bot owner", actor: ownerActor()},
		{name: "participant", actor: policy.Actor{UserID: "player-0"}, code: apperrors.CodeNotAuthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})
			ctx := context.Background()
			startGame(t, svc, "guild", 4)

			err := svc.Terminate(ctx, "guild", tc.actor)
			if tc.code != "" {
				assertCode(t, err, tc.code)
				return
			}
			if err != nil {
				t.Fatalf("terminate: %v", err)
			}

			session, err := svc.Session(ctx, "guild")
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			if session.Active() {
				t.Fatal("session must be closed after termination")
			}

			// A fresh lobby can open immediately.
			if _, err := svc.Open(ctx, "guild", "chan", "new-host"); err != nil {
				t.Fatalf("reopen after terminate: %v", err)
			}
		})
	}
}

func TestTerminateWithoutSession(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})

	err := svc.Terminate(context.Background(), "guild", ownerActor())
	assertCode(t, err, apperrors.CodeNoActiveSession)
}

func TestSessionDefaultsToClosed(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeChannel{}, &fakeDirect{})

	session, err := svc.Session(context.Background(), "guild")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.GuildID != "guild" || session.Active() {
		t.Fatalf("expected default closed session, got %+v", session)
	}
}

func TestStoreFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("disk error")
	svc := newTestService(store, &fakeChannel{}, &fakeDirect{})

	if _, err := svc.Open(context.Background(), "guild", "chan", "host"); err == nil {
		t.Fatal("expected storage error to surface")
	}
}
