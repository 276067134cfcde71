package chat_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bikebot/internal/model/catalog"
	chatmodel "github.com/zhouzirui/bikebot/internal/model/chat"
	"github.com/zhouzirui/bikebot/internal/service/chat"
	"github.com/zhouzirui/bikebot/internal/service/reply"
)

type fixedDelay time.Duration

func (d fixedDelay) Next() time.Duration { return time.Duration(d) }

func newService(t *testing.T, delay time.Duration) *chat.Service {
	t.Helper()
	cat := catalog.Seed()
	src, err := reply.NewCatalog(cat.Responses, nil)
	require.NoError(t, err)
	svc := chat.NewService(cat, src, fixedDelay(delay))
	t.Cleanup(svc.Shutdown)
	return svc
}

func waitForLen(t *testing.T, svc *chat.Service, id string, n int) chatmodel.Snapshot {
	t.Helper()
	var snap chatmodel.Snapshot
	require.Eventually(t, func() bool {
		var err error
		snap, err = svc.Snapshot(context.Background(), id)
		return err == nil && len(snap.Messages) == n && !snap.Composing
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestCreateSessionStartsWithWelcome(t *testing.T) {
	svc := newService(t, time.Millisecond)

	snap, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Messages, 1)
	assert.True(t, snap.Messages[0].IsBot)
	assert.Equal(t, catalog.Seed().Welcome, snap.Messages[0].Text)
	assert.False(t, snap.Composing)
	assert.False(t, snap.CanSubmit)
}

func TestSubmitAppendsUserThenBot(t *testing.T) {
	svc := newService(t, 20*time.Millisecond)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	accepted, snap, err := svc.Submit(ctx, session.ID, "I need help with my bike repair")
	require.NoError(t, err)
	require.True(t, accepted)

	require.Len(t, snap.Messages, 2)
	assert.False(t, snap.Messages[1].IsBot)
	assert.Equal(t, "I need help with my bike repair", snap.Messages[1].Text)
	assert.True(t, snap.Composing)
	assert.True(t, snap.InputDisabled)

	final := waitForLen(t, svc, session.ID, 3)
	assert.True(t, final.Messages[2].IsBot)
	assert.Contains(t, catalog.Seed().Responses, final.Messages[2].Text)
	assert.Equal(t, snap.Messages[1].ID, final.Messages[1].ID)
}

func TestSubmitBlankIsIgnored(t *testing.T) {
	svc := newService(t, time.Millisecond)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\t\n"} {
		accepted, snap, err := svc.Submit(ctx, session.ID, text)
		require.NoError(t, err)
		assert.False(t, accepted)
		assert.Len(t, snap.Messages, 1)
		assert.False(t, snap.Composing)
	}
}

func TestSubmitWhileComposingIsIgnored(t *testing.T) {
	svc := newService(t, 50*time.Millisecond)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	accepted, _, err := svc.Submit(ctx, session.ID, "first")
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, snap, err := svc.Submit(ctx, session.ID, "second")
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Len(t, snap.Messages, 2)

	final := waitForLen(t, svc, session.ID, 3)
	assert.Equal(t, "first", final.Messages[1].Text)
}

func TestQuickReplyMatchesSubmit(t *testing.T) {
	svc := newService(t, time.Millisecond)
	ctx := context.Background()

	typed, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	quick, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	prompt, err := svc.Catalog().QuickReply(2)
	require.NoError(t, err)

	okTyped, snapTyped, err := svc.Submit(ctx, typed.ID, prompt)
	require.NoError(t, err)
	okQuick, snapQuick, err := svc.QuickReply(ctx, quick.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, okTyped, okQuick)
	assert.Equal(t, len(snapTyped.Messages), len(snapQuick.Messages))
	assert.Equal(t, prompt, snapQuick.Messages[1].Text)

	waitForLen(t, svc, typed.ID, 3)
	waitForLen(t, svc, quick.ID, 3)
}

func TestQuickReplyUnknownIndex(t *testing.T) {
	svc := newService(t, time.Millisecond)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, _, err = svc.QuickReply(ctx, session.ID, 9)
	assert.True(t, errors.Is(err, catalog.ErrQuickReplyNotFound))
}

func TestDraftClearedOnSubmitAndLockedWhileComposing(t *testing.T) {
	svc := newService(t, 30*time.Millisecond)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	snap, err := svc.SetDraft(ctx, session.ID, "  ")
	require.NoError(t, err)
	assert.False(t, snap.CanSubmit)

	snap, err = svc.SetDraft(ctx, session.ID, "Check my warranty status")
	require.NoError(t, err)
	assert.True(t, snap.CanSubmit)

	_, snap, err = svc.Submit(ctx, session.ID, snap.Draft)
	require.NoError(t, err)
	assert.Empty(t, snap.Draft)
	assert.False(t, snap.CanSubmit)

	snap, err = svc.SetDraft(ctx, session.ID, "typed while busy")
	require.NoError(t, err)
	assert.Empty(t, snap.Draft)

	waitForLen(t, svc, session.ID, 3)
}

func TestCloseCancelsPendingReply(t *testing.T) {
	var calls atomic.Int32
	src := reply.SourceFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "late", nil
	})
	svc := chat.NewService(catalog.Seed(), src, fixedDelay(100*time.Millisecond))
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	handle, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)

	accepted, _, err := svc.Submit(ctx, session.ID, "hello")
	require.NoError(t, err)
	require.True(t, accepted)

	require.NoError(t, svc.CloseSession(ctx, session.ID))

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, calls.Load())

	snap := handle.Snapshot()
	assert.Len(t, snap.Messages, 2)
	assert.False(t, snap.Composing)

	_, err = handle.Submit("again")
	assert.ErrorIs(t, err, chat.ErrSessionClosed)

	_, err = svc.Snapshot(ctx, session.ID)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestReplySourceFailureClearsComposing(t *testing.T) {
	src := reply.SourceFunc(func(context.Context, string) (string, error) {
		return "", errors.New("backend down")
	})
	svc := chat.NewService(catalog.Seed(), src, fixedDelay(time.Millisecond))
	t.Cleanup(svc.Shutdown)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, _, err = svc.Submit(ctx, session.ID, "hello")
	require.NoError(t, err)

	snap := waitForLen(t, svc, session.ID, 2)
	assert.False(t, snap.Composing)
}

func TestSubscribeReceivesEventsInOrder(t *testing.T) {
	svc := newService(t, 5*time.Millisecond)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	handle, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)

	events, unsubscribe := handle.Subscribe()
	defer unsubscribe()

	_, _, err = svc.Submit(ctx, session.ID, "Book a maintenance appointment")
	require.NoError(t, err)

	var got []chatmodel.EventType
	timeout := time.After(2 * time.Second)
	for len(got) < 4 {
		select {
		case ev := <-events:
			assert.Equal(t, session.ID, ev.SessionID)
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}

	assert.Equal(t, []chatmodel.EventType{
		chatmodel.EventMessage,
		chatmodel.EventComposing,
		chatmodel.EventMessage,
		chatmodel.EventComposing,
	}, got)
}

func TestSubscribeClosedOnSessionClose(t *testing.T) {
	svc := newService(t, time.Millisecond)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	handle, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)

	events, unsubscribe := handle.Subscribe()
	require.NoError(t, svc.CloseSession(ctx, session.ID))

	for range events {
	}
	unsubscribe()
}

func TestSweepIdleRemovesStaleSessions(t *testing.T) {
	svc := newService(t, time.Millisecond)
	ctx := context.Background()
	_, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	assert.Zero(t, svc.SweepIdle(time.Hour))
	assert.Equal(t, 1, svc.Len())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, svc.SweepIdle(time.Millisecond))
	assert.Zero(t, svc.Len())
}

func TestJanitorSweeps(t *testing.T) {
	svc := newService(t, time.Millisecond)
	_, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	stop, err := svc.StartJanitor(10*time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = stop() }()

	require.Eventually(t, func() bool { return svc.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestUnknownSession(t *testing.T) {
	svc := newService(t, time.Millisecond)
	ctx := context.Background()

	_, _, err := svc.Submit(ctx, "missing", "hi")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.ErrorIs(t, svc.CloseSession(ctx, "missing"), chat.ErrSessionNotFound)
}
