package memory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/sabrinaskaa/chatbot-binara/pkg/memory"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

func TestGetCreatesEmptySession(t *testing.T) {
	store := memory.New()

	sess := store.Get("s1")
	gt.Equal(t, sess.ID, "s1")
	gt.A(t, sess.Turns).Length(0)
	gt.Equal(t, store.Len(), 1)
}

func TestAddTruncates(t *testing.T) {
	store := memory.New()

	for i := 0; i < 12; i++ {
		gt.NoError(t, store.Add("s1", model.RoleUser, fmt.Sprintf("m%d", i)))
	}

	sess := store.Get("s1")
	gt.A(t, sess.Turns).Length(memory.MaxTurns)
	gt.Equal(t, sess.Turns[0].Text, "m2")
	gt.Equal(t, sess.Turns[9].Text, "m11")
}

func TestGetReturnsCopy(t *testing.T) {
	store := memory.New()
	gt.NoError(t, store.Add("s1", model.RoleUser, "halo"))

	sess := store.Get("s1")
	sess.Turns[0].Text = "changed"

	gt.Equal(t, store.Get("s1").Turns[0].Text, "halo")
}

func TestAddRejectsUnknownRole(t *testing.T) {
	store := memory.New()
	gt.Error(t, store.Add("s1", model.Role("system"), "x"))
}

func TestSessionLast(t *testing.T) {
	sess := memory.Session{Turns: []model.Turn{
		{Role: model.RoleUser, Text: "a"},
		{Role: model.RoleBot, Text: "b"},
		{Role: model.RoleUser, Text: "c"},
	}}

	gt.A(t, sess.Last(2)).Length(2)
	gt.Equal(t, sess.Last(2)[0].Text, "b")
	gt.A(t, sess.Last(6)).Length(3)
	gt.A(t, sess.Last(0)).Length(3)
}

func TestConcurrentSessions(t *testing.T) {
	store := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", id%2)
			for j := 0; j < 50; j++ {
				_ = store.Add(sessionID, model.RoleUser, "x")
				_ = store.Get(sessionID)
			}
		}(i)
	}
	wg.Wait()

	gt.Equal(t, store.Len(), 2)
	gt.A(t, store.Get("s0").Turns).Length(memory.MaxTurns)
	gt.A(t, store.Get("s1").Turns).Length(memory.MaxTurns)
}

type mockArchiver struct {
	mu       sync.Mutex
	sessions []memory.Session
}

func (m *mockArchiver) Archive(ctx context.Context, session memory.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, session)
	return nil
}

func TestEvictIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	archiver := &mockArchiver{}

	store := memory.New(
		memory.WithIdleTTL(10*time.Minute),
		memory.WithClock(clock),
		memory.WithArchiver(archiver),
	)
	gt.NoError(t, store.Add("old", model.RoleUser, "halo"))

	now = now.Add(5 * time.Minute)
	gt.NoError(t, store.Add("fresh", model.RoleUser, "halo"))

	now = now.Add(6 * time.Minute)
	gt.Equal(t, store.EvictIdle(context.Background()), 1)
	gt.Equal(t, store.Len(), 1)
	gt.A(t, archiver.sessions).Length(1)
	gt.Equal(t, archiver.sessions[0].ID, "old")
}

func TestEvictIdleWithoutTTL(t *testing.T) {
	store := memory.New()
	gt.NoError(t, store.Add("s1", model.RoleUser, "halo"))
	gt.Equal(t, store.EvictIdle(context.Background()), 0)
	gt.Equal(t, store.Len(), 1)
}

func TestClose(t *testing.T) {
	archiver := &mockArchiver{}
	store := memory.New(memory.WithArchiver(archiver))

	gt.NoError(t, store.Add("s1", model.RoleUser, "halo"))
	gt.NoError(t, store.Add("s1", model.RoleBot, "hai"))
	_ = store.Get("empty")

	gt.NoError(t, store.Close(context.Background()))
	gt.A(t, archiver.sessions).Length(1)
	gt.A(t, archiver.sessions[0].Turns).Length(2)

	gt.Error(t, store.Add("s1", model.RoleUser, "lagi"))
	gt.NoError(t, store.Close(context.Background()))
}

func TestGetAfterCloseDoesNotCreateSession(t *testing.T) {
	store := memory.New()
	gt.NoError(t, store.Close(context.Background()))

	sess := store.Get("late")
	gt.A(t, sess.Turns).Length(0)
	gt.Equal(t, store.Len(), 0)
}

// steppingClock advances by one nanosecond on every call
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Nanosecond)
	return c.now
}

// countTurns returns the number of turns per session found in sessions
func countTurns(sessions []memory.Session) map[string]int {
	counts := map[string]int{}
	for _, sess := range sessions {
		counts[sess.ID] += len(sess.Turns)
	}
	return counts
}

func TestAddDuringEvictionKeepsEveryTurn(t *testing.T) {
	const (
		workers  = 8
		sessions = 2000
	)

	clock := &steppingClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	archiver := &mockArchiver{}
	store := memory.New(
		memory.WithIdleTTL(time.Nanosecond),
		memory.WithClock(clock.Now),
		memory.WithArchiver(archiver),
	)

	ctx := context.Background()
	done := make(chan struct{})
	evictorDone := make(chan struct{})
	go func() {
		defer close(evictorDone)
		for {
			select {
			case <-done:
				return
			default:
				store.EvictIdle(ctx)
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < sessions; i++ {
				id := fmt.Sprintf("w%d-s%d", w, i)
				gt.NoError(t, store.Add(id, model.RoleUser, "halo"))
			}
		}(w)
	}
	wg.Wait()
	close(done)
	<-evictorDone

	gt.NoError(t, store.Close(ctx))

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	counts := countTurns(archiver.sessions)
	gt.Equal(t, len(counts), workers*sessions)
	for id, n := range counts {
		if n != 1 {
			t.Errorf("session %s has %d archived turns, want 1", id, n)
		}
	}
}

func TestAddDuringCloseIsArchivedOrRejected(t *testing.T) {
	const workers = 8

	archiver := &mockArchiver{}
	store := memory.New(memory.WithArchiver(archiver))
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = map[string]int{}
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("w%d", w)
			for i := 0; i < 500; i++ {
				if err := store.Add(id, model.RoleUser, "halo"); err != nil {
					gt.True(t, errors.Is(err, memory.ErrClosed))
					return
				}
				mu.Lock()
				accepted[id]++
				mu.Unlock()
			}
		}(w)
	}

	gt.NoError(t, store.Close(ctx))
	wg.Wait()

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	counts := countTurns(archiver.sessions)
	for id, n := range accepted {
		want := n
		if want > memory.MaxTurns {
			want = memory.MaxTurns
		}
		gt.Equal(t, counts[id], want)
	}
}

type bufferCloser struct {
	bytes.Buffer
}

func (b *bufferCloser) Close() error { return nil }

type mockStorage struct {
	objects map[string]*bufferCloser
}

func (m *mockStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	buf := &bufferCloser{}
	m.objects[key] = buf
	return buf, nil
}

func TestStorageArchiver(t *testing.T) {
	storage := &mockStorage{objects: map[string]*bufferCloser{}}
	archiver := memory.NewStorageArchiver(storage)

	err := archiver.Archive(context.Background(), memory.Session{
		ID:    "s1",
		Turns: []model.Turn{{Role: model.RoleUser, Text: "halo"}},
	})
	gt.NoError(t, err)
	gt.Equal(t, len(storage.objects), 1)

	for key, buf := range storage.objects {
		gt.S(t, key).Contains("sessions/s1/")
		var transcript memory.Transcript
		gt.NoError(t, json.Unmarshal(buf.Bytes(), &transcript))
		gt.Equal(t, transcript.SessionID, "s1")
		gt.A(t, transcript.Turns).Length(1)
	}
}
