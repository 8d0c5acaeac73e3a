package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeertmans/jinglebox/internal/model"
)

func plannedIn(name string, d time.Duration) model.PlannedJingle {
	return model.PlannedJingle{
		ID:       name,
		Jingle:   model.Jingle{Name: name, File: "/s/" + name + ".ogg", Anchor: model.AnchorStart},
		FireTime: time.Now().Add(d),
	}
}

func TestScheduler_FiresDueEntriesInOrder(t *testing.T) {
	s := NewScheduler(time.Second, nil)

	fired := make(chan string, 4)
	s.SetFireHandler(func(p model.PlannedJingle) {
		fired <- p.Jingle.Name
	})

	s.SetPlan([]model.PlannedJingle{
		plannedIn("first", 20*time.Millisecond),
		plannedIn("second", 60*time.Millisecond),
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, "first", waitForFire(t, fired))
	assert.Equal(t, "second", waitForFire(t, fired))
	assert.Nil(t, s.Next())
}

func TestScheduler_ReplanWhileRunning(t *testing.T) {
	s := NewScheduler(time.Second, nil)

	fired := make(chan string, 4)
	s.SetFireHandler(func(p model.PlannedJingle) {
		fired <- p.Jingle.Name
	})

	// Initially armed for an entry far in the future
	s.SetPlan([]model.PlannedJingle{plannedIn("late", time.Hour)})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// Replace with a near entry; timer must re-arm
	s.SetPlan([]model.PlannedJingle{plannedIn("soon", 30*time.Millisecond)})

	assert.Equal(t, "soon", waitForFire(t, fired))
}

func TestScheduler_PauseSuppressesFiring(t *testing.T) {
	s := NewScheduler(time.Second, nil)

	fired := make(chan string, 4)
	s.SetFireHandler(func(p model.PlannedJingle) {
		fired <- p.Jingle.Name
	})

	s.Pause()
	s.SetPlan([]model.PlannedJingle{plannedIn("suppressed", 20*time.Millisecond)})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case name := <-fired:
		t.Fatalf("fired %q while paused", name)
	case <-time.After(150 * time.Millisecond):
	}

	// Resuming drops the entry that became past while paused
	s.Resume()
	assert.Nil(t, s.Next())
}

func TestScheduler_MissedEntriesNotPlayed(t *testing.T) {
	s := NewScheduler(50*time.Millisecond, nil)

	fired := make(chan string, 4)
	s.SetFireHandler(func(p model.PlannedJingle) {
		fired <- p.Jingle.Name
	})

	events := s.Subscribe()

	// Already a second overdue, well past the 50ms grace
	s.SetPlan([]model.PlannedJingle{plannedIn("stale", -time.Second)})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == EventMissed {
				assert.Equal(t, "stale", ev.Entry.Jingle.Name)
				assert.Empty(t, fired)
				return
			}
		case name := <-fired:
			t.Fatalf("stale entry %q should not fire", name)
		case <-deadline:
			t.Fatal("timed out waiting for missed event")
		}
	}
}

func TestScheduler_StopTerminatesLoop(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	s.SetPlan([]model.PlannedJingle{plannedIn("later", time.Hour)})

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	// Stop is idempotent
	s.Stop()
}

func TestScheduler_PendingReturnsCopy(t *testing.T) {
	s := NewScheduler(time.Second, nil)
	s.SetPlan([]model.PlannedJingle{plannedIn("a", time.Hour), plannedIn("b", 2*time.Hour)})

	pending := s.Pending()
	require.Len(t, pending, 2)

	pending[0].Jingle.Name = "mutated"
	assert.Equal(t, "a", s.Pending()[0].Jingle.Name)
}

func waitForFire(t *testing.T, fired <-chan string) string {
	t.Helper()
	select {
	case name := <-fired:
		return name
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fire")
		return ""
	}
}
