package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/nekotts/internal/menu"
	"github.com/normanking/nekotts/internal/session"
)

type fakeBackend struct {
	mu sync.Mutex

	clipboard    string
	clipboardErr error

	spoken      []string
	stops       int
	studioOpens int
}

func (f *fakeBackend) Speak(_ context.Context, text, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeBackend) StopSpeaking(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeBackend) PauseSpeaking(context.Context) error  { return nil }
func (f *fakeBackend) ResumeSpeaking(context.Context) error { return nil }

func (f *fakeBackend) ToggleClipboardMonitor(context.Context) (bool, error) {
	return true, nil
}

func (f *fakeBackend) ListEngines(context.Context) ([]string, error) {
	return []string{"system"}, nil
}

func (f *fakeBackend) OpenStudio(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.studioOpens++
	return nil
}

func (f *fakeBackend) ReadClipboardText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clipboard, f.clipboardErr
}

func (f *fakeBackend) studioCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.studioOpens
}

func (f *fakeBackend) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeBackend) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

func testSessionConfig() session.Config {
	return session.Config{
		AutoResolveMin:     200 * time.Millisecond,
		AutoResolvePerRune: time.Millisecond,
		HappyHold:          30 * time.Millisecond,
		HappyRevert:        40 * time.Millisecond,
		ErrorClear:         40 * time.Millisecond,
		IdleThreshold:      time.Hour,
	}
}

func newTestController(t *testing.T) (*Controller, *session.Session, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{}
	sess := session.New(testSessionConfig(), backend, zerolog.Nop())
	t.Cleanup(sess.Close)

	cfg := DefaultConfig()
	cfg.ClickWindow = 30 * time.Millisecond
	cfg.BounceDuration = 25 * time.Millisecond

	ctrl := New(cfg, sess, backend, zerolog.Nop())
	t.Cleanup(ctrl.Close)
	return ctrl, sess, backend
}

func TestSingleClick_TogglesInputAfterWindow(t *testing.T) {
	ctrl, sess, _ := newTestController(t)

	ctrl.PrimaryClick()
	assert.False(t, sess.Snapshot().InputVisible, "single-click action is deferred")

	assert.Eventually(t, func() bool {
		return sess.Snapshot().InputVisible
	}, time.Second, 5*time.Millisecond)
}

func TestSingleClick_SetsBounceThatSelfClears(t *testing.T) {
	ctrl, _, _ := newTestController(t)

	ctrl.PrimaryClick()

	assert.Eventually(t, func() bool {
		return ctrl.State().Bouncing
	}, time.Second, 2*time.Millisecond)

	assert.Eventually(t, func() bool {
		return !ctrl.State().Bouncing
	}, time.Second, 2*time.Millisecond)
}

func TestSingleClick_FromIdleTriggersHappyBlip(t *testing.T) {
	ctrl, sess, _ := newTestController(t)

	ctrl.PrimaryClick()

	assert.Eventually(t, func() bool {
		return sess.Snapshot().Mood == session.MoodHappy
	}, time.Second, 5*time.Millisecond)
}

func TestDoubleClick_SuppressesSingleClickAndOpensStudio(t *testing.T) {
	ctrl, sess, backend := newTestController(t)

	ctrl.PrimaryClick()
	ctrl.PrimaryClick()

	// Past the disambiguation window: the single-click action never fired.
	time.Sleep(80 * time.Millisecond)
	assert.False(t, sess.Snapshot().InputVisible)
	assert.Equal(t, session.MoodIdle, sess.Snapshot().Mood)

	assert.Eventually(t, func() bool {
		return backend.studioCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSingleClick_StopsActivePlayback(t *testing.T) {
	ctrl, sess, backend := newTestController(t)

	sess.Speak("something fairly long so playback stays active")
	require.Eventually(t, func() bool {
		return sess.Snapshot().Playback == session.PlaybackPlaying
	}, time.Second, 5*time.Millisecond)

	ctrl.PrimaryClick()

	assert.Eventually(t, func() bool {
		snap := sess.Snapshot()
		return snap.Mood == session.MoodIdle && snap.Playback == session.PlaybackIdle
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return backend.stopCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, sess.Snapshot().InputVisible, "stop replaces the input toggle")
}

func TestSingleClick_WhileSleepingStillTogglesInput(t *testing.T) {
	ctrl, sess, _ := newTestController(t)

	sess.ToggleSleep()
	require.Equal(t, session.MoodSleeping, sess.Snapshot().Mood)

	ctrl.PrimaryClick()

	assert.Eventually(t, func() bool {
		return sess.Snapshot().InputVisible
	}, time.Second, 5*time.Millisecond)

	// Happy blip reverts to the recorded sleeping mood.
	assert.Eventually(t, func() bool {
		return sess.Snapshot().Mood == session.MoodSleeping
	}, time.Second, 5*time.Millisecond)
}

func TestPrimaryClick_WithMenuOpenOnlyDismisses(t *testing.T) {
	ctrl, sess, backend := newTestController(t)

	ctrl.SecondaryClick(menu.Point{X: 10, Y: 10}, menu.Size{Width: 800, Height: 600})
	require.True(t, ctrl.State().MenuOpen)

	ctrl.PrimaryClick()
	assert.False(t, ctrl.State().MenuOpen)

	// The dismissing click is fully consumed.
	time.Sleep(80 * time.Millisecond)
	assert.False(t, sess.Snapshot().InputVisible)
	assert.Equal(t, 0, backend.studioCount())
}

func TestSecondaryClick_OpensMenuAtClampedPosition(t *testing.T) {
	ctrl, _, _ := newTestController(t)

	ctrl.SecondaryClick(menu.Point{X: 250, Y: 10}, menu.Size{Width: 300, Height: 400})

	st := ctrl.State()
	assert.True(t, st.MenuOpen)
	assert.Equal(t, menu.Point{X: 70, Y: 10}, st.MenuPosition)
}

func TestSecondaryClick_PreemptsPendingPrimaryClick(t *testing.T) {
	ctrl, sess, _ := newTestController(t)

	ctrl.PrimaryClick()
	ctrl.SecondaryClick(menu.Point{X: 5, Y: 5}, menu.Size{Width: 800, Height: 600})

	time.Sleep(80 * time.Millisecond)
	assert.False(t, sess.Snapshot().InputVisible, "pending single click was canceled")
	assert.True(t, ctrl.State().MenuOpen)
}

func TestMenuAction_QuickInput(t *testing.T) {
	ctrl, sess, _ := newTestController(t)

	ctrl.SecondaryClick(menu.Point{X: 5, Y: 5}, menu.Size{Width: 800, Height: 600})
	ctrl.HandleMenuAction(ActionQuickInput)

	assert.False(t, ctrl.State().MenuOpen, "action closes the menu first")
	assert.True(t, sess.Snapshot().InputVisible)
}

func TestMenuAction_ReadClipboardSpeaksText(t *testing.T) {
	ctrl, sess, backend := newTestController(t)
	backend.clipboard = "read me aloud"

	ctrl.HandleMenuAction(ActionReadClipboard)

	assert.Eventually(t, func() bool {
		return sess.Snapshot().Mood == session.MoodSpeaking
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"read me aloud"}, backend.spokenTexts())
}

func TestMenuAction_ReadClipboardIgnoresEmptyAndErrors(t *testing.T) {
	ctrl, sess, backend := newTestController(t)

	backend.clipboard = "   "
	ctrl.HandleMenuAction(ActionReadClipboard)

	backend.mu.Lock()
	backend.clipboardErr = errors.New("clipboard locked")
	backend.mu.Unlock()
	ctrl.HandleMenuAction(ActionReadClipboard)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, session.MoodIdle, sess.Snapshot().Mood)
	assert.Empty(t, backend.spokenTexts())
}

func TestMenuAction_ToggleSleep(t *testing.T) {
	ctrl, sess, _ := newTestController(t)

	ctrl.HandleMenuAction(ActionToggleSleep)
	assert.Equal(t, session.MoodSleeping, sess.Snapshot().Mood)

	ctrl.HandleMenuAction(ActionToggleSleep)
	assert.Equal(t, session.MoodIdle, sess.Snapshot().Mood)
}

func TestMenuAction_ToggleMonitorAdoptsBackendValue(t *testing.T) {
	ctrl, sess, _ := newTestController(t)

	ctrl.HandleMenuAction(ActionToggleMonitor)

	assert.Eventually(t, func() bool {
		return sess.Snapshot().ClipboardMonitorEnabled
	}, time.Second, 5*time.Millisecond)
}
