// Package session holds the cat's mood and playback state and every
// transition that can change it. All mutation goes through Session methods;
// deferred transitions re-check the state they depend on before applying, so
// a timer that lost a race with a user gesture becomes a no-op.
package session

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/normanking/nekotts/internal/sched"
)

// Mood is the cat's visual/behavioral state. It drives animation selection
// in the frontend and is the sole input to the idle-to-sleep scheduler.
type Mood string

const (
	MoodIdle      Mood = "idle"
	MoodSpeaking  Mood = "speaking"
	MoodListening Mood = "listening"
	MoodSleeping  Mood = "sleeping"
	MoodHappy     Mood = "happy"
)

// PlaybackPhase is the synthesis/audio lifecycle stage, independent of mood.
type PlaybackPhase string

const (
	PlaybackIdle         PlaybackPhase = "idle"
	PlaybackSynthesizing PlaybackPhase = "synthesizing"
	PlaybackPlaying      PlaybackPhase = "playing"
	PlaybackPaused       PlaybackPhase = "paused"
	PlaybackError        PlaybackPhase = "error"
)

// Commander is the outbound command boundary to the TTS backend and the
// desktop shell. Every call may fail independently; failures are handled
// locally per operation and never retried automatically.
type Commander interface {
	Speak(ctx context.Context, text, engine string) error
	StopSpeaking(ctx context.Context) error
	PauseSpeaking(ctx context.Context) error
	ResumeSpeaking(ctx context.Context) error
	ToggleClipboardMonitor(ctx context.Context) (bool, error)
	ListEngines(ctx context.Context) ([]string, error)
	OpenStudio(ctx context.Context) error
	ReadClipboardText(ctx context.Context) (string, error)
}

// Config holds the transition timing knobs. Defaults match the shipped pet;
// tests shorten them to drive the schedulers quickly.
type Config struct {
	AutoResolveMin     time.Duration // floor for the speak auto-resolve timer
	AutoResolvePerRune time.Duration // per-character share of the auto-resolve timer
	HappyHold          time.Duration // how long the post-speech happy blip lasts
	HappyRevert        time.Duration // how long TriggerHappy holds before reverting
	ErrorClear         time.Duration // how long a failed speak shows the error phase
	IdleThreshold      time.Duration // idle/idle duration before falling asleep
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		AutoResolveMin:     2 * time.Second,
		AutoResolvePerRune: 200 * time.Millisecond,
		HappyHold:          1500 * time.Millisecond,
		HappyRevert:        2 * time.Second,
		ErrorClear:         2 * time.Second,
		IdleThreshold:      3 * time.Minute,
	}
}

// Snapshot is an immutable copy of the session state, published to the
// frontend on every change.
type Snapshot struct {
	Mood                    Mood          `json:"mood"`
	Playback                PlaybackPhase `json:"playback"`
	InputVisible            bool          `json:"inputVisible"`
	SpeechVisible           bool          `json:"speechVisible"`
	SpeechText              string        `json:"speechText"`
	ActiveEngine            string        `json:"activeEngine"`
	AvailableEngines        []string      `json:"availableEngines"`
	ClipboardMonitorEnabled bool          `json:"clipboardMonitorEnabled"`
	Hovering                bool          `json:"hovering"`
}

// Session is the single owned state container, constructed at startup and
// passed to the components that need it.
type Session struct {
	mu sync.Mutex

	mood             Mood
	playback         PlaybackPhase
	inputVisible     bool
	speechVisible    bool
	speechText       string
	activeEngine     string
	availableEngines []string
	monitorEnabled   bool
	hovering         bool
	prevMood         Mood // mood recorded by TriggerHappy

	// speakGen invalidates in-flight speak completions and their deferred
	// resolve steps when the utterance they belong to is no longer current.
	speakGen uint64

	resolve   sched.Slot // speak accept/failure resolution chain
	happy     sched.Slot // TriggerHappy revert
	idle      sched.Slot // idle-to-sleep countdown
	idleArmed bool       // whether the countdown is currently armed

	engines singleflight.Group

	cfg      Config
	cmd      Commander
	logger   zerolog.Logger
	onChange func(Snapshot)
}

// New creates a session in the idle/idle state.
func New(cfg Config, cmd Commander, logger zerolog.Logger) *Session {
	s := &Session{
		mood:     MoodIdle,
		playback: PlaybackIdle,
		cfg:      cfg,
		cmd:      cmd,
		logger:   logger.With().Str("component", "session").Logger(),
	}
	s.mu.Lock()
	s.rearmIdleLocked()
	s.mu.Unlock()
	return s
}

// SetOnChange sets the callback invoked after every state mutation.
func (s *Session) SetOnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Close cancels all pending timers. The session is not usable afterwards.
func (s *Session) Close() {
	s.resolve.Cancel()
	s.happy.Cancel()
	s.idle.Cancel()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	engines := make([]string, len(s.availableEngines))
	copy(engines, s.availableEngines)
	return Snapshot{
		Mood:                    s.mood,
		Playback:                s.playback,
		InputVisible:            s.inputVisible,
		SpeechVisible:           s.speechVisible,
		SpeechText:              s.speechText,
		ActiveEngine:            s.activeEngine,
		AvailableEngines:        engines,
		ClipboardMonitorEnabled: s.monitorEnabled,
		Hovering:                s.hovering,
	}
}

// publishLocked re-evaluates the idle countdown, copies the state, and
// releases the lock before invoking the change callback.
func (s *Session) publishLocked() {
	s.rearmIdleLocked()
	snap := s.snapshotLocked()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// rearmIdleLocked keeps the single idle-to-sleep timer in sync with the
// state: armed from zero when mood and playback become the idle/idle pair,
// canceled when they leave it. Mutations that touch neither axis (hover,
// input box, engine list) leave a running countdown alone.
func (s *Session) rearmIdleLocked() {
	idle := s.mood == MoodIdle && s.playback == PlaybackIdle
	if idle == s.idleArmed {
		return
	}
	s.idleArmed = idle
	if idle {
		s.idle.Schedule(s.cfg.IdleThreshold, s.fallAsleep)
	} else {
		s.idle.Cancel()
	}
}

// fallAsleep fires when the idle threshold elapses. The idle/idle condition
// is re-validated at fire time to guard against a racing state change.
func (s *Session) fallAsleep() {
	s.mu.Lock()
	if s.mood != MoodIdle || s.playback != PlaybackIdle {
		s.mu.Unlock()
		return
	}
	s.mood = MoodSleeping
	s.logger.Debug().Msg("idle threshold reached, falling asleep")
	s.publishLocked()
}

// Speak forwards text to the TTS backend and moves the cat into the
// speaking/synthesizing state. Blank text is ignored.
func (s *Session) Speak(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	s.speakGen++
	gen := s.speakGen
	s.speechText = text
	s.speechVisible = true
	s.mood = MoodSpeaking
	s.playback = PlaybackSynthesizing
	s.inputVisible = false
	engine := s.activeEngine
	s.resolve.Cancel()
	s.publishLocked()

	go func() {
		err := s.cmd.Speak(context.Background(), text, engine)
		s.mu.Lock()
		if gen != s.speakGen {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("engine", engine).Msg("speak command failed")
			s.mood = MoodIdle
			s.playback = PlaybackError
			s.resolve.Schedule(s.cfg.ErrorClear, func() { s.clearError(gen) })
			s.publishLocked()
			return
		}
		s.playback = PlaybackPlaying
		d := s.cfg.AutoResolvePerRune * time.Duration(utf8.RuneCountInString(text))
		if d < s.cfg.AutoResolveMin {
			d = s.cfg.AutoResolveMin
		}
		s.resolve.Schedule(d, func() { s.resolveSpeech(gen) })
		s.publishLocked()
	}()
}

// resolveSpeech ends a finished utterance with a happy blip, then returns to
// idle. Stale ticks (the utterance was stopped or superseded) are no-ops.
func (s *Session) resolveSpeech(gen uint64) {
	s.mu.Lock()
	if gen != s.speakGen || s.mood != MoodSpeaking {
		s.mu.Unlock()
		return
	}
	s.mood = MoodHappy
	s.resolve.Schedule(s.cfg.HappyHold, func() { s.settleAfterSpeech(gen) })
	s.publishLocked()
}

func (s *Session) settleAfterSpeech(gen uint64) {
	s.mu.Lock()
	if gen != s.speakGen || s.mood != MoodHappy {
		s.mu.Unlock()
		return
	}
	s.mood = MoodIdle
	s.playback = PlaybackIdle
	s.speechVisible = false
	s.publishLocked()
}

func (s *Session) clearError(gen uint64) {
	s.mu.Lock()
	if gen != s.speakGen || s.playback != PlaybackError {
		s.mu.Unlock()
		return
	}
	s.playback = PlaybackIdle
	s.speechVisible = false
	s.publishLocked()
}

// SpeechDone resolves the current utterance early when the backend reports
// playback finished before the auto-resolve timer.
func (s *Session) SpeechDone() {
	s.mu.Lock()
	if s.mood != MoodSpeaking || s.playback == PlaybackSynthesizing {
		s.mu.Unlock()
		return
	}
	gen := s.speakGen
	s.mu.Unlock()
	s.resolveSpeech(gen)
}

// StopSpeaking resets to idle/idle unconditionally and tells the backend to
// stop, best-effort.
func (s *Session) StopSpeaking() {
	s.mu.Lock()
	s.speakGen++
	s.resolve.Cancel()
	s.mood = MoodIdle
	s.playback = PlaybackIdle
	s.speechVisible = false
	s.publishLocked()

	go func() {
		if err := s.cmd.StopSpeaking(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("stop command failed")
		}
	}()
}

// PauseSpeaking pauses active playback. Best-effort: the paused phase is a
// UI affordance and is not reverted if the backend rejects the command.
func (s *Session) PauseSpeaking() {
	s.mu.Lock()
	if s.playback != PlaybackPlaying {
		s.mu.Unlock()
		return
	}
	s.playback = PlaybackPaused
	s.publishLocked()

	go func() {
		if err := s.cmd.PauseSpeaking(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("pause command failed")
		}
	}()
}

// ResumeSpeaking resumes paused playback.
func (s *Session) ResumeSpeaking() {
	s.mu.Lock()
	if s.playback != PlaybackPaused {
		s.mu.Unlock()
		return
	}
	s.playback = PlaybackPlaying
	s.publishLocked()

	go func() {
		if err := s.cmd.ResumeSpeaking(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("resume command failed")
		}
	}()
}

// ToggleInput flips the quick-input box.
func (s *Session) ToggleInput() {
	s.mu.Lock()
	s.inputVisible = !s.inputVisible
	s.publishLocked()
}

// ShowInput forces the quick-input box open (tray/hotkey path).
func (s *Session) ShowInput() {
	s.mu.Lock()
	s.inputVisible = true
	s.publishLocked()
}

// SetHovering records pointer hover. Pure UI affordance, no side effects.
func (s *Session) SetHovering(hovering bool) {
	s.mu.Lock()
	s.hovering = hovering
	s.publishLocked()
}

// TriggerHappy records the current mood and shows a happy blip, reverting
// after the configured hold if the cat is still happy by then.
func (s *Session) TriggerHappy() {
	s.mu.Lock()
	prev := s.mood
	if prev == MoodHappy {
		prev = MoodIdle
	}
	s.prevMood = prev
	s.mood = MoodHappy
	s.happy.Schedule(s.cfg.HappyRevert, s.revertHappy)
	s.publishLocked()
}

func (s *Session) revertHappy() {
	s.mu.Lock()
	if s.mood != MoodHappy {
		s.mu.Unlock()
		return
	}
	s.mood = s.prevMood
	s.publishLocked()
}

// ToggleSleep puts the cat to sleep, or wakes it up.
func (s *Session) ToggleSleep() {
	s.mu.Lock()
	if s.mood == MoodSleeping {
		s.mood = MoodIdle
	} else {
		s.mood = MoodSleeping
	}
	s.publishLocked()
}

// ToggleClipboardMonitor asks the backend to flip the monitor and adopts the
// authoritative value it returns. On failure the local flag is untouched.
func (s *Session) ToggleClipboardMonitor() {
	go func() {
		enabled, err := s.cmd.ToggleClipboardMonitor(context.Background())
		if err != nil {
			s.logger.Error().Err(err).Msg("clipboard monitor toggle failed")
			return
		}
		s.mu.Lock()
		s.monitorEnabled = enabled
		// Listening is the monitor's animation: enter it from idle, leave it
		// when the monitor turns off.
		if enabled && s.mood == MoodIdle {
			s.mood = MoodListening
		} else if !enabled && s.mood == MoodListening {
			s.mood = MoodIdle
		}
		s.publishLocked()
	}()
}

// SetClipboardMonitorEnabled adopts the monitor state directly, for
// startup configuration. No mood change.
func (s *Session) SetClipboardMonitorEnabled(enabled bool) {
	s.mu.Lock()
	s.monitorEnabled = enabled
	s.publishLocked()
}

// FetchEngines refreshes the available engine list from the backend.
// Concurrent refreshes are collapsed; failure keeps the previous list.
func (s *Session) FetchEngines() {
	go func() {
		v, err, _ := s.engines.Do("engines", func() (any, error) {
			return s.cmd.ListEngines(context.Background())
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("engine query failed, keeping previous list")
			return
		}

		names := normalizeEngines(v.([]string))
		s.mu.Lock()
		s.availableEngines = names
		if s.activeEngine == "" && len(names) > 0 {
			s.activeEngine = names[0]
		}
		s.publishLocked()
	}()
}

// SetActiveEngine selects the engine used by subsequent Speak calls.
func (s *Session) SetActiveEngine(name string) {
	s.mu.Lock()
	s.activeEngine = strings.ToLower(strings.TrimSpace(name))
	s.publishLocked()
}

func normalizeEngines(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
