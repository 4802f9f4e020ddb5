package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/darkbot/internal/audio"
	"github.com/foxseedlab/darkbot/internal/clock"
)

const historyLimit = 50

var (
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrNoHistory      = errors.New("no previous track in history")
	ErrEmptyQueue     = errors.New("queue is empty")
	ErrNotPaused      = errors.New("playback is not paused")
	ErrDestroyed      = errors.New("queue has been destroyed")
	ErrUnsupported    = errors.New("operation not supported")
)

type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatTrack
)

func (m RepeatMode) String() string {
	if m == RepeatTrack {
		return "track"
	}
	return "off"
}

// Capabilities describes which optional operations a queue supports.
type Capabilities struct {
	HistoryBack bool
	Seek        bool
	Insert      bool
}

// StreamHook returns a playable URL for a track right before playback.
type StreamHook func(ctx context.Context, t *Track) (string, error)

type Options struct {
	GuildID        string
	VoiceChannelID string
	Hook           StreamHook
	Sink           audio.Sink
	OnEvent        func(Event)
	// Disconnect tears down the voice connection; called at most once.
	Disconnect func() error
	Clock      clock.Clock
	// LeaveOnEmpty and LeaveOnEnd destroy the queue once playback runs out.
	LeaveOnEmpty bool
	LeaveOnEnd   bool
}

type action int

const (
	actionNone action = iota
	actionSkip
	actionRestart
	actionPause
	actionStop
)

// Queue owns the tracks of one guild and plays them through a sink on a
// dedicated goroutine.
type Queue struct {
	opts   Options
	clock  clock.Clock
	events *dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}

	mu           sync.Mutex
	tracks       []*Track
	current      *Track
	currentURL   string
	urlFor       *Track
	startedFor   *Track
	history      []*Track
	repeat       RepeatMode
	playing      bool
	paused       bool
	offset       time.Duration
	segmentStart time.Time
	pending      action
	cancelPlay   context.CancelFunc
	destroyed    bool

	disconnectOnce sync.Once
}

func NewQueue(opts Options) *Queue {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		opts:   opts,
		clock:  clk,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
	q.events = newDispatcher(opts.OnEvent)
	go q.run()
	return q
}

func (q *Queue) GuildID() string        { return q.opts.GuildID }
func (q *Queue) VoiceChannelID() string { return q.opts.VoiceChannelID }

func (q *Queue) Capabilities() Capabilities {
	return Capabilities{HistoryBack: true, Seek: true, Insert: true}
}

func (q *Queue) Connected() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.destroyed
}

func (q *Queue) emitLocked(e Event) {
	e.Queue = q
	q.events.push(e)
}

func (q *Queue) AddTrack(t *Track) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return ErrDestroyed
	}
	q.tracks = append(q.tracks, t)
	q.emitLocked(Event{Type: EventTrackAdd, Track: t})
	return nil
}

func (q *Queue) AddTracks(ts []*Track) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return ErrDestroyed
	}
	q.tracks = append(q.tracks, ts...)
	q.emitLocked(Event{Type: EventTracksAdd, Tracks: append([]*Track(nil), ts...)})
	return nil
}

// InsertTrack places t at idx among the upcoming tracks, clamped to range.
func (q *Queue) InsertTrack(t *Track, idx int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return ErrDestroyed
	}
	q.insertLocked(t, idx)
	return nil
}

func (q *Queue) insertLocked(t *Track, idx int) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(q.tracks) {
		idx = len(q.tracks)
	}
	q.tracks = append(q.tracks, nil)
	copy(q.tracks[idx+1:], q.tracks[idx:])
	q.tracks[idx] = t
}

// Tracks returns the upcoming tracks, excluding the current one.
func (q *Queue) Tracks() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Track(nil), q.tracks...)
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

func (q *Queue) Current() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// History returns previously played tracks, most recent last.
func (q *Queue) History() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Track(nil), q.history...)
}

// PopHistory removes and returns the most recently played track.
func (q *Queue) PopHistory() (*Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popHistoryLocked()
}

func (q *Queue) popHistoryLocked() (*Track, bool) {
	if len(q.history) == 0 {
		return nil, false
	}
	t := q.history[len(q.history)-1]
	q.history = q.history[:len(q.history)-1]
	return t, true
}

func (q *Queue) pushHistoryLocked(t *Track) {
	if t == nil {
		return
	}
	q.history = append(q.history, t)
	if len(q.history) > historyLimit {
		q.history = q.history[len(q.history)-historyLimit:]
	}
}

func (q *Queue) IsPlaying() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing && !q.paused
}

func (q *Queue) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

func (q *Queue) RepeatMode() RepeatMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.repeat
}

func (q *Queue) SetRepeatMode(m RepeatMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeat = m
}

// Play starts playback if the queue is idle and has something to play.
func (q *Queue) Play() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return ErrDestroyed
	}
	if q.playing {
		return nil
	}
	if q.current == nil && len(q.tracks) == 0 {
		return ErrEmptyQueue
	}
	q.playing = true
	q.paused = false
	q.signalLocked()
	return nil
}

func (q *Queue) signalLocked() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// interruptLocked stops the running segment with the given follow-up. It
// reports false when nothing is running.
func (q *Queue) interruptLocked(a action) bool {
	if q.cancelPlay == nil {
		return false
	}
	q.pending = a
	q.cancelPlay()
	return true
}

func (q *Queue) Skip() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return ErrNothingPlaying
	}
	if q.interruptLocked(actionSkip) {
		return nil
	}
	// Paused: no segment is running, advance directly.
	t := q.current
	q.finishLocked(t)
	q.paused = false
	q.playing = true
	q.signalLocked()
	return nil
}

// Back moves the most recent history track back into the current slot and
// puts the current track at the head of the queue.
func (q *Queue) Back() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	prev, ok := q.popHistoryLocked()
	if !ok {
		return ErrNoHistory
	}
	if q.current != nil {
		q.insertLocked(q.current, 0)
	}
	q.current = prev
	q.offset = 0
	if !q.interruptLocked(actionRestart) {
		q.paused = false
		q.playing = true
		q.signalLocked()
	}
	return nil
}

func (q *Queue) Seek(pos time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return ErrNothingPlaying
	}
	if pos < 0 {
		pos = 0
	}
	q.offset = pos
	q.interruptLocked(actionRestart)
	return nil
}

func (q *Queue) Pause() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil || !q.playing {
		return ErrNothingPlaying
	}
	if q.paused {
		return nil
	}
	q.paused = true
	if q.interruptLocked(actionPause) && !q.segmentStart.IsZero() {
		q.offset += q.clock.Now().Sub(q.segmentStart)
	}
	return nil
}

func (q *Queue) Resume() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.paused {
		return ErrNotPaused
	}
	q.paused = false
	q.signalLocked()
	return nil
}

// Stop clears the queue and halts playback. History is kept.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopLocked()
}

func (q *Queue) stopLocked() {
	q.tracks = nil
	q.current = nil
	q.urlFor = nil
	q.currentURL = ""
	q.offset = 0
	q.paused = false
	q.playing = false
	q.interruptLocked(actionStop)
}

// Destroy stops playback, disconnects voice and emits a final Disconnect
// event. Later calls are no-ops.
func (q *Queue) Destroy() {
	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return
	}
	q.stopLocked()
	q.destroyed = true
	q.emitLocked(Event{Type: EventDisconnect})
	q.mu.Unlock()

	q.cancel()
	q.disconnect()
	q.events.close()
}

func (q *Queue) disconnect() {
	q.disconnectOnce.Do(func() {
		if q.opts.Disconnect == nil {
			return
		}
		if err := q.opts.Disconnect(); err != nil {
			slog.Warn("failed to disconnect voice", "guild_id", q.opts.GuildID, "error", err)
		}
	})
}

func (q *Queue) run() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
			q.drain()
		}
	}
}

// drain plays tracks until the queue runs out, playback pauses or stops.
func (q *Queue) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.destroyed || q.paused || !q.playing {
			return
		}
		if q.current == nil {
			if len(q.tracks) == 0 {
				q.playing = false
				q.emitLocked(Event{Type: EventEmptyQueue})
				if q.opts.LeaveOnEmpty || q.opts.LeaveOnEnd {
					go q.Destroy()
				}
				return
			}
			q.current = q.tracks[0]
			q.tracks = q.tracks[1:]
			q.offset = 0
		}

		t := q.current
		offset := q.offset
		playCtx, cancel := context.WithCancel(q.ctx)
		q.cancelPlay = cancel
		q.pending = actionNone
		q.segmentStart = time.Time{}
		needURL := q.urlFor != t
		q.mu.Unlock()

		var url string
		var err error
		if needURL {
			url, err = q.opts.Hook(playCtx, t)
		}

		q.mu.Lock()
		if err == nil && needURL && q.pending == actionNone {
			q.urlFor = t
			q.currentURL = url
		}
		if err == nil && q.pending == actionNone {
			url = q.currentURL
			if q.startedFor != t {
				q.startedFor = t
				q.emitLocked(Event{Type: EventTrackStart, Track: t})
			}
			q.segmentStart = q.clock.Now()
			q.mu.Unlock()
			err = q.opts.Sink.Play(playCtx, url, offset)
			q.mu.Lock()
		}
		cancel()
		q.cancelPlay = nil
		act := q.pending
		q.pending = actionNone

		switch act {
		case actionNone:
			if err != nil {
				slog.Warn("playback failed", "guild_id", q.opts.GuildID, "title", t.DisplayTitle(), "error", err)
				q.emitLocked(Event{Type: EventError, Track: t, Err: err})
				q.finishLocked(t)
				continue
			}
			if q.repeat == RepeatTrack {
				q.offset = 0
				continue
			}
			q.finishLocked(t)
		case actionSkip:
			q.finishLocked(t)
		case actionRestart, actionPause, actionStop:
			// State was already updated by the interrupting call.
		}
	}
}

// finishLocked ends t, records it in history and frees the current slot.
func (q *Queue) finishLocked(t *Track) {
	if q.current != t {
		return
	}
	if q.startedFor == t {
		q.pushHistoryLocked(t)
		q.emitLocked(Event{Type: EventTrackEnd, Track: t})
	}
	q.current = nil
	q.urlFor = nil
	q.currentURL = ""
	q.startedFor = nil
	q.offset = 0
}
