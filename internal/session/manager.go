package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
)

const logTimeLayout = "15:04"

// Controller locates the interactive controller message of a guild.
type Controller struct {
	ChannelID string
	MessageID string
}

// Snapshot is a read-only copy of a guild's session record.
type Snapshot struct {
	GuildID      string
	Controller   Controller
	Locked       bool
	IdleArmed    bool
	AloneArmed   bool
	LastActivity time.Time
	CreatedAt    time.Time
}

// Store holds per-guild session state. Records are created lazily and live
// until evicted. At most one timer of each kind is armed per guild.
type Store interface {
	GetOrCreate(guildID string) Snapshot
	Get(guildID string) (Snapshot, bool)
	Touch(guildID string)

	ArmIdle(guildID string, onFire func())
	CancelIdle(guildID string) bool
	ArmAlone(guildID string, onFire func())
	CancelAlone(guildID string) bool

	AppendLog(guildID, line string)
	Logs(guildID string) []string

	SetController(guildID string, c Controller)
	Controller(guildID string) (Controller, bool)
	Lock(guildID string)
	Locked(guildID string) bool

	DerivedGet(guildID, key string) (string, bool)
	DerivedSet(guildID, key, value string)

	Evict(guildID string)
	Acquire(guildID string) (release func())
}

type timerSlot struct {
	timer clock.Timer
	gen   uint64
}

type record struct {
	controller   Controller
	locked       bool
	idle         timerSlot
	alone        timerSlot
	lastActivity time.Time
	createdAt    time.Time
	log          *ringLog
	derived      map[string]string
}

type Manager struct {
	clock       clock.Clock
	inactivity  time.Duration
	logCapacity int

	mu      sync.Mutex
	records map[string]*record
	locks   map[string]*sync.Mutex
	gen     uint64
}

func NewManager(clk clock.Clock, inactivity time.Duration, logCapacity int) *Manager {
	return &Manager{
		clock:       clk,
		inactivity:  inactivity,
		logCapacity: logCapacity,
		records:     make(map[string]*record),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (m *Manager) recordLocked(guildID string) *record {
	rec, ok := m.records[guildID]
	if !ok {
		now := m.clock.Now()
		rec = &record{
			lastActivity: now,
			createdAt:    now,
			log:          newRingLog(m.logCapacity),
			derived:      make(map[string]string),
		}
		m.records[guildID] = rec
	}
	return rec
}

func (m *Manager) snapshot(guildID string, rec *record) Snapshot {
	return Snapshot{
		GuildID:      guildID,
		Controller:   rec.controller,
		Locked:       rec.locked,
		IdleArmed:    rec.idle.timer != nil,
		AloneArmed:   rec.alone.timer != nil,
		LastActivity: rec.lastActivity,
		CreatedAt:    rec.createdAt,
	}
}

func (m *Manager) GetOrCreate(guildID string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(guildID, m.recordLocked(guildID))
}

func (m *Manager) Get(guildID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	if !ok {
		return Snapshot{}, false
	}
	return m.snapshot(guildID, rec), true
}

// Touch records activity and cancels any armed idle timer.
func (m *Manager) Touch(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.recordLocked(guildID)
	rec.lastActivity = m.clock.Now()
	if stopSlot(&rec.idle) {
		slog.Debug("idle timer cancelled by activity", "guild_id", guildID)
	}
}

func (m *Manager) ArmIdle(guildID string, onFire func()) {
	m.arm(guildID, "idle", func(rec *record) *timerSlot { return &rec.idle }, onFire)
}

func (m *Manager) CancelIdle(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	return ok && stopSlot(&rec.idle)
}

func (m *Manager) ArmAlone(guildID string, onFire func()) {
	m.arm(guildID, "alone", func(rec *record) *timerSlot { return &rec.alone }, onFire)
}

func (m *Manager) CancelAlone(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	return ok && stopSlot(&rec.alone)
}

// arm replaces the guild's timer of one kind. A superseded or cancelled
// timer never runs its callback, even if it already fired concurrently.
func (m *Manager) arm(guildID, kind string, slotOf func(*record) *timerSlot, onFire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(guildID)
	slot := slotOf(rec)
	stopSlot(slot)

	m.gen++
	gen := m.gen
	slot.gen = gen
	slot.timer = m.clock.AfterFunc(m.inactivity, func() {
		m.mu.Lock()
		current, ok := m.records[guildID]
		if !ok || current != rec || slot.gen != gen || slot.timer == nil {
			m.mu.Unlock()
			return
		}
		slot.timer = nil
		m.mu.Unlock()

		slog.Info("session timer fired", "guild_id", guildID, "kind", kind)
		onFire()
	})
	slog.Debug("session timer armed", "guild_id", guildID, "kind", kind, "after", m.inactivity)
}

func stopSlot(slot *timerSlot) bool {
	if slot.timer == nil {
		return false
	}
	slot.timer.Stop()
	slot.timer = nil
	slot.gen = 0
	return true
}

func (m *Manager) AppendLog(guildID, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.recordLocked(guildID)
	rec.log.push(m.clock.Now().Format(logTimeLayout) + " " + line)
}

// Logs returns the retained log lines, oldest first.
func (m *Manager) Logs(guildID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	if !ok {
		return nil
	}
	return rec.log.lines()
}

// SetController tracks a new controller message and clears the locked flag.
func (m *Manager) SetController(guildID string, c Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.recordLocked(guildID)
	rec.controller = c
	rec.locked = false
}

func (m *Manager) Controller(guildID string) (Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	if !ok || rec.controller.MessageID == "" {
		return Controller{}, false
	}
	return rec.controller, true
}

func (m *Manager) Lock(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordLocked(guildID).locked = true
}

func (m *Manager) Locked(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	return ok && rec.locked
}

func (m *Manager) DerivedGet(guildID, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	if !ok {
		return "", false
	}
	v, ok := rec.derived[key]
	return v, ok
}

func (m *Manager) DerivedSet(guildID, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordLocked(guildID).derived[key] = value
}

// Evict cancels the guild's timers and drops its record. The operation
// lock survives eviction so holders are unaffected.
func (m *Manager) Evict(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[guildID]
	if !ok {
		return
	}
	stopSlot(&rec.idle)
	stopSlot(&rec.alone)
	delete(m.records, guildID)
}

// Acquire serialises operations for one guild. Callers must invoke the
// returned release exactly once.
func (m *Manager) Acquire(guildID string) func() {
	m.mu.Lock()
	l, ok := m.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[guildID] = l
	}
	m.mu.Unlock()

	l.Lock()
	var once sync.Once
	return func() {
		once.Do(l.Unlock)
	}
}
