package engine

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go-guildwatch/internal/alerts"
	"go-guildwatch/internal/baseline"
	"go-guildwatch/internal/config"
	"go-guildwatch/internal/ingest"
	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/metrics"
	"go-guildwatch/internal/models"
	"go-guildwatch/internal/sys"
	"go-guildwatch/internal/window"
	"go-guildwatch/pkg/util"
)

// GuildContext provides point-in-time facts that are not naturally events.
// The host implements it against whatever live API or cache it has; lookups
// that fail fall back to the engine's last-known values.
type GuildContext interface {
	MemberCount(guildID uint64) (int, error)
	OnlineCount(guildID uint64) (int, error)
}

// OverrideStore persists per-guild threshold tuning across restarts.
type OverrideStore interface {
	SaveThresholdOverride(guildID uint64, t config.Thresholds) error
}

// Options wires the engine's collaborators. Queue is required; everything
// else may be nil and the engine degrades to shorter memory.
type Options struct {
	Queue         *ingest.RingBuffer
	Context       GuildContext
	AlertStore    alerts.HistoryStore
	SampleStore   baseline.SampleStore
	OverrideStore OverrideStore
	Thresholds    config.Thresholds
	// Overrides seeds per-guild threshold tuning, typically loaded from
	// the database at boot.
	Overrides map[uint64]config.Thresholds

	SweepInterval    time.Duration
	BaselineInterval time.Duration
	AlertCap         int

	Clock     util.Clock
	PinCPU    bool
	EngineCPU int
}

type guildFacts struct {
	members int
	online  int
}

// Engine drives detection: the consume loop handles event-triggered checks,
// the sweep ticker re-evaluates every tracked guild, and the baseline ticker
// samples slow metrics and runs the deviation detectors.
type Engine struct {
	queue     *ingest.RingBuffer
	windows   *window.Store
	baselines *baseline.Tracker
	alerts    *alerts.Manager
	guildCtx  GuildContext

	thresholds atomic.Pointer[config.Thresholds]

	mu            sync.Mutex
	overrides     map[uint64]config.Thresholds
	overrideStore OverrideStore
	guilds        map[uint64]struct{}
	lastFacts     map[uint64]guildFacts

	sweepInterval    time.Duration
	baselineInterval time.Duration
	now              util.Clock
	pinCPU           bool
	engineCPU        int

	running   uint32
	stop      chan struct{}
	wg        sync.WaitGroup
	heartbeat func()
}

func NewEngine(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = util.NowMillis
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.BaselineInterval <= 0 {
		opts.BaselineInterval = 5 * time.Minute
	}
	if err := opts.Thresholds.Validate(); err != nil {
		logging.Warn("engine: invalid thresholds supplied, using defaults: %v", err)
		opts.Thresholds = config.DefaultThresholds()
	}

	e := &Engine{
		queue:            opts.Queue,
		windows:          window.NewStore(clock),
		baselines:        baseline.NewTracker(opts.SampleStore, clock),
		alerts:           alerts.NewManager(opts.AlertCap, opts.AlertStore, clock),
		guildCtx:         opts.Context,
		overrides:        make(map[uint64]config.Thresholds),
		overrideStore:    opts.OverrideStore,
		guilds:           make(map[uint64]struct{}),
		lastFacts:        make(map[uint64]guildFacts),
		sweepInterval:    opts.SweepInterval,
		baselineInterval: opts.BaselineInterval,
		now:              clock,
		pinCPU:           opts.PinCPU,
		engineCPU:        opts.EngineCPU,
	}
	e.thresholds.Store(&opts.Thresholds)

	for guildID, t := range opts.Overrides {
		if err := t.Validate(); err != nil {
			logging.Warn("engine: dropping invalid override for guild %d: %v", guildID, err)
			continue
		}
		e.overrides[guildID] = t
	}

	return e
}

// SetHeartbeat registers a liveness callback fired after every sweep. Must
// be called before Start.
func (e *Engine) SetHeartbeat(fn func()) {
	e.heartbeat = fn
}

// Start launches the consume loop and both periodic tickers. Idempotent:
// a running engine is never double-scheduled.
func (e *Engine) Start() {
	if !atomic.CompareAndSwapUint32(&e.running, 0, 1) {
		return
	}
	e.stop = make(chan struct{})

	e.wg.Add(3)
	go e.consumeLoop()
	go e.tickerLoop(e.sweepInterval, e.sweep)
	go e.tickerLoop(e.baselineInterval, e.baselineSweep)

	logging.Info("engine: started (sweep %v, baseline %v)", e.sweepInterval, e.baselineInterval)
}

// Stop halts all loops and releases the tickers. Safe to call twice, and the
// engine can be started again afterwards.
func (e *Engine) Stop() {
	if !atomic.CompareAndSwapUint32(&e.running, 1, 0) {
		return
	}
	close(e.stop)
	e.wg.Wait()
	logging.Info("engine: stopped")
}

// OnEvent feeds one normalized event. Never blocks: a full ring buffer drops
// the event and the detectors see less.
func (e *Engine) OnEvent(ev models.Event) {
	if ev.GuildID == 0 || ev.Kind == models.KindUnknown {
		return
	}
	if !e.queue.Enqueue(ev) {
		metrics.EventsDropped.Inc()
		logging.Warn("engine: ring buffer full, dropped %s event for guild %d", ev.Kind, ev.GuildID)
	}
}

func (e *Engine) consumeLoop() {
	defer e.wg.Done()

	if e.pinCPU {
		if err := sys.PinToCore(e.engineCPU); err != nil {
			logging.Warn("engine: failed to pin consume loop to core %d: %v", e.engineCPU, err)
		}
	}

	for atomic.LoadUint32(&e.running) == 1 {
		ev, ok := e.queue.Dequeue()
		if !ok {
			select {
			case <-e.stop:
				return
			default:
				runtime.Gosched()
				time.Sleep(200 * time.Microsecond)
			}
			continue
		}
		e.handleEvent(ev)
	}
}

func (e *Engine) tickerLoop(interval time.Duration, fn func()) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			fn()
		}
	}
}

// UpdateThresholds validates and swaps threshold config. guildID zero sets
// the global default; otherwise a per-guild override. Invalid updates are
// rejected and the previous config stays active.
func (e *Engine) UpdateThresholds(guildID uint64, t config.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if guildID == 0 {
		e.thresholds.Store(&t)
		logging.Info("engine: global thresholds updated")
		return nil
	}

	e.mu.Lock()
	e.overrides[guildID] = t
	e.mu.Unlock()

	if e.overrideStore != nil {
		if err := e.overrideStore.SaveThresholdOverride(guildID, t); err != nil {
			logging.Warn("engine: failed to persist override for guild %d: %v", guildID, err)
		}
	}
	logging.Info("engine: thresholds updated for guild %d", guildID)
	return nil
}

// Thresholds returns the effective config for a guild (override or global).
func (e *Engine) Thresholds(guildID uint64) config.Thresholds {
	if guildID != 0 {
		e.mu.Lock()
		t, ok := e.overrides[guildID]
		e.mu.Unlock()
		if ok {
			return t
		}
	}
	return *e.thresholds.Load()
}

// AddSink registers an alert delivery callback.
func (e *Engine) AddSink(s alerts.Sink) {
	e.alerts.AddSink(s)
}

// Alerts reads alert state, newest-first.
func (e *Engine) Alerts(guildID uint64, limit int) []models.Alert {
	return e.alerts.Query(guildID, limit)
}

// DetectorState is one detector's live condition for a guild, re-evaluated
// from the current windows rather than stored history.
type DetectorState struct {
	Detector models.Detector
	Count    int
	Score    float64
}

// GuildStats is the engine's stats surface: alert aggregates plus the live
// detector re-evaluation, so it reflects current conditions.
type GuildStats struct {
	Alerts    alerts.Stats
	Detectors []DetectorState
}

// Stats aggregates alert history and live window state for a guild.
func (e *Engine) Stats(guildID uint64) GuildStats {
	t := e.Thresholds(guildID)

	joinKey := models.WindowKey{GuildID: guildID, Detector: models.DetectorRapidJoins}
	leaveKey := models.WindowKey{GuildID: guildID, Detector: models.DetectorMassLeaves}
	churnKey := models.WindowKey{GuildID: guildID, Detector: models.DetectorRoleChurn}
	spikeKey := models.WindowKey{GuildID: guildID, Detector: models.DetectorMessageSpike}

	joins := e.windows.Recent(joinKey, t.RapidJoins.WindowMs)

	states := []DetectorState{
		{Detector: models.DetectorRapidJoins, Count: len(joins), Score: scoreJoins(joins)},
		{Detector: models.DetectorMassLeaves, Count: e.windows.Count(leaveKey, t.MassLeaves.WindowMs)},
		{Detector: models.DetectorRoleChurn, Count: e.windows.Count(churnKey, t.RoleChurn.WindowMs)},
		{Detector: models.DetectorMessageSpike, Count: e.windows.Count(spikeKey, t.MessageSpike.WindowMs)},
	}

	return GuildStats{
		Alerts:    e.alerts.Stats(guildID),
		Detectors: states,
	}
}

// TrackedGuilds lists guilds the engine has seen events for.
func (e *Engine) TrackedGuilds() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]uint64, 0, len(e.guilds))
	for g := range e.guilds {
		out = append(out, g)
	}
	return out
}

// DropGuild forgets a guild entirely: windows, cooldowns, cached facts.
func (e *Engine) DropGuild(guildID uint64) {
	e.windows.DropGuild(guildID)
	e.alerts.ResetGuildCooldowns(guildID)

	e.mu.Lock()
	delete(e.guilds, guildID)
	delete(e.lastFacts, guildID)
	delete(e.overrides, guildID)
	count := len(e.guilds)
	e.mu.Unlock()

	metrics.TrackedGuilds.Set(float64(count))
}

func (e *Engine) trackGuild(guildID uint64) {
	e.mu.Lock()
	_, known := e.guilds[guildID]
	if !known {
		e.guilds[guildID] = struct{}{}
	}
	count := len(e.guilds)
	e.mu.Unlock()

	if !known {
		metrics.TrackedGuilds.Set(float64(count))
	}
}

// memberCount asks the context provider, falling back to the last-known
// value when the lookup fails (bounded external call, never on the hot path).
func (e *Engine) memberCount(guildID uint64) int {
	if e.guildCtx != nil {
		if n, err := e.guildCtx.MemberCount(guildID); err == nil {
			e.mu.Lock()
			f := e.lastFacts[guildID]
			f.members = n
			e.lastFacts[guildID] = f
			e.mu.Unlock()
			return n
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFacts[guildID].members
}

func (e *Engine) onlineCount(guildID uint64) int {
	if e.guildCtx != nil {
		if n, err := e.guildCtx.OnlineCount(guildID); err == nil {
			e.mu.Lock()
			f := e.lastFacts[guildID]
			f.online = n
			e.lastFacts[guildID] = f
			e.mu.Unlock()
			return n
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFacts[guildID].online
}
