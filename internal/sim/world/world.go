package world

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"emberveil.gg/internal/persistence/eventlog"
	"emberveil.gg/internal/protocol"
	"emberveil.gg/internal/sim/catalogs"
	"emberveil.gg/internal/sim/tuning"
	"emberveil.gg/internal/sim/zonecfg"
)

// World is the authoritative simulation of every zone. All zone and entity
// state is owned by the scheduler goroutine: channels feed joins, orders,
// and watch requests in, and each tick is processed zone by zone with the
// cross-zone transition pass strictly last. Nothing in the tick path blocks
// on I/O — external side effects go through fire-and-forget collaborators.
type World struct {
	tune   tuning.Tuning
	cats   *catalogs.Catalogs
	topo   zonecfg.Config
	logger *log.Logger

	zones   map[string]*Zone
	zoneIDs []string // sorted; deterministic zone pass order

	zoneOf map[EntityID]string // players and their current zone

	tick atomic.Uint64
	rng  *rand.Rand

	inbox chan OrderEnvelope
	join  chan JoinRequest
	leave chan EntityID
	watch chan WatchRequest
	stop  chan struct{}

	nextEntityNum atomic.Uint64

	clients  map[EntityID]*clientState
	watchers map[string]map[chan []byte]bool

	events *eventlog.Ring
	diary  *eventlog.Ring

	loot   LootRoller
	minter Minter
	saver  CharacterSaver
	names  NameResolver
	quests QuestSink
}

type clientState struct {
	Out chan []byte
}

type JoinRequest struct {
	Name   string
	Wallet string
	Class  string
	ZoneID string

	// Restore, when set, resumes a previously persisted character instead
	// of creating a fresh one.
	Restore *protocol.CharacterState

	AutoCombat bool

	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	EntityID EntityID
	Welcome  protocol.WelcomeMsg
	Err      string
}

type OrderEnvelope struct {
	EntityID EntityID
	Msg      protocol.OrderMsg
}

// WatchRequest subscribes (or unsubscribes) a read-only observer channel
// to a zone's per-tick snapshots.
type WatchRequest struct {
	ZoneID string
	Out    chan []byte
	Remove bool
	Resp   chan error
}

func New(tune tuning.Tuning, cats *catalogs.Catalogs, topo zonecfg.Config, seed int64, logger *log.Logger) (*World, error) {
	if err := tune.Validate(); err != nil {
		return nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		tune:     tune,
		cats:     cats,
		topo:     topo,
		logger:   logger,
		zones:    make(map[string]*Zone),
		zoneOf:   make(map[EntityID]string),
		rng:      rand.New(rand.NewSource(seed)),
		inbox:    make(chan OrderEnvelope, 1024),
		join:     make(chan JoinRequest, 64),
		leave:    make(chan EntityID, 64),
		watch:    make(chan WatchRequest, 64),
		stop:     make(chan struct{}),
		clients:  make(map[EntityID]*clientState),
		watchers: make(map[string]map[chan []byte]bool),
		events:   eventlog.NewRing(tune.EventRingSize, nil),
		diary:    eventlog.NewRing(tune.DiaryRingSize, nil),
		minter:   nopMinter{},
		saver:    nopSaver{},
		names:    nopNames{},
		quests:   nopQuests{},
	}
	w.loot = &CatalogLoot{Tables: cats.Loot, Mobs: cats.Mobs, RNG: w.rng}

	// The default zone exists up front; the rest are created lazily.
	if _, err := w.getOrCreateZone(topo.DefaultZoneID); err != nil {
		return nil, err
	}
	return w, nil
}

// Collaborator wiring. Call before Run.
func (w *World) SetEvents(r *eventlog.Ring)   { w.events = r }
func (w *World) SetDiary(r *eventlog.Ring)    { w.diary = r }
func (w *World) SetLoot(l LootRoller)         { w.loot = l }
func (w *World) SetMinter(m Minter)           { w.minter = m }
func (w *World) SetSaver(s CharacterSaver)    { w.saver = s }
func (w *World) SetNames(n NameResolver)      { w.names = n }
func (w *World) SetQuests(q QuestSink)        { w.quests = q }

func (w *World) Inbox() chan<- OrderEnvelope  { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- EntityID       { return w.leave }
func (w *World) Watch() chan<- WatchRequest   { return w.watch }
func (w *World) CurrentTick() uint64          { return w.tick.Load() }
func (w *World) Events() *eventlog.Ring       { return w.events }
func (w *World) Diary() *eventlog.Ring        { return w.diary }

func (w *World) nextEntityID() EntityID {
	return EntityID(fmt.Sprintf("E%d", w.nextEntityNum.Add(1)))
}

// Run drives the fixed-period scheduler until ctx is done or Stop is
// called. All world state is confined to this goroutine.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingOrders []OrderEnvelope
	var pendingLeaves []EntityID

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingOrders = append(pendingOrders, env)
		case req := <-w.watch:
			w.handleWatch(req)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingOrders)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingOrders = pendingOrders[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// step advances the whole world one tick. Ordering is the contract:
// the tick counter moves exactly once before any logic reads it, every
// zone finishes its own pass before the cross-zone transition scan, and
// snapshots observe fully settled state.
func (w *World) step(joins []JoinRequest, leaves []EntityID, orders []OrderEnvelope) {
	nowTick := w.tick.Add(1)

	for _, req := range joins {
		w.handleJoin(req, nowTick)
	}
	for _, id := range leaves {
		w.handleLeave(id)
	}
	for _, env := range orders {
		w.applyOrderMsg(env, nowTick)
	}

	for _, zid := range w.zoneIDs {
		z := w.zones[zid]
		z.Tick = nowTick

		w.processEffects(z, nowTick)
		w.executeOrders(z, nowTick)
		w.assignAIOrders(z, nowTick)
		w.regenerate(z, nowTick)
		w.respawnMobs(z, nowTick)
		w.decayCorpses(z, nowTick)
		w.respawnNodes(z, nowTick)
		w.sweepTags(z, nowTick)
	}

	// Cross-zone moves only once no zone is mid-pass.
	w.applyZoneTransitions(nowTick)

	w.broadcastSnapshots(nowTick)

	if w.tune.SaveSweepTicks > 0 && nowTick%w.tune.SaveSweepTicks == 0 {
		w.saveAllPlayers()
	}
}

// StepOnce advances one tick synchronously. Only safe when Run is not
// driving the world; intended for tests and deterministic replays.
func (w *World) StepOnce(joins []JoinRequest, orders []OrderEnvelope) uint64 {
	w.step(joins, nil, orders)
	return w.tick.Load()
}

func (w *World) handleJoin(req JoinRequest, tick uint64) {
	respond := func(resp JoinResponse) {
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	zoneID := req.ZoneID
	if req.Restore != nil && req.Restore.ZoneID != "" {
		zoneID = req.Restore.ZoneID
	}
	if zoneID == "" {
		zoneID = w.topo.DefaultZoneID
	}
	z, err := w.getOrCreateZone(zoneID)
	if err != nil {
		respond(JoinResponse{Err: err.Error()})
		return
	}

	class := req.Class
	if req.Restore != nil && req.Restore.Class != "" {
		class = req.Restore.Class
	}
	growth, ok := w.cats.Progression.Classes[class]
	if !ok {
		respond(JoinResponse{Err: fmt.Sprintf("unknown class %q", class)})
		return
	}

	name := req.Name
	if name == "" {
		name = "adventurer"
	}

	e := &Entity{
		ID:        w.nextEntityID(),
		Kind:      KindPlayer,
		Name:      name,
		X:         z.Spec.Spawn.X,
		Y:         z.Spec.Spawn.Y,
		Level:     1,
		Equipment: make(map[string]*ItemInstance),
		Cooldowns: make(map[string]uint64),
		Player: &PlayerData{
			Wallet:     req.Wallet,
			Class:      class,
			AutoCombat: req.AutoCombat,
			Techniques: append([]string(nil), growth.Techniques...),
		},
	}
	if req.Restore != nil {
		st := req.Restore
		e.Level = st.Level
		if e.Level < 1 {
			e.Level = 1
		}
		e.XP = st.XP
		e.X, e.Y = st.X, st.Y
		for id, until := range st.Cooldowns {
			e.Cooldowns[id] = until
		}
	}
	w.recomputeBase(e)
	w.recomputeEffective(e)
	e.HP = e.MaxHP
	e.Essence = e.MaxEssence
	if req.Restore != nil {
		if req.Restore.HP > 0 && req.Restore.HP <= e.MaxHP {
			e.HP = req.Restore.HP
		}
		if req.Restore.Essence >= 0 && req.Restore.Essence <= e.MaxEssence {
			e.Essence = req.Restore.Essence
		}
	}

	z.set(e)
	w.zoneOf[e.ID] = z.ID
	if req.Out != nil {
		w.clients[e.ID] = &clientState{Out: req.Out}
	}
	w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindSpawn, ActorID: string(e.ID), Detail: name})

	respond(JoinResponse{
		EntityID: e.ID,
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			EntityID:        string(e.ID),
			ZoneID:          z.ID,
			WorldParams: protocol.WorldParams{
				TickRateHz: w.tune.TickRateHz,
				ZoneWidth:  z.Spec.Width,
				ZoneHeight: z.Spec.Height,
				MinLevel:   z.Spec.MinLevel,
			},
			Catalogs: protocol.CatalogDigests{
				Mobs:        w.cats.Mobs.Digest,
				Techniques:  w.cats.Techniques.Digest,
				Loot:        w.cats.Loot.Digest,
				Progression: w.cats.Progression.Digest,
			},
		},
	})
}

// handleLeave detaches a client. The player entity stays in the world —
// players are never destroyed — but gets a save queued.
func (w *World) handleLeave(id EntityID) {
	delete(w.clients, id)
	if zid, ok := w.zoneOf[id]; ok {
		if z := w.zones[zid]; z != nil {
			if e := z.get(id); e != nil {
				w.queueSave(z, e)
			}
		}
	}
}

func (w *World) handleWatch(req WatchRequest) {
	var err error
	if req.Remove {
		if set := w.watchers[req.ZoneID]; set != nil {
			delete(set, req.Out)
		}
	} else if _, zerr := w.getOrCreateZone(req.ZoneID); zerr != nil {
		err = zerr
	} else {
		set := w.watchers[req.ZoneID]
		if set == nil {
			set = make(map[chan []byte]bool)
			w.watchers[req.ZoneID] = set
		}
		set[req.Out] = true
	}
	if req.Resp != nil {
		req.Resp <- err
	}
}

// applyOrderMsg validates and installs a player's order. Invalid orders
// are dropped silently; the instigator sees the result on its next
// snapshot, never as an inline error.
func (w *World) applyOrderMsg(env OrderEnvelope, tick uint64) {
	zid, ok := w.zoneOf[env.EntityID]
	if !ok {
		return
	}
	z := w.zones[zid]
	e := z.get(env.EntityID)
	if e == nil || e.Kind != KindPlayer {
		return
	}

	switch env.Msg.Kind {
	case "cancel":
		e.Order = nil
	case "move":
		e.Order = &Order{Kind: OrderMove, X: env.Msg.X, Y: env.Msg.Y}
	case "attack":
		target := z.get(EntityID(env.Msg.TargetID))
		if target == nil || !target.combatant() || target.ID == e.ID {
			return
		}
		e.Order = &Order{Kind: OrderAttack, TargetID: target.ID}
	case "technique":
		def, ok := w.cats.Techniques.ByID[env.Msg.Technique]
		if !ok || !w.knowsTechnique(e, def.ID) {
			return
		}
		// Checked at issue time and revalidated at execution, since
		// essence and cooldowns move between the two.
		if !w.techniqueReady(e, def, tick) {
			return
		}
		e.Order = &Order{Kind: OrderTechnique, TargetID: EntityID(env.Msg.TargetID), Technique: def.ID}
	}
}

func (w *World) knowsTechnique(e *Entity, id string) bool {
	for _, t := range e.knownTechniques() {
		if t == id {
			return true
		}
	}
	return false
}

func (w *World) techniqueReady(e *Entity, def catalogs.TechniqueDef, tick uint64) bool {
	if e.Essence < def.EssenceCost {
		return false
	}
	if until, ok := e.Cooldowns[def.ID]; ok && until > tick {
		return false
	}
	return true
}

func (w *World) logEvent(ev eventlog.Event) {
	w.events.Append(ev)
}

func (w *World) logDiary(ev eventlog.Event) {
	w.diary.Append(ev)
}

func (w *World) queueSave(z *Zone, e *Entity) {
	if e.Player == nil {
		return
	}
	cooldowns := make(map[string]uint64, len(e.Cooldowns))
	for id, until := range e.Cooldowns {
		cooldowns[id] = until
	}
	w.saver.SaveCharacter(protocol.CharacterState{
		Name:      e.Name,
		Wallet:    e.Player.Wallet,
		Class:     e.Player.Class,
		ZoneID:    z.ID,
		X:         e.X,
		Y:         e.Y,
		Level:     e.Level,
		XP:        e.XP,
		HP:        e.HP,
		MaxHP:     e.MaxHP,
		Essence:   e.Essence,
		Cooldowns: cooldowns,
	})
}

func (w *World) saveAllPlayers() {
	for _, zid := range w.zoneIDs {
		z := w.zones[zid]
		for _, id := range sortedIDs(z) {
			e := z.Entities[id]
			if e != nil && e.Player != nil {
				w.queueSave(z, e)
			}
		}
	}
}

// FlushAll queues a save for every player. Only safe once Run has
// returned; used by the graceful-shutdown path.
func (w *World) FlushAll() {
	w.saveAllPlayers()
}

// broadcastSnapshots marshals each watched zone once and fans it out.
// Slow consumers lose snapshots, never slow the tick.
func (w *World) broadcastSnapshots(tick uint64) {
	for _, zid := range w.zoneIDs {
		z := w.zones[zid]

		outs := make([]chan []byte, 0, 4)
		for ch := range w.watchers[zid] {
			outs = append(outs, ch)
		}
		for id, cl := range w.clients {
			if w.zoneOf[id] == zid {
				outs = append(outs, cl.Out)
			}
		}
		if len(outs) == 0 {
			continue
		}

		b, err := json.Marshal(w.buildSnapshot(z, tick))
		if err != nil {
			if w.logger != nil {
				w.logger.Printf("snapshot %s: %v", zid, err)
			}
			continue
		}
		for _, ch := range outs {
			select {
			case ch <- b:
			default:
			}
		}
	}
}
