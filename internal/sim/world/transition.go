package world

import (
	"emberveil.gg/internal/persistence/eventlog"
	"emberveil.gg/internal/sim/zonecfg"
)

type pendingTransfer struct {
	e        *Entity
	src, dst *Zone
	nx, ny   float64
}

// applyZoneTransitions migrates players whose position crossed into an
// adjacent zone. Runs once per global tick, strictly after every zone's
// own pass: scan first, then apply as a batch, so the zone tables are
// never mutated while being iterated and nobody moves mid-combat.
func (w *World) applyZoneTransitions(tick uint64) {
	var transfers []pendingTransfer

	// getOrCreateZone appends to and re-sorts w.zoneIDs; scanning a copy
	// keeps a lazily created destination from reordering the list while it
	// is being ranged, which could visit a zone twice and skip another.
	ids := append([]string(nil), w.zoneIDs...)
	for _, zid := range ids {
		z := w.zones[zid]
		for _, id := range sortedIDs(z) {
			e := z.Entities[id]
			if e == nil {
				continue
			}
			if e.Kind != KindPlayer {
				clampIntoZone(e, z)
				continue
			}

			dx, dy := 0, 0
			if e.X < 0 {
				dx = -1
			} else if e.X > z.Spec.Width {
				dx = 1
			}
			if e.Y < 0 {
				dy = -1
			} else if e.Y > z.Spec.Height {
				dy = 1
			}
			if dx == 0 && dy == 0 {
				continue
			}

			dest, ndx, ndy, ok := w.resolveNeighbor(z.Spec, dx, dy)
			if !ok {
				// Unbounded world edge: movement is simply constrained.
				clampIntoZone(e, z)
				e.Order = nil
				continue
			}
			if e.Level < dest.MinLevel {
				// Level gate: no transition, no error — clamp back in.
				clampIntoZone(e, z)
				e.Order = nil
				continue
			}

			dz, err := w.getOrCreateZone(dest.ID)
			if err != nil {
				clampIntoZone(e, z)
				e.Order = nil
				continue
			}
			nx, ny := translateInto(e.X, e.Y, z.Spec, dest, ndx, ndy)
			transfers = append(transfers, pendingTransfer{e: e, src: z, dst: dz, nx: nx, ny: ny})
		}
	}

	for _, t := range transfers {
		w.clearTagsOwnedBy(t.src, t.e.ID)
		t.src.delete(t.e.ID)

		t.e.X, t.e.Y = t.nx, t.ny
		t.e.Order = nil
		t.dst.set(t.e)
		w.zoneOf[t.e.ID] = t.dst.ID

		w.logEvent(eventlog.Event{Tick: tick, Zone: t.src.ID, Kind: eventlog.KindDeparture, ActorID: string(t.e.ID), Detail: t.dst.ID})
		w.logEvent(eventlog.Event{Tick: tick, Zone: t.dst.ID, Kind: eventlog.KindArrival, ActorID: string(t.e.ID), Detail: t.src.ID})
		w.logDiary(eventlog.Event{Tick: tick, Zone: t.dst.ID, Kind: eventlog.KindArrival, ActorID: string(t.e.ID), Detail: t.src.ID})
		w.queueSave(t.dst, t.e)
	}
}

// resolveNeighbor finds the destination zone for an overshoot direction
// and reports which single axis the crossing happens on. Diagonal
// overshoots prefer the horizontal neighbor, then the vertical.
func (w *World) resolveNeighbor(from zonecfg.ZoneSpec, dx, dy int) (zonecfg.ZoneSpec, int, int, bool) {
	if dx != 0 {
		if dest, ok := w.topo.Neighbor(from, dx, 0); ok {
			return dest, dx, 0, true
		}
	}
	if dy != 0 {
		if dest, ok := w.topo.Neighbor(from, 0, dy); ok {
			return dest, 0, dy, true
		}
	}
	return zonecfg.ZoneSpec{}, 0, 0, false
}

// translateInto converts a position that overshot the source zone into
// the destination zone's local frame, clamped inside its bounds. Only
// the crossing axis (dx or dy, exactly one nonzero) translates; the
// other axis keeps its value so a diagonal overshoot does not teleport
// the entity across the destination.
func translateInto(x, y float64, src, dst zonecfg.ZoneSpec, dx, dy int) (float64, float64) {
	switch {
	case dx < 0:
		x += dst.Width
	case dx > 0:
		x -= src.Width
	}
	switch {
	case dy < 0:
		y += dst.Height
	case dy > 0:
		y -= src.Height
	}
	if x < 0 {
		x = 0
	}
	if x > dst.Width {
		x = dst.Width
	}
	if y < 0 {
		y = 0
	}
	if y > dst.Height {
		y = dst.Height
	}
	return x, y
}
