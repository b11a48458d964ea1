// Package snapshot implements JSON serialization of a running session for
// postmortem inspection.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/mobcore/engine"
	"github.com/nathoo/mobcore/engine/fsm"
	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/types"
)

// Snapshot is the JSON-serializable session dump.
type Snapshot struct {
	Title       string    `json:"title"`
	Frame       int       `json:"frame"`
	RNGSeed     int64     `json:"rng_seed"`
	RNGPosition int64     `json:"rng_position"`
	Mobs        []MobData `json:"mobs"`
}

// MobData is one mob as seen at the end of a frame.
type MobData struct {
	ID        int               `json:"id"`
	Type      string            `json:"type"`
	State     string            `json:"state"`
	History   string            `json:"history"`
	Pos       types.Point       `json:"pos"`
	Z         float64           `json:"z,omitempty"`
	Angle     float64           `json:"angle"`
	Health    float64           `json:"health"`
	MaxHealth float64           `json:"max_health"`
	Vars      map[string]string `json:"vars"`
	Statuses  []StatusData      `json:"statuses"`
	Focus     int               `json:"focus,omitempty"`
	Links     []int             `json:"links"`
	Leader    int               `json:"leader,omitempty"`
	GroupSpot int               `json:"group_spot"`
	Carrying  int               `json:"carrying,omitempty"`
	Holder    int               `json:"holder,omitempty"`
	Chase     string            `json:"chase"`
	ToDelete  bool              `json:"to_delete,omitempty"`
}

// StatusData is one active status.
type StatusData struct {
	Name     string  `json:"name"`
	TimeLeft float64 `json:"time_left"`
}

var chaseNames = map[mob.ChaseState]string{
	mob.ChaseNone:     "none",
	mob.ChaseChasing:  "chasing",
	mob.ChaseFinished: "finished",
}

// Take captures the engine's session.
func Take(e *engine.Engine) *Snapshot {
	s := e.Session
	snap := &Snapshot{
		Title:       e.Defs.Title,
		Frame:       s.Frame,
		RNGSeed:     e.RNG.Seed(),
		RNGPosition: e.RNG.Position(),
		Mobs:        []MobData{},
	}
	for _, m := range s.Mobs() {
		snap.Mobs = append(snap.Mobs, mobData(m))
	}
	return snap
}

func mobData(m *mob.Mob) MobData {
	d := MobData{
		ID:        m.ID,
		Type:      m.Type.Name,
		State:     m.StateName(),
		History:   fsm.History(m),
		Pos:       m.Pos,
		Z:         m.Z,
		Angle:     m.Angle,
		Health:    m.Health,
		MaxHealth: m.MaxHealth,
		Vars:      map[string]string{},
		Statuses:  []StatusData{},
		Focus:     m.FocusID,
		Links:     append([]int{}, m.Links...),
		Leader:    m.LeaderID,
		GroupSpot: m.GroupSpot,
		Carrying:  m.CarryingID,
		Holder:    m.HolderID,
		Chase:     chaseNames[m.Chase.State],
		ToDelete:  m.ToDelete,
	}
	for k, v := range m.Vars {
		d.Vars[k] = v
	}
	for _, st := range m.Statuses {
		if !st.ToDelete {
			d.Statuses = append(d.Statuses, StatusData{Name: st.Type.Name, TimeLeft: st.TimeLeft})
		}
	}
	return d
}

// Save serializes a snapshot of the engine to JSON bytes.
func Save(e *engine.Engine) ([]byte, error) {
	return json.MarshalIndent(Take(e), "", "  ")
}

// Load deserializes JSON bytes into a Snapshot.
func Load(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	// Ensure collections are never nil after load.
	if snap.Mobs == nil {
		snap.Mobs = []MobData{}
	}
	for i := range snap.Mobs {
		d := &snap.Mobs[i]
		if d.Vars == nil {
			d.Vars = map[string]string{}
		}
		if d.Statuses == nil {
			d.Statuses = []StatusData{}
		}
		if d.Links == nil {
			d.Links = []int{}
		}
	}
	return &snap, nil
}

// Find returns the mob with the given id.
func (s *Snapshot) Find(id int) (MobData, bool) {
	for _, d := range s.Mobs {
		if d.ID == id {
			return d, true
		}
	}
	return MobData{}, false
}
