package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/agent-sim/internal/memory"
	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/sim"
)

// SnapshotVersion is the current snapshot payload version.
const SnapshotVersion = 1

// LegacyMemoryCapacity is the per-agent memory limit of version 0 worlds.
const LegacyMemoryCapacity = 20

// ErrFutureSnapshot is returned for payloads newer than this build understands.
var ErrFutureSnapshot = errors.New("snapshot version is newer than supported")

type envelope struct {
	Version int             `json:"version"`
	World   json.RawMessage `json:"world"`
}

// EncodeSnapshot wraps w in a versioned envelope.
func EncodeSnapshot(w *sim.WorldState) ([]byte, error) {
	world, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	return json.Marshal(envelope{Version: SnapshotVersion, World: world})
}

// DecodeSnapshot upgrades data to the current version and decodes the world.
func DecodeSnapshot(data []byte, gridSize int) (*sim.WorldState, error) {
	up, err := MigrateSnapshot(data, gridSize)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(up, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	var w sim.WorldState
	if err := json.Unmarshal(env.World, &w); err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	if w.Agents == nil {
		w.Agents = make(map[string]*sim.AgentSnapshot)
	}
	return &w, nil
}

// MigrateSnapshot returns data as a current-version envelope. Payloads without
// a version field are version 0: a bare world with "recent_interactions" and
// plain memory lists, whose agents may lack coordinates. Those agents are
// placed at the centre of a grid of gridSize.
func MigrateSnapshot(data []byte, gridSize int) ([]byte, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	version := 0
	if raw, ok := probe["version"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return nil, fmt.Errorf("snapshot version: %w", err)
		}
	}

	switch {
	case version > SnapshotVersion:
		return nil, fmt.Errorf("%w: %d > %d", ErrFutureSnapshot, version, SnapshotVersion)
	case version == SnapshotVersion:
		return data, nil
	case version == 0:
		w, err := upgradeV0(data, gridSize)
		if err != nil {
			return nil, fmt.Errorf("migrate v0 snapshot: %w", err)
		}
		return EncodeSnapshot(w)
	}
	return nil, fmt.Errorf("unsupported snapshot version %d", version)
}

type legacyMemory struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	Importance int    `json:"importance"`
	Type       string `json:"type"`
}

type legacyAgent struct {
	Name      string         `json:"name"`
	X         *int           `json:"x"`
	Y         *int           `json:"y"`
	Traits    string         `json:"traits"`
	Goal      string         `json:"goal"`
	State     string         `json:"state"`
	Ticks     int            `json:"ticks_until_next_think"`
	Direction string         `json:"cached_direction"`
	Thought   string         `json:"current_thought"`
	Plan      string         `json:"current_plan"`
	Memories  []legacyMemory `json:"memories"`
}

type legacyInteraction struct {
	Tick         int      `json:"tick"`
	Participants []string `json:"participants"`
	Dialogue     string   `json:"dialogue"`
	Summary      string   `json:"summary"`
}

type legacyWorld struct {
	Tick               int                    `json:"tick"`
	Agents             map[string]legacyAgent `json:"agents"`
	RecentInteractions []legacyInteraction    `json:"recent_interactions"`
}

// Layouts seen in version 0 timestamps, which may lack a zone.
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseLegacyTime(s string) (time.Time, bool) {
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func upgradeV0(data []byte, gridSize int) (*sim.WorldState, error) {
	var lw legacyWorld
	if err := json.Unmarshal(data, &lw); err != nil {
		return nil, err
	}
	center := gridSize / 2

	names := make([]string, 0, len(lw.Agents))
	for name := range lw.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	w := sim.NewWorld(time.Time{})
	w.Tick = lw.Tick
	for _, key := range names {
		la := lw.Agents[key]
		name := la.Name
		if name == "" {
			name = key
		}
		a := &sim.AgentSnapshot{
			Name:         name,
			Traits:       la.Traits,
			Goal:         la.Goal,
			X:            center,
			Y:            center,
			State:        model.StatusIdle,
			ThinkCounter: la.Ticks,
			Direction:    model.ParseDirection(la.Direction),
			Thought:      la.Thought,
			Plan:         la.Plan,
			Memories:     memory.New(LegacyMemoryCapacity),
		}
		if la.X != nil {
			a.X = *la.X
		}
		if la.Y != nil {
			a.Y = *la.Y
		}
		switch st := model.Status(strings.ToUpper(la.State)); st {
		case model.StatusIdle, model.StatusMoving, model.StatusThinking, model.StatusTalking:
			a.State = st
		}
		mems := make([]model.Memory, 0, len(la.Memories))
		for _, lm := range la.Memories {
			m := model.Memory{
				ID:         lm.ID,
				Content:    model.TruncateContent(lm.Content),
				Kind:       model.Kind(lm.Type),
				Importance: lm.Importance,
			}
			if !model.ValidKinds[m.Kind] {
				m.Kind = model.KindObservation
			}
			if t, ok := parseLegacyTime(lm.Timestamp); ok {
				m.CreatedAt = t
			}
			mems = append(mems, m)
		}
		// Insert oldest first; undated memories go last and take the clock.
		sort.SliceStable(mems, func(i, j int) bool {
			ti, tj := mems[i].CreatedAt, mems[j].CreatedAt
			if ti.IsZero() {
				return false
			}
			return tj.IsZero() || ti.Before(tj)
		})
		for _, m := range mems {
			if _, err := a.Memories.Add(m); err != nil {
				return nil, fmt.Errorf("agent %s: %w", name, err)
			}
		}
		if err := w.AddAgent(a); err != nil {
			return nil, err
		}
	}

	for _, li := range lw.RecentInteractions {
		w.History = append(w.History, model.InteractionRecord{
			ID:           model.NewID(),
			Tick:         li.Tick,
			Participants: li.Participants,
			Dialogue:     li.Dialogue,
			Summary:      li.Summary,
		})
	}
	return w, nil
}
