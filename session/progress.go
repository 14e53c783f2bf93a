package session

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"

	"github.com/lixenwraith/roller/config"
	"github.com/lixenwraith/roller/event"
	"github.com/lixenwraith/roller/storage"
)

// Record is the stored best result of one level
type Record struct {
	Stars int         `json:"stars"`
	Stats RecordStats `json:"stats"`
}

// RecordStats is the run that earned the record
type RecordStats struct {
	Time    float64 `json:"time"`
	ParTime float64 `json:"parTime"`
}

// loadStored requests settings, progress, completed levels and the last
// level; each completion is applied on the frame thread
func (s *Session) loadStored() {
	if s.store == nil {
		return
	}

	epoch := s.settingsEpoch
	s.store.Load(storage.KeySettings, func(data []byte, ok bool, err error) {
		if err != nil || !ok {
			return
		}
		// A settings change made while the load was in flight wins
		if epoch != s.settingsEpoch {
			s.log.Debug("stale settings load dropped")
			return
		}
		st := s.settings
		if err := json.Unmarshal(data, &st); err != nil {
			s.log.Warn("stored settings unreadable, using defaults", "err", err)
			return
		}
		if err := st.Validate(); err != nil {
			s.log.Warn("stored settings invalid, using defaults", "err", err)
			return
		}
		s.applySettings(context.Background(), st)
	})

	s.store.Load(storage.KeyLevelProgress, func(data []byte, ok bool, err error) {
		if err != nil || !ok {
			return
		}
		stored := make(map[string]Record)
		if err := json.Unmarshal(data, &stored); err != nil {
			s.log.Warn("stored progress unreadable", "err", err)
			return
		}
		// Merge by best stars so a completion recorded before the load
		// finished is kept
		for k, rec := range stored {
			id, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			if cur, ok := s.progress[id]; !ok || rec.Stars > cur.Stars {
				s.progress[id] = rec
			}
		}
		// An earlier save may have replaced the stored document with
		// local results only
		for id, rec := range s.progress {
			if stored[strconv.Itoa(id)].Stars < rec.Stars {
				s.save(storage.KeyLevelProgress, s.progressDoc())
				break
			}
		}
	})

	s.store.Load(storage.KeyCompletedLevels, func(data []byte, ok bool, err error) {
		if err != nil || !ok {
			return
		}
		var ids []int
		if err := json.Unmarshal(data, &ids); err != nil {
			s.log.Warn("stored completed levels unreadable", "err", err)
			return
		}
		for _, id := range ids {
			if !slices.Contains(s.completed, id) {
				s.completed = append(s.completed, id)
			}
		}
		if len(s.completed) > len(ids) {
			s.save(storage.KeyCompletedLevels, slices.Clone(s.completed))
		}
	})

	s.store.Load(storage.KeyLastLevel, func(data []byte, ok bool, err error) {
		if err != nil || !ok {
			return
		}
		var id int
		if err := json.Unmarshal(data, &id); err == nil && s.lastLevel == 0 {
			s.lastLevel = id
		}
	})
}

// recordCompletion keeps the best star count per level and the completed
// list; returns whether the stored record improved
func (s *Session) recordCompletion(id, stars int, elapsed, par float64) bool {
	improved := false
	if cur, ok := s.progress[id]; !ok || stars > cur.Stars {
		s.progress[id] = Record{Stars: stars, Stats: RecordStats{Time: elapsed, ParTime: par}}
		improved = true
		s.save(storage.KeyLevelProgress, s.progressDoc())
	}
	if !slices.Contains(s.completed, id) {
		s.completed = append(s.completed, id)
		s.save(storage.KeyCompletedLevels, slices.Clone(s.completed))
	}
	return improved
}

// progressDoc snapshots progress for the worker, which encodes later
func (s *Session) progressDoc() map[string]Record {
	doc := make(map[string]Record, len(s.progress))
	for id, rec := range s.progress {
		doc[strconv.Itoa(id)] = rec
	}
	return doc
}

func (s *Session) save(key string, v any) {
	if s.store == nil {
		return
	}
	s.store.Save(key, v, func(err error) {
		if err != nil {
			s.log.Warn("save failed", "key", key, "err", err)
		}
	})
}

// applySettings pushes settings into the controller and announces them
func (s *Session) applySettings(ctx context.Context, st config.Settings) {
	s.settings = st
	s.ctrl.SetSensitivity(st.Sensitivity.Multiplier())
	if s.ctrl.UseTouchControls() != st.UseTouchControls {
		if err := s.ctrl.SetUseTouchControls(ctx, st.UseTouchControls); err != nil {
			s.log.Warn("input source switch failed", "err", err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(event.TopicSettingsChange, event.SettingsPayload{
			MusicVolume: st.MusicVolume,
			SfxVolume:   st.SfxVolume,
			Quality:     string(st.Quality),
		})
	}
}

// LevelStars returns the best stars recorded for id, 0 when never completed
func (s *Session) LevelStars(id int) int { return s.progress[id].Stars }

// CompletedLevels returns the completed level ids in completion order
func (s *Session) CompletedLevels() []int { return slices.Clone(s.completed) }

// LastLevel returns the last started level, false when none is known
func (s *Session) LastLevel() (int, bool) { return s.lastLevel, s.lastLevel != 0 }

// Settings returns the active settings
func (s *Session) Settings() config.Settings { return s.settings }
