package models

import "time"

// Snapshot is the full result of one successful fetch cycle. A new snapshot
// replaces the previous one wholesale; hazards are never merged.
type Snapshot struct {
	Earthquakes []HazardRecord `json:"earthquakes"`
	Alerts      []HazardRecord `json:"alerts"`
	FetchedAt   time.Time      `json:"lastUpdated"`
}

// All returns earthquakes followed by weather alerts.
func (s Snapshot) All() []HazardRecord {
	all := make([]HazardRecord, 0, len(s.Earthquakes)+len(s.Alerts))
	all = append(all, s.Earthquakes...)
	return append(all, s.Alerts...)
}

// IDs returns the combined hazard id set of both feeds.
func (s Snapshot) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Earthquakes)+len(s.Alerts))
	for _, h := range s.Earthquakes {
		ids[h.ID] = struct{}{}
	}
	for _, h := range s.Alerts {
		ids[h.ID] = struct{}{}
	}
	return ids
}

func (s Snapshot) Len() int {
	return len(s.Earthquakes) + len(s.Alerts)
}
