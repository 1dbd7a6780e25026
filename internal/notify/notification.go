// Package notify turns alerts into notifications and delivers them to the
// configured sinks.
package notify

import (
	"time"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

const (
	titleCritical = "🚨 CRITICAL ALERT"
	titleModerate = "⚠️ SafeSpot Alert"
)

type Notification struct {
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Priority    Priority           `json:"priority"`
	HazardID    string             `json:"hazardId"`
	HazardType  models.HazardType  `json:"hazardType"`
	Criticality models.Criticality `json:"criticality"`
	SentAt      time.Time          `json:"sentAt"`
}

func FromAlert(a models.Alert) Notification {
	n := Notification{
		Title:       titleModerate,
		Body:        a.Hazard.EventLabel + " detected near your location",
		Priority:    PriorityNormal,
		HazardID:    a.HazardID,
		HazardType:  a.Hazard.Type,
		Criticality: a.Criticality,
		SentAt:      a.DetectedAt,
	}
	if a.Criticality == models.CriticalityCritical {
		n.Title = titleCritical
		n.Priority = PriorityHigh
	}
	return n
}
