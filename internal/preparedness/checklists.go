// Package preparedness serves the static safety checklists.
package preparedness

import "github.com/mr1hm/safespot-alerts/internal/models"

var checklists = map[models.HazardType][]string{
	models.HazardTypeEarthquake: {
		"Drop, Cover, and Hold On during shaking",
		"Stay away from windows and heavy objects",
		"If outdoors, move away from buildings and power lines",
		"If driving, pull over and stay in vehicle",
		"Check for injuries and hazards after shaking stops",
		"Turn off gas if you smell leaks",
		"Use stairs, never elevators",
		"Listen to emergency broadcasts",
		"Be prepared for aftershocks",
		"Have emergency kit ready: water, food, flashlight, radio",
	},
	models.HazardTypeFlood: {
		"Move to higher ground immediately",
		"Avoid walking or driving through flood waters",
		"Turn off utilities if instructed to do so",
		"Listen to emergency broadcasts",
		"Stay away from downed power lines",
		"Don't drink flood water",
		"Evacuate if told to do so",
		"Have emergency supplies ready",
		"Document damage with photos",
		"Wait for all-clear before returning home",
	},
	models.HazardTypeWildfire: {
		"Evacuate immediately if ordered",
		"Close all windows and doors",
		"Remove flammable materials from around house",
		"Turn off gas utilities",
		"Leave lights on to help firefighters see your home",
		"Take evacuation routes away from fire",
		"Listen to emergency broadcasts",
		"Have go-bag ready with essentials",
		"Don't return until authorities say it's safe",
		"Watch for spot fires and flare-ups",
	},
}

// Checklist returns a copy of the checklist for t.
func Checklist(t models.HazardType) ([]string, bool) {
	items, ok := checklists[t]
	if !ok {
		return nil, false
	}
	return append([]string(nil), items...), true
}

// Types lists the hazard types that have a checklist.
func Types() []models.HazardType {
	return []models.HazardType{models.HazardTypeEarthquake, models.HazardTypeFlood, models.HazardTypeWildfire}
}
