package models

type Shelter struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Capacity  int     `json:"capacity"`
	Type      string  `json:"type"`
}

type ShelterDistance struct {
	Shelter
	DistanceKm float64 `json:"distanceKm"`
}
