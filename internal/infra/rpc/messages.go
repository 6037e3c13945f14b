package rpc

import "time"

type CheckAvailabilityRequest struct {
	PropertyID           string    `json:"property_id"`
	CheckIn              time.Time `json:"check_in"`
	CheckOut             time.Time `json:"check_out"`
	Units                int       `json:"units"`
	ExcludeReservationID string    `json:"exclude_reservation_id,omitempty"`
	IncludeAlternatives  bool      `json:"include_alternatives,omitempty"`
	MaxAlternatives      int       `json:"max_alternatives,omitempty"`
	SearchRadiusDays     int       `json:"search_radius_days,omitempty"`
}

type FindAlternativesRequest struct {
	PropertyID           string    `json:"property_id"`
	CheckIn              time.Time `json:"check_in"`
	CheckOut             time.Time `json:"check_out"`
	Units                int       `json:"units"`
	ExcludeReservationID string    `json:"exclude_reservation_id,omitempty"`
	MaxResults           int       `json:"max_results,omitempty"`
	SearchRadiusDays     int       `json:"search_radius_days,omitempty"`
}

type DetectConflictsRequest struct {
	PropertyID    string `json:"property_id,omitempty"`
	CheckCapacity bool   `json:"check_capacity,omitempty"`
}
