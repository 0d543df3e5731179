// internal/models/masters.go
package models

import "time"

// District is the top level of the masters location hierarchy.
type District struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Taluka belongs to exactly one district.
type Taluka struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	DistrictCode string    `json:"districtCode"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// Village belongs to a taluka; the district code is denormalised from the
// parent taluka so address lookups need a single read.
type Village struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	TalukaCode   string    `json:"talukaCode"`
	DistrictCode string    `json:"districtCode"`
	Pincode      string    `json:"pincode"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// MastersData is the full reference hierarchy as served to clients.
type MastersData struct {
	Districts []District `json:"districts"`
	Talukas   []Taluka   `json:"talukas"`
	Villages  []Village  `json:"villages"`
}
