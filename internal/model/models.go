package model

import (
	"database/sql"
	"time"
)

// Pin is a saved coordinate of interest on the travel map.
type Pin struct {
	ID        string // UUID
	Latitude  float64
	Longitude float64
	Title     string // Placemark from reverse geocoding, e.g. "Lisbon, Portugal"
	CreatedAt time.Time
}

// Photo is a downloaded-or-pending image belonging to one Pin.
type Photo struct {
	ID        string // UUID
	PinID     string // Foreign key to Pin
	Position  int    // Order within the pin's album
	URL       string // Remote reference; empty when absent
	Data      []byte // Payload; nil until downloaded
	Width     int
	Height    int
	CreatedAt time.Time
	FetchedAt sql.NullTime // When Data was stored
}

// HasData reports whether the photo's payload has been downloaded.
func (p *Photo) HasData() bool {
	return p.Data != nil
}

// Viewport is the last map region the user looked at.
type Viewport struct {
	CenterLatitude  float64
	CenterLongitude float64
	SpanLatitude    float64
	SpanLongitude   float64
}

// Operation records a CLI command that mutated the journal.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}
