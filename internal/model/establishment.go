package model

import "time"

// Establishment is a verified sourdough pizza restaurant as stored.
type Establishment struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address,omitempty"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	Phone       string       `json:"phone,omitempty"`
	Website     string       `json:"website,omitempty"`
	Description string       `json:"description"`
	Keywords    []string     `json:"keywords"`
	Confidence  Confidence   `json:"confidence"`
	Sources     []SourceKind `json:"sources"`
	Rating      *float64     `json:"rating,omitempty"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
