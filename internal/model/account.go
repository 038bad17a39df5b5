package model

import "time"

// Account represents the business entity being profiled.
type Account struct {
	ID          int64     `json:"id"`
	CompanyName string    `json:"company_name"` // Unique
	Industry    string    `json:"industry,omitempty"`
	CompanySize string    `json:"company_size,omitempty"`
	Website     string    `json:"website,omitempty"`
	Country     string    `json:"country"` // Required
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
