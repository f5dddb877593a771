package model

import "time"

// Company is a tenant. Every tool, user and batch belongs to one.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
