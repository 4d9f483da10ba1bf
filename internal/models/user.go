package models

// User represents the user fields needed for display-name enrichment
type User struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}
