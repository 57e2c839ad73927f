package models

import "time"

// Location is a geofenced point of interest. Radius is in meters.
type Location struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	Radius    float64   `gorm:"not null" json:"radius"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
