package model

import "time"

// Setting is a key/value site setting managed from the back office.
type Setting struct {
	Key         string    `json:"key" db:"setting_key"`
	Value       string    `json:"value" db:"setting_value"`
	Description string    `json:"description" db:"description"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultSettings are seeded into an empty store.
var DefaultSettings = []Setting{
	{Key: "site_name", Value: "LaserCalc Pro", Description: "Site name", IsPublic: true},
	{Key: "site_url", Value: "https://lasercalcpro.com", Description: "Site URL", IsPublic: true},
	{Key: "admin_email", Value: "admin@lasercalcpro.com", Description: "Administrator email"},
	{Key: "ga4_measurement_id", Value: "", Description: "Google Analytics 4 measurement ID", IsPublic: true},
	{Key: "gsc_property_url", Value: "", Description: "Google Search Console property URL"},
	{Key: "adsense_client_id", Value: "", Description: "Google AdSense client ID", IsPublic: true},
	{Key: "adsense_enabled", Value: "false", Description: "Enable AdSense ads", IsPublic: true},
	{Key: "maintenance_mode", Value: "false", Description: "Maintenance mode", IsPublic: true},
	{Key: "allow_registrations", Value: "true", Description: "Allow newsletter registrations", IsPublic: true},
}
