package messages

import "time"

// PackageStatusChanged is published after a package is registered or its
// status history grows. Key: tracking number.
type PackageStatusChanged struct {
	PackageID      string    `json:"package_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	Location       string    `json:"location,omitempty"`
	Note           string    `json:"note,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}
