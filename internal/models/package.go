package models

import "time"

// Package lifecycle statuses. The allowed moves between them live in the
// packages service.
const (
	PackageStatusPending    = "Pending"
	PackageStatusProcessing = "Processing"
	PackageStatusInTransit  = "In Transit"
	PackageStatusDelivered  = "Delivered"
	PackageStatusException  = "Exception"
)

const TrackingNumberPrefix = "SR-"

type PackageImage struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type StatusEvent struct {
	Status    string    `json:"status"`
	Location  string    `json:"location"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

type Package struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user,omitempty"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	ExternalTracking string        `json:"externalTracking,omitempty"`
	TrackingNumber   string        `json:"trackingNumber"`
	Status           string        `json:"status"`
	PackageImage     PackageImage  `json:"packageImage"`
	History          []StatusEvent `json:"history"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type PackageCreateInput struct {
	Title            string
	Description      string
	ExternalTracking string
}

type StatusUpdateInput struct {
	Status   string `json:"status" validate:"required"`
	Location string `json:"location"`
	Note     string `json:"note"`
}
