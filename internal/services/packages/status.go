package packages

import (
	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/models"
)

// transitions lists, for each status, the statuses it may move to.
// Self moves record another scan without changing the status.
var transitions = map[string]map[string]struct{}{
	models.PackageStatusPending: set(
		models.PackageStatusProcessing,
		models.PackageStatusException,
	),
	models.PackageStatusProcessing: set(
		models.PackageStatusProcessing,
		models.PackageStatusInTransit,
		models.PackageStatusException,
	),
	models.PackageStatusInTransit: set(
		models.PackageStatusInTransit,
		models.PackageStatusDelivered,
		models.PackageStatusException,
	),
	models.PackageStatusException: set(
		models.PackageStatusException,
		models.PackageStatusProcessing,
		models.PackageStatusInTransit,
	),
	models.PackageStatusDelivered: set(),
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func IsKnownStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

func checkTransition(to string) func(from string) error {
	return func(from string) error {
		if !CanTransition(from, to) {
			return apperr.Conflict("Cannot change status from %s to %s", from, to)
		}
		return nil
	}
}
