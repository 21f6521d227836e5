// Package lifecycle implements the alert status workflow. The graph is
// permissive: every status may move to every other, including
// resolved back to new.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// transitions lists, for each status, the statuses it may move to.
var transitions = func() map[models.Status]map[models.Status]bool {
	t := make(map[models.Status]map[models.Status]bool, len(models.Statuses))
	for _, from := range models.Statuses {
		t[from] = make(map[models.Status]bool, len(models.Statuses))
		for _, to := range models.Statuses {
			t[from][to] = true
		}
	}
	return t
}()

// ErrInvalidStatus is returned for a status outside the known set.
var ErrInvalidStatus = errors.New("invalid status")

// CanTransition reports whether an alert in from may move to to.
func CanTransition(from, to models.Status) bool {
	return transitions[from][to]
}

// Stamp describes the first-entry timestamps a transition must set.
type Stamp struct {
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

// StampFor returns the timestamps to set when entering to at now. Stores
// apply them only where the column is still null, so re-entering a state
// never overwrites the first value.
func StampFor(to models.Status, now time.Time) Stamp {
	switch to {
	case models.StatusAcknowledged:
		return Stamp{AcknowledgedAt: &now}
	case models.StatusResolved:
		return Stamp{ResolvedAt: &now}
	default:
		return Stamp{}
	}
}

// Validate checks that to is a known status reachable from from.
func Validate(from, to models.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidStatus, from, to)
	}
	return nil
}

// Apply moves a in memory to status to at now, honoring first-entry
// stamping. It is the reference behavior the Postgres store mirrors with
// COALESCE.
func Apply(a *models.Alert, to models.Status, now time.Time) error {
	if err := Validate(a.Status, to); err != nil {
		return err
	}
	stamp := StampFor(to, now)
	if stamp.AcknowledgedAt != nil && a.AcknowledgedAt == nil {
		a.AcknowledgedAt = stamp.AcknowledgedAt
	}
	if stamp.ResolvedAt != nil && a.ResolvedAt == nil {
		a.ResolvedAt = stamp.ResolvedAt
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}
