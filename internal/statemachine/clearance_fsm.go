package statemachine

import (
	"context"
	"fmt"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/looplab/fsm"
)

// ClearanceFSM wraps an applicant's clearance status with its state machine
type ClearanceFSM struct {
	applicant *models.Applicant
	fsm       *fsm.FSM
}

// NewClearanceFSM creates a state machine seeded with the applicant's
// current status.
func NewClearanceFSM(applicant *models.Applicant) *ClearanceFSM {
	c := &ClearanceFSM{
		applicant: applicant,
	}

	c.fsm = fsm.NewFSM(
		applicant.Status,
		fsm.Events{
			// pending / not cleared → cleared
			{Name: "clear", Src: []string{models.StatusPending, models.StatusNotCleared}, Dst: models.StatusCleared},

			// pending / cleared → not cleared
			{Name: "deny", Src: []string{models.StatusPending, models.StatusCleared}, Dst: models.StatusNotCleared},

			// cleared / not cleared → pending (review reopened)
			{Name: "reopen", Src: []string{models.StatusCleared, models.StatusNotCleared}, Dst: models.StatusPending},
		},
		fsm.Callbacks{},
	)

	return c
}

// TransitionTo moves the applicant to the target status. A no-op when the
// applicant is already in that status.
func (c *ClearanceFSM) TransitionTo(ctx context.Context, status string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("unknown clearance status: %s", status)
	}
	if c.applicant.Status == status {
		return nil
	}

	var event string
	switch status {
	case models.StatusCleared:
		event = "clear"
	case models.StatusNotCleared:
		event = "deny"
	case models.StatusPending:
		event = "reopen"
	}

	if err := c.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("cannot move applicant from %s to %s: %w", c.applicant.Status, status, err)
	}

	c.applicant.Status = c.fsm.Current()
	return nil
}

// Current returns the status the machine is in.
func (c *ClearanceFSM) Current() string {
	return c.fsm.Current()
}
