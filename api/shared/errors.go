/* errors.go
 * Contains the error values shared between the api, bot and web packages, and the
 * structured error types carried back to callers for display
 */

package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across services and HTTP status mapping
var (
	// Validation and business rules
	ErrValidation             = errors.New("validation failed")
	ErrUnknownBracket         = errors.New("unknown bracket label")
	ErrInvalidTournamentType  = errors.New("invalid tournament type")
	ErrInvalidCapacity        = errors.New("tournament max slots must be positive")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTeamNameConflict       = errors.New("team name already exists")
	ErrUserAlreadyInTeam      = errors.New("user is already in a team")

	// Join conflicts
	ErrAlreadyJoined    = errors.New("already registered for this tournament")
	ErrTournamentFull   = errors.New("tournament registration is full")
	ErrTournamentLocked = errors.New("tournament is locked")

	// Authorization
	ErrNoTeam      = errors.New("player is not a member of any team")
	ErrNotCaptain  = errors.New("only the team captain can perform this action")
	ErrNotOperator = errors.New("operation requires a tournament operator")

	// Missing resources
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrParticipantNotFound = errors.New("participant registration not found")

	// External collaborators
	ErrExternalService = errors.New("external service unavailable")
)

// NotEligibleError carries every violated eligibility rule so the caller can
// display them all in one response rather than failing on the first
type NotEligibleError struct {
	Violations []string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s", strings.Join(e.Violations, "; "))
}

// DeliveryFailure records a single failed direct message in a batch send
type DeliveryFailure struct {
	Recipient Recipient
	Reason    string
}

// PartialDeliveryError is returned when a batch notification delivered to some
// recipients but not all. The operation that triggered the batch is still
// considered committed.
type PartialDeliveryError struct {
	Failed []DeliveryFailure
}

func (e *PartialDeliveryError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.Recipient.Username)
	}
	return fmt.Sprintf("failed to deliver to %d recipient(s): %s", len(e.Failed), strings.Join(names, ", "))
}
