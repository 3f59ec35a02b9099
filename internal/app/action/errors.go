package action

import (
	"errors"

	"satfarm/internal/domain/farm"
)

var (
	ErrInvalidRequest      = errors.New("invalid action request")
	ErrInvalidActionParams = errors.New("invalid action params")
)

// ActionRejectedError carries the context of a refused action. It unwraps to
// the domain sentinel that caused the refusal.
type ActionRejectedError struct {
	ParcelID int
	Action   farm.ActionType
	Cost     int
	Reason   error
}

func (e *ActionRejectedError) Error() string {
	return e.Reason.Error()
}

func (e *ActionRejectedError) Unwrap() error {
	return e.Reason
}

// ReasonCode is the stable machine-readable name of a rejection.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, farm.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, farm.ErrParcelEmpty):
		return "parcel_empty"
	case errors.Is(err, farm.ErrParcelOccupied):
		return "parcel_occupied"
	case errors.Is(err, farm.ErrUnknownCrop):
		return "unknown_crop"
	case errors.Is(err, farm.ErrUnknownAction):
		return "unknown_action"
	default:
		return ""
	}
}
