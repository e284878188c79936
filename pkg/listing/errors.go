package listing

import "github.com/mealboard/marketplace/pkg/controller"

var (
	// ErrNotFound is returned when no listing has the requested id.
	ErrNotFound = controller.NewError(controller.KindNotFound, "listing.not_found", "listing not found")
	// ErrInvalidArgument is returned for malformed filter, create or update input.
	ErrInvalidArgument = controller.NewError(controller.KindInvalidArgument, "listing.invalid_argument", "invalid listing request")
	// ErrDuplicateSequence is returned when a sequence number is already taken.
	ErrDuplicateSequence = controller.NewError(controller.KindConflict, "listing.sequence_conflict", "sequence number already assigned")
)

func invalid(field, message string) error {
	return ErrInvalidArgument.
		WithMessage(message).
		WithDetails(map[string]interface{}{"field": field})
}

func internal(message string, cause error) error {
	return controller.NewInternalError(message, cause)
}
