package validator

import (
	"context"
	"errors"
	"regexp"

	"github.com/go-playground/validator"
)

var (
	global     *validator.Validate
	natidRegex = regexp.MustCompile(`^[A-Za-z0-9]{8,32}$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrUnknownValidation  = "Unknown validation error"
)

var internshipTracks = map[string]struct{}{
	"Software":           {},
	"Networking":         {},
	"Data Science":       {},
	"Cybersecurity":      {},
	"Web Development":    {},
	"Mobile Development": {},
}

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("track", validateTrack)
	_ = v.RegisterValidation("attendmode", validateAttendMode)
	_ = v.RegisterValidation("natid", validateNationalID)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validateTrack(fl validator.FieldLevel) bool {
	_, ok := internshipTracks[fl.Field().String()]
	return ok
}

func validateAttendMode(fl validator.FieldLevel) bool {
	m := fl.Field().String()
	return m == "Online" || m == "Physical"
}

func validateNationalID(fl validator.FieldLevel) bool {
	return natidRegex.MatchString(fl.Field().String())
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

// parseValidationErrors keeps only the first violation: callers surface a
// single field-level message, not the full list.
func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "email":
		msg = "Must be a valid email address"
	case "uuid4":
		msg = "Must be a valid UUID"
	case "track":
		msg = "Unknown internship field"
	case "attendmode":
		msg = "Mode must be Online or Physical"
	case "natid":
		msg = "National ID must be 8-32 alphanumeric characters"
	case "oneof":
		msg = "Value is not allowed"
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Namespace())
}
