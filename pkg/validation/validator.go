package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/richxcame/fleet-engine/pkg/common"
)

var (
	// Validate is the global validator instance
	Validate *validator.Validate

	weatherConditions = []string{"CLEAR", "CLOUDY", "RAIN", "SNOW", "FOG", "STORM"}
	taskPriorities    = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
	taskStatuses      = []string{"PENDING", "IN_PROGRESS", "COMPLETED", "CANCELLED"}
	bookingTypes      = []string{"STANDARD", "PREMIUM", "GROUP", "BUSINESS"}
)

func init() {
	Validate = validator.New()

	// Register custom validators
	_ = Validate.RegisterValidation("latitude", validateLatitude)
	_ = Validate.RegisterValidation("longitude", validateLongitude)
	_ = Validate.RegisterValidation("weather_condition", oneOf(weatherConditions))
	_ = Validate.RegisterValidation("task_priority", oneOf(taskPriorities))
	_ = Validate.RegisterValidation("task_status", oneOf(taskStatuses))
	_ = Validate.RegisterValidation("booking_type", oneOf(bookingTypes))
}

// FieldError describes a single failed rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value string `json:"value,omitempty"`
}

// NewValidationError converts validator errors into a 400 AppError listing
// every failing field.
func NewValidationError(errs validator.ValidationErrors) *common.AppError {
	fields := make([]FieldError, 0, len(errs))
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Value: fmt.Sprintf("%v", fe.Value()),
		})
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}

	appErr := common.NewValidationError(strings.Join(parts, "; "))
	appErr.Err = fmt.Errorf("%w: %d field(s)", common.ErrValidation, len(fields))
	return appErr
}

// ValidateStruct validates a struct and returns an AppError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// validateLatitude checks if latitude is within valid range (-90 to 90)
func validateLatitude(fl validator.FieldLevel) bool {
	latitude := fl.Field().Float()
	return latitude >= -90.0 && latitude <= 90.0
}

// validateLongitude checks if longitude is within valid range (-180 to 180)
func validateLongitude(fl validator.FieldLevel) bool {
	longitude := fl.Field().Float()
	return longitude >= -180.0 && longitude <= 180.0
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if a == value {
				return true
			}
		}
		return false
	}
}

// ValidateCoordinates validates latitude and longitude
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90.0 || latitude > 90.0 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", latitude)
	}
	if longitude < -180.0 || longitude > 180.0 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", longitude)
	}
	return nil
}
