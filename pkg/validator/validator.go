package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

// ExpenseCategories lists the accepted expense categories.
var ExpenseCategories = []string{
	"Compra de Inventario",
	"Expensas",
	"Luz",
	"Internet",
	"Agua",
	"Otros",
}

var validate = validator.New()

func init() {
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})

	// oneof cannot express values containing spaces
	validate.RegisterValidation("expense_category", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, c := range ExpenseCategories {
			if c == value {
				return true
			}
		}
		return false
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, err := range validationErrs {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// Validate returns the first validation failure as an error, or nil.
func Validate(data interface{}) error {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return fmt.Errorf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag)
}
