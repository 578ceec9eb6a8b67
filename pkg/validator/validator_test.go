package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	ID       uuid.UUID `validate:"uuid_required"`
	Category string    `validate:"required,expense_category"`
}

func TestCustomTags(t *testing.T) {
	assert.NoError(t, Validate(&sample{ID: uuid.New(), Category: "Compra de Inventario"}))

	errs := ValidateStruct(&sample{Category: "Luz"})
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "sample.ID", errs[0].FailedField)
		assert.Equal(t, "uuid_required", errs[0].Tag)
	}

	err := Validate(&sample{ID: uuid.New(), Category: "Comida"})
	assert.EqualError(t, err, "Validation failed: Field 'sample.Category' failed on tag 'expense_category'")
}
