package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type booking struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required,oneof=regular urgent follow"`
	Note string `json:"note" validate:"max=5"`
}

func TestValidateReportsFieldsByJSONName(t *testing.T) {
	err := New().Validate(&booking{Type: "walk-in", Note: "too long"})
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrValidation, appErr.Code)
	assert.Equal(t, "is required", appErr.Fields["name"])
	assert.Equal(t, "must be one of: regular urgent follow", appErr.Fields["type"])
	assert.Equal(t, "must be at most 5", appErr.Fields["note"])
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, New().Validate(&booking{Name: "Alice", Type: "urgent"}))
}
