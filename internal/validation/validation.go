// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validation wraps go-playground/validator behind a shared instance
// and converts its field errors into *types.ValidationError.
package validation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Struct validates v against its `validate` tags. The first failing field
// is returned as a *types.ValidationError.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &types.ValidationError{
			Field:  fe.Namespace(),
			Value:  fe.Value(),
			Reason: reason(fe),
		}
	}
	return &types.ValidationError{Field: "struct", Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "required":
		return "is required"
	}
	return fmt.Sprintf("failed %q", fe.Tag())
}
