package core

import (
	"errors"
	"testing"

	"skycast/internal/types"
)

type validatedInput struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
	Name      string  `validate:"required"`
}

func TestValidateStruct_Valid(t *testing.T) {
	v := NewValidator(nil)

	input := validatedInput{Latitude: 41.9, Longitude: -87.6, Name: "chicago"}
	if err := v.ValidateStruct(input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	v := NewValidator(nil)

	input := validatedInput{Latitude: 200, Longitude: 0}
	err := v.ValidateStruct(input)

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeValidationInvalidParams {
		t.Fatalf("code = %s, want %s", appErr.Code, types.ErrCodeValidationInvalidParams)
	}
	if appErr.HTTPStatus() != 400 {
		t.Fatalf("HTTPStatus = %d, want 400", appErr.HTTPStatus())
	}
	if _, ok := appErr.Details["Latitude"]; !ok {
		t.Errorf("expected Latitude in details, got %v", appErr.Details)
	}
	if _, ok := appErr.Details["Name"]; !ok {
		t.Errorf("expected Name in details, got %v", appErr.Details)
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	v := NewValidator(nil)

	err := v.ValidateStruct("not a struct")

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeInternalUnexpected {
		t.Fatalf("code = %s, want %s", appErr.Code, types.ErrCodeInternalUnexpected)
	}
}
