package service

import (
	"errors"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("handler: %w", newError(ErrValidation, "email: required", "size: too big"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "handler: validation failed: email: required; size: too big", err.Error())
	assert.Equal(t, []string{"email: required", "size: too big"}, Messages(err))
}

func TestMessagesFallbacks(t *testing.T) {
	assert.Equal(t, []string{"not found"}, Messages(ErrNotFound))
	assert.Equal(t, []string{"unauthorized"}, Messages(newError(ErrUnauthorized)))
	assert.Nil(t, Messages(errors.New("boom")))
}

func TestFromValidation(t *testing.T) {
	err := fromValidation(validation.Errors{
		"lastName": errors.New("cannot be blank"),
		"email":    errors.New("must be a valid email address"),
		"address":  nil,
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, []string{"email: must be a valid email address", "lastName: cannot be blank"}, Messages(err))

	assert.NoError(t, fromValidation(nil))
}
