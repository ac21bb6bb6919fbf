package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeConflict)
	assert.Equal(t, http.StatusConflict, meta.HTTPStatus)

	meta = MetadataFor(CodeCapacity)
	assert.Equal(t, http.StatusUnprocessableEntity, meta.HTTPStatus)
	assert.True(t, meta.Retryable)

	meta = MetadataFor(CodeNoEligibleWorker)
	assert.Equal(t, http.StatusUnprocessableEntity, meta.HTTPStatus)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row not found")
	err := Wrap(CodeNotFound, cause, "load assignment")

	require.Equal(t, CodeNotFound, err.Code())
	assert.Equal(t, "load assignment", err.Message())
	assert.True(t, stdErrors.Is(err, cause))
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeStateConflict, "already taken")
	outer := fmt.Errorf("take assignment: %w", inner)

	typed := As(outer)
	require.NotNil(t, typed)
	assert.Equal(t, CodeStateConflict, typed.Code())
}

func TestHasCode(t *testing.T) {
	err := New(CodeAttemptLimit, "callback attempts exhausted")
	assert.True(t, HasCode(err, CodeAttemptLimit))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(stdErrors.New("plain"), CodeConflict))
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad input").WithDetails(map[string]string{"field": "serviceType"})
	details, ok := err.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "serviceType", details["field"])
}
