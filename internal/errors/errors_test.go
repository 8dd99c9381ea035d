package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrCodeConflict, "Only draft invoices can be sent")
	assert.Equal(t, "Only draft invoices can be sent", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeInternal, "failed to load invoice")

	assert.Equal(t, "failed to load invoice: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeInternal, CodeOf(err))
}

func TestNotFound(t *testing.T) {
	err := NotFound("Invoice", "inv-42")
	assert.Equal(t, "Invoice not found: inv-42", err.Error())
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("sourceType", "must be 'user' or 'ai'")
	assert.Equal(t, "invalid sourceType: must be 'user' or 'ai'", err.Error())
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeConflict, CodeOf(Newf(ErrCodeConflict, "busy: %d", 3)))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))

	// Codes survive fmt wrapping.
	wrapped := fmt.Errorf("approve: %w", NotFound("Template", "tpl-1"))
	assert.Equal(t, ErrCodeNotFound, CodeOf(wrapped))
}

func TestIsMatchesOnCode(t *testing.T) {
	assert.ErrorIs(t, NotFound("Matter", "m1"), New(ErrCodeNotFound, ""))
	assert.NotErrorIs(t, NotFound("Matter", "m1"), New(ErrCodeConflict, ""))
}
