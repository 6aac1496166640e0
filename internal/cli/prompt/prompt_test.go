package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotEmpty(t *testing.T) {
	validate := NotEmpty("phone number")

	assert.NoError(t, validate("5511999990000"))
	assert.EqualError(t, validate("   "), "phone number is required")
	assert.EqualError(t, validate(""), "phone number is required")
}
