package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signInForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type sendForm struct {
	Phone   string `json:"phone" validate:"required,phone"`
	Message string `json:"message" validate:"required,max=160"`
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(signInForm{Email: "a@example.com", Password: "x"}))
	assert.NoError(t, v.Struct(sendForm{Phone: "+55 11 99999-0000", Message: "hi"}))
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := New().Struct(signInForm{})
	require.Error(t, err)

	verrs, ok := err.(*Errors)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"email":    "E-mail is required",
		"password": "Password is required",
	}, verrs.Fields)
}

func TestStruct_Messages(t *testing.T) {
	tests := []struct {
		name  string
		input any
		field string
		want  string
	}{
		{"bad email", signInForm{Email: "nope", Password: "x"}, "email", "Enter a valid e-mail"},
		{"letters in phone", sendForm{Phone: "call me", Message: "hi"}, "phone", "Enter a valid phone number"},
		{"short phone", sendForm{Phone: "123", Message: "hi"}, "phone", "Enter a valid phone number"},
		{"plus in middle", sendForm{Phone: "5511+99990000", Message: "hi"}, "phone", "Enter a valid phone number"},
		{"long message", sendForm{Phone: "5511999990000", Message: string(make([]byte, 161))}, "message", "Message must be at most 160 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Struct(tt.input)
			require.Error(t, err)
			verrs, ok := err.(*Errors)
			require.True(t, ok)
			assert.Equal(t, tt.want, verrs.Field(tt.field))
		})
	}
}

func TestErrors_Error(t *testing.T) {
	err := &Errors{Fields: map[string]string{"password": "Password is required", "email": "E-mail is required"}}
	assert.Equal(t, "validation failed: email: E-mail is required; password: Password is required", err.Error())

	var nilErrs *Errors
	assert.Empty(t, nilErrs.Field("email"))
}
