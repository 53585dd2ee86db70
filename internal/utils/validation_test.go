package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ValidatePhoneNumber(t *testing.T) {
	testCases := []struct {
		phoneNumber string
		wantErr     error
	}{
		{"", ErrEmptyPhoneNumber},
		{"notvalidphone", ErrInvalidE164PhoneNumber},
		{"14155555555", ErrInvalidE164PhoneNumber},
		{"+380445555555", nil},
		{"+14155555555x4444", ErrInvalidE164PhoneNumber},
		{"+1 415 555 5555", ErrInvalidE164PhoneNumber},
		{"+05555555555", ErrInvalidE164PhoneNumber},
		{"++5555555555", ErrInvalidE164PhoneNumber},
		{"+15555555555", ErrInvalidE164PhoneNumber},
		{"+14155555555", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.phoneNumber, func(t *testing.T) {
			gotError := ValidatePhoneNumber(tc.phoneNumber)
			assert.Equalf(t, tc.wantErr, gotError, "ValidatePhoneNumber(%q) should be %v, but got %v", tc.phoneNumber, tc.wantErr, gotError)
		})
	}
}

func Test_ValidateEmail(t *testing.T) {
	testCases := []struct {
		email   string
		wantErr error
	}{
		{"", ErrEmptyEmail},
		{"notvalidemail", ErrInvalidEmail},
		{"valid@test.com", nil},
		{"valid+1@test.com", nil},
		{"a@acme.com", nil},
		{"@test.com", ErrInvalidEmail},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			assert.Equal(t, tc.wantErr, ValidateEmail(tc.email))
		})
	}
}

func Test_ValidateDNS(t *testing.T) {
	assert.NoError(t, ValidateDNS("acme-co.crm.example.com"))
	assert.EqualError(t, ValidateDNS("not a domain"), `"not a domain" is not a valid DNS name`)
}

func Test_NormalizeHost(t *testing.T) {
	assert.Equal(t, "acme.crm.example.com", NormalizeHost("ACME.crm.example.com:8000"))
	assert.Equal(t, "acme.crm.example.com", NormalizeHost(" acme.crm.example.com. "))
	assert.Equal(t, "", NormalizeHost(""))
}
