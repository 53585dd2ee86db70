package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 16
	// minEncryptablePasswordLength is the shortest password the encrypter accepts, including operator-chosen ones.
	minEncryptablePasswordLength  = 8
	maxPasswordGenerationAttempts = 20
)

var ErrPasswordTooShort = fmt.Errorf("password should have at least %d characters", minEncryptablePasswordLength)

// PasswordEncrypter hashes passwords and checks plain passwords against stored hashes.
type PasswordEncrypter interface {
	Encrypt(ctx context.Context, password string) (string, error)
	ComparePassword(ctx context.Context, encryptedPassword, password string) (bool, error)
}

// BcryptPasswordEncrypter stores passwords as bcrypt hashes.
type BcryptPasswordEncrypter struct {
	cost int
}

func NewBcryptPasswordEncrypter(cost int) *BcryptPasswordEncrypter {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordEncrypter{cost: cost}
}

func (e *BcryptPasswordEncrypter) Encrypt(_ context.Context, password string) (string, error) {
	if len(password) < minEncryptablePasswordLength {
		return "", ErrPasswordTooShort
	}

	encryptedPassword, err := bcrypt.GenerateFromPassword([]byte(password), e.cost)
	if err != nil {
		return "", fmt.Errorf("encrypting password: %w", err)
	}

	return string(encryptedPassword), nil
}

func (e *BcryptPasswordEncrypter) ComparePassword(_ context.Context, encryptedPassword, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encryptedPassword), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, fmt.Errorf("comparing encrypted password and password: %w", err)
	}
	return err == nil, nil
}

var _ PasswordEncrypter = (*BcryptPasswordEncrypter)(nil)

// GeneratePassword returns a random password between MinPasswordLength and MaxPasswordLength characters long that
// contains at least one lowercase letter, uppercase letter, digit and special character.
func GeneratePassword() (string, error) {
	for range maxPasswordGenerationAttempts {
		length, err := utils.RandomIntInRange(MinPasswordLength, MaxPasswordLength)
		if err != nil {
			return "", fmt.Errorf("picking password length: %w", err)
		}

		password, err := utils.RandomString(length, utils.LowercaseBytes, utils.UppercaseBytes, utils.NumberBytes, utils.SpecialBytes)
		if err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}

		if hasEveryCharClass(password) {
			return password, nil
		}
	}

	return "", errors.New("could not generate a password with every character class")
}

func hasEveryCharClass(password string) bool {
	for _, charset := range []string{utils.LowercaseBytes, utils.UppercaseBytes, utils.NumberBytes, utils.SpecialBytes} {
		if !strings.ContainsAny(password, charset) {
			return false
		}
	}
	return true
}
