package utils

import (
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
)

// ErrNotConfirmed is returned when the operator declines a destructive command.
var ErrNotConfirmed = errors.New("operation cancelled by the user")

// Confirm asks a yes/no question, defaulting to no. skip short-circuits the prompt for the commands' --yes flag.
// stdin and stdout may be nil to use the terminal.
func Confirm(label string, skip bool, stdin io.ReadCloser, stdout io.WriteCloser) error {
	if skip {
		return nil
	}

	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     stdin,
		Stdout:    stdout,
	}

	res, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return ErrNotConfirmed
		}
		return fmt.Errorf("reading confirmation: %w", err)
	}
	if res != "y" && res != "Y" {
		return ErrNotConfirmed
	}
	return nil
}
