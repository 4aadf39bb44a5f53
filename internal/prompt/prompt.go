// Package prompt collects repack parameters interactively using charmbracelet/huh.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrCanceled is returned when the user cancels a prompt.
var ErrCanceled = errors.New("canceled by user")

// Prompter abstracts user interaction for testability.
type Prompter interface {
	// Print outputs text to the user.
	Print(message string)

	// Input prompts for a line of text, pre-filled with value.
	Input(title, value string) (string, error)

	// Confirm prompts for yes/no confirmation, starting at value.
	Confirm(title, description string, value bool) (bool, error)

	// Choice prompts user to select from options, returns 0-based index.
	Choice(title string, options []string, selected int) (int, error)
}

// HuhPrompter implements Prompter using charmbracelet/huh for interactive forms.
type HuhPrompter struct{}

// New creates a new HuhPrompter for interactive terminal prompts.
func New() *HuhPrompter {
	return &HuhPrompter{}
}

// Print outputs text to the user.
func (p *HuhPrompter) Print(message string) {
	fmt.Println(message)
}

// Input prompts for a non-empty line of text.
func (p *HuhPrompter) Input(title, value string) (string, error) {
	err := huh.NewInput().
		Title(title).
		Value(&value).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("a value is required")
			}
			return nil
		}).
		Run()

	if err != nil {
		return "", mapErr("input prompt", err)
	}

	return strings.TrimSpace(value), nil
}

// Confirm prompts for yes/no confirmation.
func (p *HuhPrompter) Confirm(title, description string, value bool) (bool, error) {
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&value).
		Run()

	if err != nil {
		return false, mapErr("confirm prompt", err)
	}

	return value, nil
}

// Choice prompts user to select from options and returns the 0-based index.
func (p *HuhPrompter) Choice(title string, options []string, selected int) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options provided")
	}

	huhOptions := make([]huh.Option[int], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt, i)
	}

	err := huh.NewSelect[int]().
		Title(title).
		Options(huhOptions...).
		Value(&selected).
		Run()

	if err != nil {
		return 0, mapErr("choice prompt", err)
	}

	return selected, nil
}

func mapErr(what string, err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCanceled
	}
	return fmt.Errorf("%s: %w", what, err)
}
