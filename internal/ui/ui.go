// Package ui wraps the interactive prompts used by the CLI.
package ui

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// Confirm asks a yes/no question, defaulting to defaultYes.
func Confirm(message string, defaultYes bool) (bool, error) {
	answer := defaultYes
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultYes,
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, fmt.Errorf("failed to get confirmation: %w", err)
	}
	return answer, nil
}

// Select asks the user to pick one option.
func Select(message string, options []string, defaultOption string) (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultOption,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", fmt.Errorf("failed to get selection: %w", err)
	}
	return selected, nil
}

// Password asks for a secret without echoing it.
func Password(message string) (string, error) {
	var value string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &value); err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return value, nil
}
