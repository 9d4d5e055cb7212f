// Package prompt provides the interactive terminal prompts of the rfs CLI.
//
// Every prompt falls back to reading one line from stdin when stdin is not
// a terminal, so answers can be piped in.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// stdin is shared by the non-interactive fallbacks so that consecutive
// prompts consume consecutive lines.
var stdin = bufio.NewReader(os.Stdin)

// interactive reports whether prompts can draw on a terminal.
var interactive = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text, offering defaultValue.
func Input(label string, defaultValue string) (string, error) {
	if !interactive() {
		line, err := readLine(stdin, label)
		if err != nil || line != "" {
			return line, err
		}
		return defaultValue, nil
	}

	p := promptui.Prompt{Label: label, Default: defaultValue}
	result, err := p.Run()
	return result, wrapError(err)
}

// InputWithValidation prompts for text until validate accepts it. Piped
// input gets a single attempt.
func InputWithValidation(label string, validate func(string) error) (string, error) {
	if !interactive() {
		line, err := readLine(stdin, label)
		if err != nil {
			return "", err
		}
		if err := validate(line); err != nil {
			return "", fmt.Errorf("%s: %w", strings.ToLower(label), err)
		}
		return line, nil
	}

	p := promptui.Prompt{Label: label, Validate: validate}
	result, err := p.Run()
	return result, wrapError(err)
}

// readLine returns the next line of r without its line ending. An empty
// stream is an error, naming what was being read.
func readLine(r *bufio.Reader, what string) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s from stdin: %w", strings.ToLower(what), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
