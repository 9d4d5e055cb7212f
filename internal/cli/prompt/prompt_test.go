package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// piped replaces the terminal with in for the duration of the test.
func piped(t *testing.T, in string) {
	t.Helper()
	prevIn, prevInteractive := stdin, interactive
	stdin = bufio.NewReader(strings.NewReader(in))
	interactive = func() bool { return false }
	t.Cleanup(func() { stdin, interactive = prevIn, prevInteractive })
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil))
	assert.ErrorIs(t, wrapError(promptui.ErrInterrupt), ErrAborted)
	assert.ErrorIs(t, wrapError(promptui.ErrAbort), ErrAborted)

	other := errors.New("tty closed")
	assert.Equal(t, other, wrapError(other))
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.True(t, IsAborted(fmt.Errorf("login: %w", promptui.ErrInterrupt)))
	assert.False(t, IsAborted(errors.New("other")))
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"secret\n", "secret"},
		{"secret\r\nignored\n", "secret"},
		{"no-newline", "no-newline"},
		{" spaced \n", " spaced "},
	}
	for _, tt := range tests {
		got, err := readLine(bufio.NewReader(strings.NewReader(tt.in)), "password")
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := readLine(bufio.NewReader(strings.NewReader("")), "Password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read password")
}

func TestPassword_Piped(t *testing.T) {
	piped(t, "hunter2\n")
	got, err := Password("Password for alice@host")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestInput_Piped(t *testing.T) {
	piped(t, "\n")
	got, err := Input("User", "guest")
	require.NoError(t, err)
	assert.Equal(t, "guest", got)

	piped(t, "alice\n")
	got, err = Input("User", "guest")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestInputWithValidation_Piped(t *testing.T) {
	required := func(s string) error {
		if s == "" {
			return errors.New("required")
		}
		return nil
	}

	piped(t, "bob\n")
	got, err := InputWithValidation("User", required)
	require.NoError(t, err)
	assert.Equal(t, "bob", got)

	piped(t, "\n")
	_, err = InputWithValidation("User", required)
	assert.EqualError(t, err, "user: required")
}

func TestConfirm_Piped(t *testing.T) {
	tests := []struct {
		in         string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"maybe\n", true, false},
	}
	for _, tt := range tests {
		piped(t, tt.in)
		got, err := Confirm("Overwrite", tt.defaultYes)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q default=%v", tt.in, tt.defaultYes)
	}
}

func TestConsecutivePrompts_Piped(t *testing.T) {
	piped(t, "alice\nsecret\n")
	user, err := Input("User", "")
	require.NoError(t, err)
	password, err := Password("Password")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "secret", password)
}

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Delete?", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSelect_Piped(t *testing.T) {
	options := []SelectOption{
		{Label: "Memory", Value: "memory"},
		{Label: "Local directory", Value: "local"},
	}

	piped(t, "local\n")
	got, err := Select("Backend", options)
	require.NoError(t, err)
	assert.Equal(t, "local", got)

	piped(t, "memory\n")
	got, err = Select("Backend", options)
	require.NoError(t, err)
	assert.Equal(t, "memory", got)

	piped(t, "ftp\n")
	_, err = Select("Backend", options)
	assert.ErrorContains(t, err, "unknown choice")

	_, err = Select("Backend", nil)
	assert.Error(t, err)
}
