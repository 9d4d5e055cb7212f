package prompt

import (
	"github.com/manifoldco/promptui"
)

// Password prompts for a password, echoing '*'. Piped input is read
// without masking.
func Password(label string) (string, error) {
	if !interactive() {
		return readLine(stdin, "password")
	}

	p := promptui.Prompt{Label: label, Mask: '*'}
	result, err := p.Run()
	return result, wrapError(err)
}
