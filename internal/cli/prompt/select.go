package prompt

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// SelectOption represents an item in a selection list.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// Select returns the Value of the option the user picks. Piped input must
// name an option by label or value.
func Select(label string, options []SelectOption) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("%s: nothing to select", label)
	}

	if !interactive() {
		answer, err := readLine(stdin, label)
		if err != nil {
			return "", err
		}
		return matchOption(answer, options)
	}

	p := promptui.Select{
		Label: label,
		Items: options,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ .Label | cyan }}",
			Inactive: "  {{ .Label }}",
			Selected: "{{ .Label | green }}",
			Details:  `{{ .Description | faint }}`,
		},
		Size: len(options),
	}

	i, _, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}

func matchOption(answer string, options []SelectOption) (string, error) {
	answer = strings.TrimSpace(answer)
	names := make([]string, 0, len(options))
	for _, o := range options {
		if strings.EqualFold(answer, o.Label) || strings.EqualFold(answer, o.Value) {
			return o.Value, nil
		}
		names = append(names, o.Label)
	}
	return "", fmt.Errorf("unknown choice %q, want one of %s", answer, strings.Join(names, ", "))
}
