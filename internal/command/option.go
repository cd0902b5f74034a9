package command

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidOption is returned when an option token carries no name.
var ErrInvalidOption = errors.New("invalid command option")

// Option is a parsed command line flag. Value is empty for bare flags.
type Option struct {
	Name  string
	Value string
}

var optionPattern = regexp.MustCompile(`(?P<name>[^=,\s]+)(?:=|\s)*(?P<value>\S*)`)

// ParseOption splits a free-form token such as "--user=root", "--user root"
// or "--user = root" into its name and value.
func ParseOption(token string) (Option, error) {
	match := optionPattern.FindStringSubmatch(token)
	if match == nil {
		return Option{}, fmt.Errorf("%w: %q", ErrInvalidOption, token)
	}

	return Option{
		Name:  match[optionPattern.SubexpIndex("name")],
		Value: match[optionPattern.SubexpIndex("value")],
	}, nil
}
