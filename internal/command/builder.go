// Package command assembles dump tool command lines.
package command

import "strings"

type envVar struct {
	name  string
	value string
}

// Builder renders a shell command line from an executable, options,
// environment assignments and trailing arguments.
//
// Values are rendered verbatim. Callers must pass trusted input.
type Builder struct {
	executable string
	env        []envVar
	options    []string
	values     map[string]string
	aliases    map[string]string
	args       string
}

// New creates a Builder for the given executable.
func New(executable string) *Builder {
	return &Builder{
		executable: executable,
		values:     map[string]string{},
		aliases:    map[string]string{},
	}
}

// AddOption adds a flag without a value. Adding the same name twice keeps
// the first position.
func (b *Builder) AddOption(name string) *Builder {
	if !b.HasOption(name) {
		b.options = append(b.options, name)
	}
	return b
}

// AddOptionWithValue records a value for name and adds the option.
func (b *Builder) AddOptionWithValue(name, value string) *Builder {
	b.values[name] = value
	return b.AddOption(name)
}

// HasOption reports whether name was added.
func (b *Builder) HasOption(name string) bool {
	for _, o := range b.options {
		if o == name {
			return true
		}
	}
	return false
}

// SetAliases replaces the display aliases. An alias only changes how an
// option is rendered; lookups keep using the name it was added with.
func (b *Builder) SetAliases(aliases map[string]string) *Builder {
	b.aliases = make(map[string]string, len(aliases))
	for name, alias := range aliases {
		b.aliases[name] = alias
	}
	return b
}

// SetEnvVar sets an environment assignment prefixed to the command.
func (b *Builder) SetEnvVar(name, value string) *Builder {
	for i := range b.env {
		if b.env[i].name == name {
			b.env[i].value = value
			return b
		}
	}
	b.env = append(b.env, envVar{name: name, value: value})
	return b
}

// SetArgs sets the trailing arguments.
func (b *Builder) SetArgs(args string) *Builder {
	b.args = args
	return b
}

// Build renders the command line.
func (b *Builder) Build() string {
	parts := make([]string, 0, len(b.env)+len(b.options)+2)

	for _, e := range b.env {
		parts = append(parts, e.name+"="+e.value)
	}

	parts = append(parts, b.executable)

	for _, name := range b.options {
		display := name
		if alias, ok := b.aliases[name]; ok && alias != "" {
			display = alias
		}
		if value, ok := b.values[name]; ok {
			parts = append(parts, display+"="+value)
			continue
		}
		parts = append(parts, display)
	}

	if b.args != "" {
		parts = append(parts, b.args)
	}

	return strings.Join(parts, " ")
}
