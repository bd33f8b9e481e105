// Package echo provides a built-in component with its own initializer that
// repeats command arguments back to the caller.
package echo

import (
	"fmt"
	"strings"

	"github.com/kingrea/switchboard/internal/component"
)

const componentID = "echo"

// Option customizes the echo component.
type Option func(*Component)

// WithPrefix prepends prefix to every reply.
func WithPrefix(prefix string) Option {
	return func(c *Component) {
		c.prefix = prefix
	}
}

// Component answers the echo command.
type Component struct {
	prefix      string
	activations int
}

// New constructs the echo component.
func New(opts ...Option) *Component {
	c := &Component{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Descriptor returns the registry entry for the echo component.
func Descriptor() component.Descriptor {
	return component.Descriptor{
		ID:            componentID,
		DisplayName:   "Echo",
		CommandTokens: []string{"echo"},
		Version:       "1.0.0",
		Source:        "builtin",
	}
}

// Register installs the echo component on host.
func Register(host component.Host) error {
	if host == nil {
		return nil
	}
	if err := host.Provide(componentID, New()); err != nil {
		return fmt.Errorf("echo: %w", err)
	}
	return host.RegisterComponent(Descriptor())
}

// Activate counts activations and always succeeds.
func (c *Component) Activate() (bool, error) {
	c.activations++
	return true, nil
}

// Activations reports how many times Activate ran.
func (c *Component) Activations() int {
	return c.activations
}

// Commands implements adapter.CommandProvider.
func (c *Component) Commands() map[string]component.CommandHandler {
	return map[string]component.CommandHandler{
		"echo": c.echo,
	}
}

func (c *Component) echo(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("echo: nothing to repeat")
	}
	return c.prefix + strings.Join(args, " "), nil
}
