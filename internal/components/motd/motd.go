// Package motd announces a message of the day once the host is ready and
// answers the motd command afterwards.
package motd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/logbook"
)

const (
	componentID    = "motd"
	settingKey     = "motd.enabled"
	defaultMessage = "Welcome to switchboard."
)

// Option customizes the motd component.
type Option func(*Component)

// WithMessage overrides the announced message.
func WithMessage(message string) Option {
	return func(c *Component) {
		if message = strings.TrimSpace(message); message != "" {
			c.message = message
		}
	}
}

// WithLogbook records announcements in lb.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(c *Component) {
		c.logger = lb
	}
}

// Component holds the message and how often it was announced.
type Component struct {
	mu        sync.Mutex
	message   string
	announced int
	logger    *logbook.Logbook
}

// New constructs the motd component.
func New(opts ...Option) *Component {
	c := &Component{message: defaultMessage}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Descriptor returns the registry entry for motd.
func Descriptor() component.Descriptor {
	return component.Descriptor{
		ID:            componentID,
		DisplayName:   "Message of the Day",
		CommandTokens: []string{"motd"},
		SettingKeys:   []string{settingKey},
		Version:       "1.0.0",
		Source:        "builtin",
	}
}

// Register installs motd on host.
func Register(host component.Host, opts ...Option) error {
	if host == nil {
		return nil
	}
	if err := host.Provide(componentID, New(opts...)); err != nil {
		return fmt.Errorf("motd: %w", err)
	}
	return host.RegisterComponent(Descriptor())
}

// PhaseHooks implements adapter.PhaseListener.
func (c *Component) PhaseHooks() map[component.Phase]component.Hook {
	return map[component.Phase]component.Hook{
		component.PhaseReady: c.announce,
	}
}

// Commands implements adapter.CommandProvider.
func (c *Component) Commands() map[string]component.CommandHandler {
	return map[string]component.CommandHandler{
		"motd": func([]string) (string, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.message, nil
		},
	}
}

// Announced reports how many ready hooks fired.
func (c *Component) Announced() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.announced
}

func (c *Component) announce() error {
	c.mu.Lock()
	c.announced++
	message := c.message
	c.mu.Unlock()
	c.logger.Info("motd: %s", message)
	return nil
}
