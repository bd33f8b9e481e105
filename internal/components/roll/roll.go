// Package roll provides a command-only dice roller. It carries no
// initializer, so the adapter activates it through a shim.
package roll

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/kingrea/switchboard/internal/component"
)

const (
	componentID = "roll"
	settingKey  = "roll.enabled"
	maxDice     = 100
	maxSides    = 1000
)

// Option customizes the roller.
type Option func(*Component)

// WithIntN injects the random source, returning a value in [0, n).
func WithIntN(intN func(n int) int) Option {
	return func(c *Component) {
		if intN != nil {
			c.intN = intN
		}
	}
}

// Component rolls dice expressed as NdM.
type Component struct {
	intN func(n int) int
}

// New constructs the roller.
func New(opts ...Option) *Component {
	c := &Component{intN: rand.IntN}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Descriptor returns the registry entry for the roller.
func Descriptor() component.Descriptor {
	return component.Descriptor{
		ID:            componentID,
		DisplayName:   "Dice Roller",
		CommandTokens: []string{"roll"},
		SettingKeys:   []string{settingKey},
		Version:       "1.0.0",
		Source:        "builtin",
	}
}

// Register installs the roller on host.
func Register(host component.Host) error {
	if host == nil {
		return nil
	}
	if err := host.Provide(componentID, New()); err != nil {
		return fmt.Errorf("roll: %w", err)
	}
	return host.RegisterComponent(Descriptor())
}

// Commands implements adapter.CommandProvider.
func (c *Component) Commands() map[string]component.CommandHandler {
	return map[string]component.CommandHandler{
		"roll": c.roll,
	}
}

func (c *Component) roll(args []string) (string, error) {
	expr := "1d6"
	if len(args) > 0 {
		expr = args[0]
	}
	dice, sides, err := Parse(expr)
	if err != nil {
		return "", err
	}
	rolls := make([]string, 0, dice)
	total := 0
	for i := 0; i < dice; i++ {
		value := c.intN(sides) + 1
		total += value
		rolls = append(rolls, strconv.Itoa(value))
	}
	return fmt.Sprintf("%s: %s = %d", expr, strings.Join(rolls, " + "), total), nil
}

// Parse reads NdM dice notation. N defaults to 1 when omitted.
func Parse(expr string) (int, int, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	left, right, ok := strings.Cut(expr, "d")
	if !ok {
		return 0, 0, fmt.Errorf("roll: %q is not NdM notation", expr)
	}
	dice := 1
	if left != "" {
		n, err := strconv.Atoi(left)
		if err != nil {
			return 0, 0, fmt.Errorf("roll: dice count %q: %w", left, err)
		}
		dice = n
	}
	sides, err := strconv.Atoi(right)
	if err != nil {
		return 0, 0, fmt.Errorf("roll: sides %q: %w", right, err)
	}
	if dice < 1 || dice > maxDice {
		return 0, 0, fmt.Errorf("roll: dice count must be between 1 and %d", maxDice)
	}
	if sides < 2 || sides > maxSides {
		return 0, 0, fmt.Errorf("roll: sides must be between 2 and %d", maxSides)
	}
	return dice, sides, nil
}
