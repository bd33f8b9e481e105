package settings

import (
	"github.com/kingrea/switchboard/internal/component"
	"github.com/kingrea/switchboard/internal/logbook"
)

// Gate decides whether a descriptor's governing setting permits activation.
type Gate struct {
	store  Store
	logger *logbook.Logbook
}

// GateOption customizes Gate construction.
type GateOption func(*Gate)

// GateWithLogbook records fail-closed lookups at debug level.
func GateWithLogbook(lb *logbook.Logbook) GateOption {
	return func(g *Gate) {
		g.logger = lb
	}
}

// NewGate builds a gate over store. A nil store knows no keys.
func NewGate(store Store, opts ...GateOption) *Gate {
	g := &Gate{store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Permitted reports whether d may be activated and, when it may not, the
// key that disabled it. Only the first setting key is consulted; blank,
// absent or non-boolean values count as false.
func (g *Gate) Permitted(d component.Descriptor) (bool, string) {
	if len(d.SettingKeys) == 0 {
		return true, ""
	}
	key := d.SettingKeys[0]
	if g == nil || g.store == nil || key == "" {
		return false, key
	}
	value, ok := g.store.Lookup(key)
	if !ok {
		g.logger.Debug("settings: %s missing for %s, treating as disabled", key, d.ID)
		return false, key
	}
	if !value {
		return false, key
	}
	return true, ""
}
