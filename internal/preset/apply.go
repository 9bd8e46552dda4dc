package preset

import (
	"errors"
	"fmt"
)

// CommandBus is the outbound command surface the applier needs.
// *mqtt.Bus satisfies this interface.
type CommandBus interface {
	WSSet(nodeID string, strip int, effect string, brightness int, params []float64) error
	RGBSet(nodeID string, strip int, effect string, brightness int, params []float64) error
	WhiteSet(nodeID string, channel int, effect string, brightness int, params []float64) error
}

// Applier publishes preset actions to nodes over the command bus.
type Applier struct {
	bus    CommandBus
	logger Logger
}

// NewApplier creates an applier over the given command bus.
func NewApplier(bus CommandBus) *Applier {
	return &Applier{
		bus:    bus,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the applier.
func (ap *Applier) SetLogger(logger Logger) {
	ap.logger = logger
}

// Apply publishes every action in the slice. Failures are collected and
// joined; one bad action does not stop the rest of the preset.
func (ap *Applier) Apply(actions []Action) error {
	var errs []error
	for i := range actions {
		if err := ap.applyOne(&actions[i]); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// ApplyPreset publishes all actions of a preset.
func (ap *Applier) ApplyPreset(p *Preset) error {
	if err := ap.Apply(p.Actions); err != nil {
		return fmt.Errorf("applying preset %q: %w", p.ID, err)
	}
	ap.logger.Debug("preset applied",
		"preset_id", p.ID, "room_id", p.RoomID, "actions", len(p.Actions))
	return nil
}

// applyOne dispatches a single action to the module-specific command.
// The switch is exhaustive over Module; an unknown module is an error.
func (ap *Applier) applyOne(a *Action) error {
	switch a.Module {
	case ModuleWS:
		return ap.bus.WSSet(a.Node, a.Index, a.Effect, a.Brightness, a.Params)
	case ModuleRGB:
		return ap.bus.RGBSet(a.Node, a.Index, a.Effect, a.Brightness, a.Params)
	case ModuleWhite:
		return ap.bus.WhiteSet(a.Node, a.Index, a.Effect, a.Brightness, a.Params)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidModule, a.Module)
	}
}
