package preset

import (
	"fmt"
	"time"
)

// Module identifies which firmware lighting module an action drives.
//
// Every dispatch over Module must be exhaustive; an unrecognised value is
// an error, never a silent fallthrough.
type Module string

// Known lighting modules.
const (
	// ModuleWhite drives a PWM white channel.
	ModuleWhite Module = "white"

	// ModuleWS drives an addressable (WS28xx) strip.
	ModuleWS Module = "ws"

	// ModuleRGB drives an analog RGB strip.
	ModuleRGB Module = "rgb"
)

// Valid reports whether the module is a recognised value.
func (m Module) Valid() bool {
	switch m {
	case ModuleWhite, ModuleWS, ModuleRGB:
		return true
	default:
		return false
	}
}

// Action is a single lighting command within a preset.
//
// Index selects the output on the node: a strip number for ws and rgb
// modules, a channel number for white.
//
// Type links the action to a registered reversible action kind. Actions
// without a Type are inert: they are published when the preset is applied
// but are never reversed.
type Action struct {
	Node       string    `json:"node"`
	Module     Module    `json:"module"`
	Index      int       `json:"index"`
	Effect     string    `json:"effect"`
	Brightness int       `json:"brightness"`
	Params     []float64 `json:"params,omitempty"`

	Type        string         `json:"type,omitempty"`
	ReverseMeta map[string]any `json:"reverse_meta,omitempty"`
}

// DeepCopy returns an independent copy of the action.
func (a *Action) DeepCopy() *Action {
	if a == nil {
		return nil
	}
	out := *a
	if a.Params != nil {
		out.Params = make([]float64, len(a.Params))
		copy(out.Params, a.Params)
	}
	if a.ReverseMeta != nil {
		out.ReverseMeta = make(map[string]any, len(a.ReverseMeta))
		for k, v := range a.ReverseMeta {
			out.ReverseMeta[k] = v
		}
	}
	return &out
}

// Preset is a named set of lighting actions scoped to a room.
//
// The same preset ID may exist in many rooms with different actions;
// lookups are always by the (house, room, id) triple.
type Preset struct {
	ID        string    `json:"id"`
	HouseID   string    `json:"house_id"`
	RoomID    string    `json:"room_id"`
	Name      string    `json:"name"`
	Actions   []Action  `json:"actions"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of the preset.
func (p *Preset) DeepCopy() *Preset {
	if p == nil {
		return nil
	}
	out := *p
	if p.Actions != nil {
		out.Actions = make([]Action, len(p.Actions))
		for i := range p.Actions {
			out.Actions[i] = *p.Actions[i].DeepCopy()
		}
	}
	return &out
}

// maxBrightness is the firmware's upper brightness bound.
const maxBrightness = 255

// ValidatePreset checks that a preset is structurally valid.
func ValidatePreset(p *Preset) error {
	if p.ID == "" || p.HouseID == "" || p.RoomID == "" {
		return fmt.Errorf("%w: id, house_id, and room_id are required", ErrInvalidPreset)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	for i := range p.Actions {
		if err := ValidateAction(&p.Actions[i]); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// ValidateAction checks that a single action is structurally valid.
func ValidateAction(a *Action) error {
	if a.Node == "" {
		return fmt.Errorf("%w: node is required", ErrInvalidAction)
	}
	if !a.Module.Valid() {
		return fmt.Errorf("%w: module %q", ErrInvalidModule, a.Module)
	}
	if a.Effect == "" {
		return fmt.Errorf("%w: effect is required", ErrInvalidAction)
	}
	if a.Index < 0 {
		return fmt.Errorf("%w: index %d", ErrInvalidAction, a.Index)
	}
	if a.Brightness < 0 || a.Brightness > maxBrightness {
		return fmt.Errorf("%w: brightness %d out of range 0-%d", ErrInvalidAction, a.Brightness, maxBrightness)
	}
	return nil
}
