package preset

import (
	"errors"
	"fmt"
	"sync"
)

// BuildFunc constructs an action for a registered type. The registry
// stamps the type onto the result, so builders never set it themselves.
type BuildFunc func(node string, index, brightness int, params []float64) Action

// ReverseFunc derives the action that undoes a previously applied action.
// Implementations must not mutate the input.
type ReverseFunc func(Action) (Action, error)

// actionKind pairs the builder and reverser for one registered type.
type actionKind struct {
	build   BuildFunc
	reverse ReverseFunc
}

// ActionRegistry maps action types to their builders and reversers.
//
// Motion automation relies on reversal: when a motion session ends, each
// typed action of the applied preset is reversed and republished rather
// than the lights being cut. The registry is the single source of truth
// for how each action type undoes itself.
//
// All methods are thread-safe.
type ActionRegistry struct {
	mu    sync.RWMutex
	kinds map[string]actionKind
}

// NewActionRegistry creates an empty action registry.
// Use NewDefaultRegistry for one preloaded with the built-in types.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		kinds: make(map[string]actionKind),
	}
}

// Register adds an action type with its builder and reverser.
// Returns ErrDuplicateType if the type is already registered.
func (r *ActionRegistry) Register(actionType string, build BuildFunc, reverse ReverseFunc) error {
	if actionType == "" {
		return fmt.Errorf("%w: empty type", ErrUnknownType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[actionType]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, actionType)
	}
	r.kinds[actionType] = actionKind{build: build, reverse: reverse}
	return nil
}

// Build constructs an action of the given type, stamped with that type.
func (r *ActionRegistry) Build(actionType, node string, index, brightness int, params []float64) (Action, error) {
	r.mu.RLock()
	kind, ok := r.kinds[actionType]
	r.mu.RUnlock()

	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownType, actionType)
	}

	action := kind.build(node, index, brightness, params)
	action.Type = actionType
	return action, nil
}

// Reverse derives the undo action for a previously applied action.
//
// Returns ErrMissingType for inert actions (no type) and ErrUnknownType
// when the type has no registered reverser. The result carries the same
// type as the input, so reversing twice round-trips.
func (r *ActionRegistry) Reverse(action Action) (Action, error) {
	if action.Type == "" {
		return Action{}, ErrMissingType
	}

	r.mu.RLock()
	kind, ok := r.kinds[action.Type]
	r.mu.RUnlock()

	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownType, action.Type)
	}

	reversed, err := kind.reverse(*action.DeepCopy())
	if err != nil {
		return Action{}, fmt.Errorf("reversing %q action: %w", action.Type, err)
	}
	reversed.Type = action.Type
	return reversed, nil
}

// ReverseActions reverses every typed action in the slice, preserving
// order. Inert actions are skipped silently. Actions with unknown types
// are skipped and their errors joined into the returned error; the
// reversible remainder is still returned so a partial reversal can run.
func (r *ActionRegistry) ReverseActions(actions []Action) ([]Action, error) {
	var reversed []Action
	var errs []error

	for i := range actions {
		out, err := r.Reverse(actions[i])
		if err != nil {
			if errors.Is(err, ErrMissingType) {
				continue
			}
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
			continue
		}
		reversed = append(reversed, out)
	}
	return reversed, errors.Join(errs...)
}

// Types returns the registered action type names.
func (r *ActionRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.kinds))
	for t := range r.kinds {
		types = append(types, t)
	}
	return types
}
