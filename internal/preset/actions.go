package preset

import "fmt"

// Built-in action type names.
const (
	// TypeWhiteSwell is a white channel swell between two levels.
	TypeWhiteSwell = "white.swell"

	// TypeWSSolid is an addressable strip set to a solid colour.
	TypeWSSolid = "ws.solid"
)

// ReverseMeta keys used by the built-in reversers.
const (
	metaPreviousParams     = "previous_params"
	metaPreviousBrightness = "previous_brightness"
)

// NewDefaultRegistry creates an action registry preloaded with the
// built-in action types.
func NewDefaultRegistry() *ActionRegistry {
	r := NewActionRegistry()

	// Registration of built-ins cannot collide; errors are ignored.
	_ = r.Register(TypeWhiteSwell, buildWhiteSwell, reverseWhiteSwell) //nolint:errcheck
	_ = r.Register(TypeWSSolid, buildWSSolid, reverseWSSolid)          //nolint:errcheck

	return r
}

// ─── white.swell ────────────────────────────────────────────────────────────

// buildWhiteSwell constructs a white channel swell.
// Params are [start_level, end_level].
func buildWhiteSwell(node string, channel, brightness int, params []float64) Action {
	if len(params) < 2 {
		params = []float64{0, float64(brightness)}
	}
	return Action{
		Node:       node,
		Module:     ModuleWhite,
		Index:      channel,
		Effect:     "swell",
		Brightness: brightness,
		Params:     params[:2],
	}
}

// reverseWhiteSwell swaps the start and end levels, so the channel swells
// back along the same curve it came in on.
func reverseWhiteSwell(a Action) (Action, error) {
	if len(a.Params) < 2 {
		return Action{}, fmt.Errorf("%w: swell needs [start, end] params, got %d", ErrInvalidAction, len(a.Params))
	}
	a.Params[0], a.Params[1] = a.Params[1], a.Params[0]
	return a, nil
}

// ─── ws.solid ───────────────────────────────────────────────────────────────

// buildWSSolid constructs a solid colour on an addressable strip.
// Params are [r, g, b] with components 0-255.
func buildWSSolid(node string, strip, brightness int, params []float64) Action {
	if len(params) < 3 {
		params = []float64{0, 0, 0}
	}
	return Action{
		Node:       node,
		Module:     ModuleWS,
		Index:      strip,
		Effect:     "solid",
		Brightness: brightness,
		Params:     params[:3],
	}
}

// reverseWSSolid restores the colour the strip showed before this action,
// or turns the strip off (black, zero brightness) when nothing is
// recorded. The input's colour is stashed into the result's ReverseMeta
// so a second reversal round-trips back to the original.
func reverseWSSolid(a Action) (Action, error) {
	out := a
	out.ReverseMeta = map[string]any{
		metaPreviousParams:     append([]float64(nil), a.Params...),
		metaPreviousBrightness: a.Brightness,
	}

	if prev, ok := metaFloats(a.ReverseMeta[metaPreviousParams]); ok {
		out.Params = prev
		out.Brightness = metaInt(a.ReverseMeta[metaPreviousBrightness], a.Brightness)
		return out, nil
	}

	out.Params = []float64{0, 0, 0}
	out.Brightness = 0
	return out, nil
}

// metaFloats coerces a ReverseMeta value to []float64. JSON round-trips
// turn slices into []any, so both representations are accepted.
func metaFloats(v any) ([]float64, bool) {
	switch vals := v.(type) {
	case []float64:
		out := make([]float64, len(vals))
		copy(out, vals)
		return out, true
	case []any:
		out := make([]float64, 0, len(vals))
		for _, item := range vals {
			f, ok := item.(float64)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return nil, false
	}
}

// metaInt coerces a ReverseMeta value to int, falling back when absent.
func metaInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}
