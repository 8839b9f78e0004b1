package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/stupside/quire/internal/gesture"
)

// Dispatch sends a trusted mouse event to the page. A press is preceded by a
// move to the same point, as a real pointer would be.
func (t *Tab) Dispatch(ev gesture.Event) error {
	x, y := float64(ev.At.X), float64(ev.At.Y)

	var actions []chromedp.Action
	switch ev.Kind {
	case gesture.Press:
		actions = append(actions,
			mouse(input.MouseMoved, x, y, 0),
			mouse(input.MousePressed, x, y, 1),
		)
	case gesture.Release:
		actions = append(actions, mouse(input.MouseReleased, x, y, 1))
	default:
		return fmt.Errorf("unsupported pointer event %s", ev.Kind)
	}

	if err := t.run(actions...); err != nil {
		return fmt.Errorf("dispatching %s at (%d,%d): %w", ev.Kind, ev.At.X, ev.At.Y, err)
	}
	return nil
}

func mouse(typ input.MouseType, x, y float64, clicks int64) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		p := input.DispatchMouseEvent(typ, x, y)
		if clicks > 0 {
			p = p.WithButton(input.Left).WithClickCount(clicks)
		}
		return p.Do(ctx)
	}
}
