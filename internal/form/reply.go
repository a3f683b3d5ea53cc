package form

import (
	"context"

	"medcard-bot/internal/platform/telegram"
)

// StaleText answers buttons pressed outside of their step.
const StaleText = "Эта кнопка больше не активна."

// Ask sends a prompt.
func Ask(ctx context.Context, c *telegram.Context, p *Prompt) error {
	if p == nil {
		return nil
	}
	return c.Reply(ctx, p.Text, p.Keyboard)
}

// Reply delivers the messages of a non-final outcome: the corrective text
// followed by the repeated prompt, or just the next prompt. An accepted
// button press also drops the keyboard it came from.
func Reply(ctx context.Context, c *telegram.Context, out Outcome) error {
	if out.Stale {
		return c.Answer(ctx, StaleText, true)
	}
	if out.Invalid != "" {
		if err := c.Reply(ctx, "⚠️ "+out.Invalid, nil); err != nil {
			return err
		}
		return Ask(ctx, c, out.Prompt)
	}
	c.ClearKeyboard(ctx)
	return Ask(ctx, c, out.Prompt)
}
