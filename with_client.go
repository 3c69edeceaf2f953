package lettasdk

import (
	"context"
	"errors"
	"fmt"
)

// WithClient runs fn against a started client and closes it afterwards.
//
// The client is created and started with opts; fn receives it ready for
// use. The returned error joins fn's error with any error from closing the
// client, so neither masks the other.
//
//	err := lettasdk.WithClient(ctx, func(c lettasdk.Client) error {
//	    if err := c.Submit(ctx, "Hello"); err != nil {
//	        return err
//	    }
//	    for ev := range c.Events() {
//	        if _, done := ev.(*lettasdk.TurnFinishedEvent); done {
//	            return nil
//	        }
//	    }
//	    return nil
//	}, lettasdk.WithService(svc))
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	return errors.Join(fn(client), client.Close())
}
