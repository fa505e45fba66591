package health

import (
	"context"
	"errors"
	"fmt"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/rules/engine"
)

// RulesetCheck fails until the provider holds a ruleset.
func RulesetCheck(provider engine.RulesetProvider) CheckFunc {
	return func(ctx context.Context) error {
		if provider == nil || provider.Current() == nil {
			return errors.New("no ruleset loaded")
		}
		return nil
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// StorageCheck verifies the decision store answers. Backends with a Ping
// method are pinged; others are asked for a count.
func StorageCheck(store decision.Storage) CheckFunc {
	return func(ctx context.Context) error {
		if p, ok := store.(pinger); ok {
			return p.Ping(ctx)
		}
		_, err := store.Count(ctx, &decision.Query{})
		return err
	}
}

// BacklogCheck fails when pending() exceeds limit, such as an async recorder
// that cannot keep up with its store.
func BacklogCheck(pending func() int, limit int) CheckFunc {
	return func(ctx context.Context) error {
		if n := pending(); n > limit {
			return fmt.Errorf("%d pending writes exceed limit %d", n, limit)
		}
		return nil
	}
}
