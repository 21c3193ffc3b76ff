package justwatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Holder owns the current client snapshot. Refresh swaps in a new snapshot
// instead of mutating the one in use, so in-flight requests keep a consistent locale.
type Holder struct {
	cur atomic.Pointer[Client]
	log *zap.Logger
}

func NewHolder(c *Client, log *zap.Logger) *Holder {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Holder{log: log}
	h.cur.Store(c)
	return h
}

func (h *Holder) Current() Provider { return h.cur.Load() }

// Refresh resolves the upstream locale and installs a client using it.
// On failure the current locale is kept and returned with the error.
func (h *Holder) Refresh(ctx context.Context) (string, error) {
	c := h.cur.Load()
	locale, err := c.ResolveLocale(ctx)
	if err != nil {
		h.log.Warn(fmt.Sprintf("unable to set locale for %s, keeping %s", c.Country(), c.Locale()), zap.Error(err))
		return c.Locale(), err
	}
	if locale != c.Locale() {
		h.cur.Store(c.WithLocale(locale))
		h.log.Info("locale updated", zap.String("from", c.Locale()), zap.String("to", locale))
	}
	return locale, nil
}
