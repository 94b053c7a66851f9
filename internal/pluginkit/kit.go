package pluginkit

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"lassbot/internal/i18n"
	"lassbot/internal/pager"
	"lassbot/internal/storage"
	"lassbot/internal/transport/router"
)

// DefaultOperationTimeout bounds one store call when a plugin sets none.
const DefaultOperationTimeout = 5 * time.Second

// Common is embedded in every plugin config.
type Common struct {
	Timeouts TimeoutsConfig `json:"timeouts"`
}

// Holder keeps the current config of a plugin for lock-free reads from
// handlers.
type Holder[T any] struct{ p atomic.Pointer[T] }

func (h *Holder[T]) Load() T {
	if v := h.p.Load(); v != nil {
		return *v
	}
	var zero T
	return zero
}

func (h *Holder[T]) Store(v T) { h.p.Store(&v) }

// ValidImageURL accepts absolute http(s) URLs with a host.
func ValidImageURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// ReplyStoreErr renders the user-facing store errors: notFound for
// storage.ErrNotFound, denied for storage.ErrNotFoundOrNotPermitted. Any
// other error is returned for the router to report.
func ReplyStoreErr(ctx context.Context, req *router.Request, err error, notFound, denied string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFoundOrNotPermitted):
		return req.ReplyT(ctx, denied, args...)
	case errors.Is(err, storage.ErrNotFound):
		return req.ReplyT(ctx, notFound, args...)
	}
	return err
}

// Browse opens a paginated view of pages for the invoker. An empty page set
// replies with emptyKey instead.
func Browse(ctx context.Context, req *router.Request, pm *pager.Manager, pages []pager.Page, nav [2]string, emptyKey string) error {
	if len(pages) == 0 {
		return req.ReplyT(ctx, emptyKey)
	}
	if pm == nil {
		return req.ReplyCard(ctx, pages[0])
	}
	_, err := pm.Browse(ctx, req.Adapter, req.Chat, req.FromID, pages, nav)
	return err
}

// NavRoutes routes pager:prev and pager:next to the live browse sessions.
// Sessions acknowledge accepted signals themselves.
func NavRoutes(pm *pager.Manager) []router.CallbackRoute {
	h := func(ctx context.Context, req *router.Request, _ string) error {
		cb := req.Update.Callback
		if cb == nil || pm == nil {
			return nil
		}
		pm.HandleCallback(ctx, req.Adapter, *cb)
		return nil
	}
	return []router.CallbackRoute{
		{Plugin: "pager", Action: "prev", Description: i18n.HelpPagerNav, Access: router.CallbackAccessEveryone, NoAutoAnswer: true, Handle: h},
		{Plugin: "pager", Action: "next", Description: i18n.HelpPagerNav, Access: router.CallbackAccessEveryone, NoAutoAnswer: true, Handle: h},
	}
}

// ErrString is err.Error(), or "" for nil.
func ErrString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
