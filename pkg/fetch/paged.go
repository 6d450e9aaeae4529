package fetch

import (
	"context"
	"sync"
)

// Counted is implemented by list results that may report the total number
// of items across all pages.
type Counted interface {
	TotalCount() (total int, ok bool)
}

// Page is the usual shape of a paged list result.
type Page[I any] struct {
	Items    []I  `json:"items"`
	Total    *int `json:"total,omitempty"`
	Page     int  `json:"page,omitempty"`
	PageSize int  `json:"page_size,omitempty"`
}

// TotalCount implements Counted.
func (p Page[I]) TotalCount() (int, bool) {
	if p.Total == nil {
		return 0, false
	}
	return *p.Total, true
}

// PageFunc loads one page. Pages are 1-based.
type PageFunc[T Counted] func(ctx context.Context, page, pageSize int) (T, error)

// Paged is a Query bound to a page cursor.
//
// The embedded Query always requests the page that is current when the
// request starts. Changing the page empties the cache slot so a cached page
// is never replayed for a different page.
type Paged[T Counted] struct {
	*Query[T]

	pageSize int

	mu   sync.Mutex
	page int
}

// NewPaged creates a Paged controller for fn.
func NewPaged[T Counted](fn PageFunc[T], opts PagedOptions[T]) *Paged[T] {
	if opts.InitialPage < 1 {
		opts.InitialPage = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	p := &Paged[T]{
		pageSize: opts.PageSize,
		page:     opts.InitialPage,
	}
	p.Query = NewQuery(func(ctx context.Context) (T, error) {
		return fn(ctx, p.Page(), p.pageSize)
	}, opts.Options)
	return p
}

// Page returns the current 1-based page.
func (p *Paged[T]) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// PageSize returns the fixed page size.
func (p *Paged[T]) PageSize() int {
	return p.pageSize
}

// SetPage moves the cursor to n, clamped to 1. It does not fetch
// synchronously: unless the controller is Manual a background refetch is
// scheduled, otherwise the caller decides when to Refetch.
func (p *Paged[T]) SetPage(n int) {
	if n < 1 {
		n = 1
	}

	p.mu.Lock()
	changed := n != p.page
	p.page = n
	p.mu.Unlock()

	if !changed {
		return
	}
	p.invalidate()
	if !p.opts.Manual {
		p.refetchAsync()
	}
}

// NextPage advances one page when HasMore reports true and is a no-op
// otherwise.
func (p *Paged[T]) NextPage() {
	if !p.HasMore() {
		return
	}
	p.SetPage(p.Page() + 1)
}

// PrevPage goes back one page, never below page 1.
func (p *Paged[T]) PrevPage() {
	p.SetPage(p.Page() - 1)
}

// HasMore reports whether the last successful result's total extends past
// the current page. It is false before any result and when the result
// carries no total.
func (p *Paged[T]) HasMore() bool {
	data, ok := p.Data()
	if !ok {
		return false
	}
	total, ok := data.TotalCount()
	if !ok {
		return false
	}
	return total > p.Page()*p.pageSize
}
