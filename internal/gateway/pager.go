package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/service"
)

// PageFunc fetches one page of rows. Implementations are restartable: the
// same page may be requested again after an error.
type PageFunc func(ctx context.Context, page service.Page) ([]json.RawMessage, error)

// Pager drains a paginated procedure page by page. The data service caps
// result sets around a fixed page size, so large fetches must walk offsets
// until a short page comes back.
type Pager struct {
	fetch    PageFunc
	pageSize int
	maxRows  int
}

// NewPager creates a pager over fetch with the given page size and row
// safety ceiling.
func NewPager(fetch PageFunc, pageSize, maxRows int) *Pager {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if maxRows <= 0 {
		maxRows = 50000
	}
	return &Pager{fetch: fetch, pageSize: pageSize, maxRows: maxRows}
}

// Drain fetches pages until a short page is returned or the safety ceiling
// is reached, concatenating all rows. Hitting the ceiling truncates rather
// than fails; the partial result is still usable.
func (p *Pager) Drain(ctx context.Context) ([]json.RawMessage, error) {
	var all []json.RawMessage

	for offset := 0; ; offset += p.pageSize {
		rows, err := p.fetch(ctx, service.Page{Limit: p.pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}

		all = append(all, rows...)

		if len(rows) < p.pageSize {
			return all, nil
		}

		if len(all) >= p.maxRows {
			slog.Warn("Paged fetch hit row safety ceiling, truncating",
				"error", common.ErrRowLimit,
				"rows", len(all),
				"ceiling", p.maxRows)
			return all, nil
		}
	}
}

// DrainInto drains all pages and unmarshals each row into a value of type T.
func DrainInto[T any](ctx context.Context, p *Pager) ([]T, error) {
	rows, err := p.Drain(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
