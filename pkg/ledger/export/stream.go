package export

import (
	"context"

	"rxsentinel/arbiter/pkg/ledger"
)

// Stream pages through the full chain and feeds entries to a channel,
// for ExportStream. The error channel delivers at most one error; both
// channels close when the walk ends.
func Stream(ctx context.Context, l *ledger.Ledger, pageSize int) (<-chan ledger.Entry, <-chan error) {
	entries := make(chan ledger.Entry, pageSize)
	errs := make(chan error, 1)

	go func() {
		defer close(entries)
		defer close(errs)

		after := uint64(0)
		for {
			page, err := l.Entries(ctx, after, pageSize)
			if err != nil {
				errs <- err
				return
			}
			if len(page) == 0 {
				return
			}
			for _, e := range page {
				select {
				case entries <- e:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			after = page[len(page)-1].Sequence
		}
	}()

	return entries, errs
}

// StreamQuery pages through the entries matching q. The query's Limit
// caps the total when positive; the cursor advances page by page so the
// walk never holds more than pageSize entries at once.
func StreamQuery(ctx context.Context, l *ledger.Ledger, q ledger.Query, pageSize int) (<-chan ledger.Entry, <-chan error) {
	entries := make(chan ledger.Entry, pageSize)
	errs := make(chan error, 1)

	go func() {
		defer close(entries)
		defer close(errs)

		total := q.Limit
		sent := 0
		for {
			page := q
			page.Limit = pageSize
			if total > 0 && total-sent < pageSize {
				page.Limit = total - sent
			}

			batch, err := l.Query(ctx, page)
			if err != nil {
				errs <- err
				return
			}
			if len(batch) == 0 {
				return
			}
			for _, e := range batch {
				select {
				case entries <- e:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			sent += len(batch)
			if total > 0 && sent >= total {
				return
			}
			q.After = batch[len(batch)-1].Sequence
		}
	}()

	return entries, errs
}
