// Package pagination walks a page-numbered result set sequentially until a
// page comes back empty.
//
// Before every page the loop consults the rate limit; when at most one
// request remains it sleeps until the window resets. After every non-empty
// page it pauses for a fixed courtesy delay. There is no page cap: the loop
// relies on the data source being finite.
//
// Example usage:
//
//	loop := pagination.NewLoop(fetcher, probe, pagination.DefaultConfig(), logger)
//	items, err := loop.FetchAllPages(ctx)
//
// Every sleep honours ctx, so cancelling the context stops the loop at the
// next suspension point with ctx.Err().
package pagination
