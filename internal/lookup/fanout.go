package lookup

import (
	"context"
	"net/url"
	"sync"
)

// CallAll executes one request per batch entry, all under the shared
// admission gate, and returns a slice aligned index-for-index with the
// input. A nil element means that request exhausted its retries; the batch
// itself never fails. No ordering is guaranteed between in-flight requests.
func (c *Client) CallAll(ctx context.Context, batch []url.Values) []*string {
	results := make([]*string, len(batch))

	var wg sync.WaitGroup
	for i, params := range batch {
		i, params := i, params
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := c.Post(ctx, params)
			if err != nil {
				c.logger.ErrorContext(ctx, "lookup gave up",
					"first_name", params.Get("FirstName"),
					"last_name", params.Get("LastName"),
					"error", err,
				)
				return
			}
			results[i] = &body
		}()
	}
	wg.Wait()

	return results
}
