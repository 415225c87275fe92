// Package param reads secrets and prompt lists from SSM Parameter Store.
package param

import "context"

type Fetcher interface {
	// Fetch returns the decrypted value of a single parameter.
	Fetch(ctx context.Context, name string) (string, error)
	// FetchAll returns every value below a path, in no particular order.
	FetchAll(ctx context.Context, path string) ([]string, error)
}
