// Package history keeps an append-only record of generation outcomes for
// display. Nothing in the generation path reads it back.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/dmorgan81/imagine/internal/generate"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const DefaultLimit = 50

type Entry struct {
	ID        uuid.UUID
	Summary   string
	Result    *generate.Result
	Err       error
	Timestamp time.Time
}

func (e Entry) Succeeded() bool {
	return e.Result != nil
}

// History holds at most limit entries, dropping the oldest first.
type History struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	now     func() time.Time
}

func New(limit int) *History {
	return &History{limit: limit, now: time.Now}
}

func NewHistory(*do.Injector) (*History, error) {
	return New(DefaultLimit), nil
}

// Record appends the outcome of req. Canceled requests are not recorded.
func (h *History) Record(ctx context.Context, req generate.Request, res *generate.Result, err error) (Entry, bool) {
	if generate.IsCanceled(err) {
		log.FromContextOrDiscard(ctx).WithGroup("history").Info("not recording canceled request")
		return Entry{}, false
	}

	e := Entry{
		ID:        uuid.New(),
		Summary:   req.Summary(),
		Result:    res,
		Err:       err,
		Timestamp: h.now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = append([]Entry(nil), h.entries[len(h.entries)-h.limit:]...)
	}
	return e, true
}

// Entries returns a snapshot, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

func (h *History) Latest() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// LatestSuccess is what a page reload shows: the last image that worked.
func (h *History) LatestSuccess() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Succeeded() {
			return h.entries[i], true
		}
	}
	return Entry{}, false
}
