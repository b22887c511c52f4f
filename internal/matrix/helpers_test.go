package matrix

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/ptm/internal/config"
	"github.com/specialistvlad/ptm/internal/ctxlog"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// tbl builds an ordered table from alternating keys and values.
func tbl(kv ...any) *config.Table {
	t := config.NewTable()
	for i := 0; i < len(kv); i += 2 {
		v := kv[i+1]
		if list, ok := v.([]string); ok {
			items := make([]any, len(list))
			for j, s := range list {
				items[j] = s
			}
			v = items
		}
		if list, ok := v.([]*config.Table); ok {
			items := make([]any, len(list))
			for j, s := range list {
				items[j] = s
			}
			v = items
		}
		t.Set(kv[i].(string), v)
	}
	return t
}

func project(ptm *config.Table) *config.Table {
	return tbl("tool", tbl("ptm", ptm))
}

func runIDs(runs []*Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID()
	}
	return ids
}

type fakeFetcher map[string]*config.Table

func (f fakeFetcher) Fetch(_ context.Context, locator string) (*config.Table, error) {
	if t, ok := f[locator]; ok {
		return t, nil
	}
	return nil, io.ErrUnexpectedEOF
}

type driverNames []string

func (d driverNames) Has(name string) bool {
	for _, n := range d {
		if n == name {
			return true
		}
	}
	return false
}
