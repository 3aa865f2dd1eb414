package db

import (
	"context"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

var writeTarget = regexp.MustCompile(`(?i)^\s*(?:insert\s+into|update|delete\s+from)\s+([a-z0-9_."]+)`)

// FilteredTracer forwards to inner except for writes into the quiet
// tables. Reads of those tables are still traced.
type FilteredTracer struct {
	inner pgx.QueryTracer
	quiet []string
}

type untracedKey struct{}

func NewFilteredTracer(inner pgx.QueryTracer, quietTables ...string) *FilteredTracer {
	return &FilteredTracer{
		inner: inner,
		quiet: lo.Map(quietTables, func(t string, _ int) string { return strings.ToLower(t) }),
	}
}

func (t *FilteredTracer) silenced(sql string) bool {
	m := writeTarget.FindStringSubmatch(sql)
	if m == nil {
		return false
	}
	table := strings.ToLower(strings.ReplaceAll(m[1], `"`, ""))
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return lo.Contains(t.quiet, table)
}

func (t *FilteredTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if t.silenced(data.SQL) {
		return context.WithValue(ctx, untracedKey{}, struct{}{})
	}
	return t.inner.TraceQueryStart(ctx, conn, data)
}

func (t *FilteredTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if ctx.Value(untracedKey{}) != nil {
		return
	}
	t.inner.TraceQueryEnd(ctx, conn, data)
}
