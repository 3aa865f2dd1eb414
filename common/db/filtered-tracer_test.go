package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

type countingTracer struct {
	starts, ends int
}

func (c *countingTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	c.starts++
	return ctx
}

func (c *countingTracer) TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData) {
	c.ends++
}

func TestFilteredTracer(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		traced bool
	}{
		{"insert into quiet table", "\n\t\tINSERT INTO watcher_events (id) VALUES ($1)", false},
		{"schema qualified insert", `insert into public."watcher_events" (id) values ($1)`, false},
		{"delete from quiet table", "DELETE FROM watcher_events WHERE id = $1", false},
		{"read of quiet table", "SELECT id FROM watcher_events WHERE watcher_id = $1", true},
		{"write to other table", "UPDATE cita_watchers SET last_checked = $2 WHERE id = $1", true},
		{"table with quiet prefix", "INSERT INTO watcher_events_archive (id) VALUES ($1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingTracer{}
			tracer := NewFilteredTracer(inner, "Watcher_Events")

			ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: tt.sql})
			tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

			want := 0
			if tt.traced {
				want = 1
			}
			assert.Equal(t, want, inner.starts)
			assert.Equal(t, want, inner.ends)
		})
	}
}
