package loadersdemo

import (
	"context"
	"fmt"
	"strings"

	"github.com/everyday-items/loadq/infra/db/clickhouse"
	"github.com/everyday-items/loadq/loader"
)

const eventHandlerClass loader.HandlerClass = "clickhouse_event_count"

// LoadEventCount is a pending fetch of one dimension value's event
// count from a named analytics table. BatchingKey is the table, so
// counts from different tables never share a query.
type LoadEventCount struct {
	loader.Base
	Table string
	Dim   string
}

func (f *LoadEventCount) HandlerClass() loader.HandlerClass { return eventHandlerClass }
func (f *LoadEventCount) BatchingKey() loader.BatchingKey   { return loader.BatchingKey(f.Table) }
func (f *LoadEventCount) InstanceKey() loader.InstanceKey   { return loader.InstanceKey(f.Dim) }

// NewLoadEventCount injects a LoadEventCount(table, dim) future into q.
func NewLoadEventCount(q *loader.Queue, table, dim string) *LoadEventCount {
	return loader.Inject(q, &LoadEventCount{Table: table, Dim: dim})
}

// ClickHouseHandler resolves LoadEventCount futures with one
// aggregate query per table (batching key).
type ClickHouseHandler struct {
	Client *clickhouse.Client
	ctx    context.Context
}

// NewClickHouseHandler builds a handler bound to client.
func NewClickHouseHandler(ctx context.Context, client *clickhouse.Client) *ClickHouseHandler {
	return &ClickHouseHandler{Client: client, ctx: ctx}
}

func (h *ClickHouseHandler) SatisfyMulti(group map[loader.InstanceKey]loader.Queueable, table loader.BatchingKey) error {
	dims := make([]string, 0, len(group))
	for ik := range group {
		dims = append(dims, string(ik))
	}

	placeholders := make([]string, len(dims))
	args := make([]any, len(dims))
	for i, d := range dims {
		placeholders[i] = "?"
		args[i] = d
	}
	query := fmt.Sprintf(
		"SELECT dim, count() AS c FROM %s WHERE dim IN (%s) GROUP BY dim",
		string(table), strings.Join(placeholders, ","),
	)

	rows, err := h.Client.Query(h.ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := make(map[string]uint64, len(dims))
	for rows.Next() {
		var dim string
		var count uint64
		if err := rows.Scan(&dim, &count); err != nil {
			return err
		}
		counts[dim] = count
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for ik, f := range group {
		if err := f.Satisfy(counts[string(ik)]); err != nil {
			return err
		}
	}
	return nil
}
