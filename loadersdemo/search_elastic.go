package loadersdemo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/everyday-items/loadq/infra/db/elasticsearch"
	"github.com/everyday-items/loadq/loader"
)

const documentHandlerClass loader.HandlerClass = "elastic_document"

// LoadDocument is a pending fetch of one document by id from a given
// index. BatchingKey is the index, so documents from different
// indices never share an mget.
type LoadDocument struct {
	loader.Base
	Index string
	ID    string
}

func (f *LoadDocument) HandlerClass() loader.HandlerClass { return documentHandlerClass }
func (f *LoadDocument) BatchingKey() loader.BatchingKey   { return loader.BatchingKey(f.Index) }
func (f *LoadDocument) InstanceKey() loader.InstanceKey   { return loader.InstanceKey(f.ID) }

// NewLoadDocument injects a LoadDocument(index, id) future into q.
func NewLoadDocument(q *loader.Queue, index, id string) *LoadDocument {
	return loader.Inject(q, &LoadDocument{Index: index, ID: id})
}

// ElasticHandler resolves LoadDocument futures with one `_mget` call
// per index (batching key).
type ElasticHandler struct {
	Client *elasticsearch.Client
	ctx    context.Context
}

// NewElasticHandler builds a handler bound to client.
func NewElasticHandler(ctx context.Context, client *elasticsearch.Client) *ElasticHandler {
	return &ElasticHandler{Client: client, ctx: ctx}
}

type mgetDoc struct {
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

type mgetResponse struct {
	Docs []mgetDoc `json:"docs"`
}

func (h *ElasticHandler) SatisfyMulti(group map[loader.InstanceKey]loader.Queueable, index loader.BatchingKey) error {
	ids := make([]string, 0, len(group))
	for ik := range group {
		ids = append(ids, string(ik))
	}

	body, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return err
	}

	req := esapi.MgetRequest{
		Index: string(index),
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(h.ctx, h.Client.RawClient())
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: mget failed: %s", res.Status())
	}

	var parsed mgetResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return err
	}

	seen := make(map[string]bool, len(parsed.Docs))
	for _, doc := range parsed.Docs {
		seen[doc.ID] = true
		f := group[loader.InstanceKey(doc.ID)]
		if f == nil {
			continue
		}
		if !doc.Found {
			if err := f.Satisfy(nil); err != nil {
				return err
			}
			continue
		}
		if err := f.Satisfy(doc.Source); err != nil {
			return err
		}
	}

	for ik, f := range group {
		if !seen[string(ik)] {
			if err := f.Satisfy(nil); err != nil {
				return err
			}
		}
	}
	return nil
}
