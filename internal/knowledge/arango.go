package knowledge

import (
	"context"
	"strings"

	"repogator.app/relay/common/arangodb"
)

const Collection = "knowledge"

type arangoLookup struct {
	client     arangodb.Client
	collection string
}

// NewArangoLookup serves lookups from the knowledge collection. The returned
// lookup is also a Writer.
func NewArangoLookup(client arangodb.Client) Lookup {
	return &arangoLookup{client: client, collection: Collection}
}

func (l *arangoLookup) Query(ctx context.Context, scope string, text string, limit int) ([]Result, error) {
	docs, err := l.client.Search(ctx, l.collection, scope, text, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(docs))
	for i, d := range docs {
		results[i] = Result{
			Key:     d.Key,
			Scope:   d.Scope,
			Title:   d.Title,
			Content: d.Content,
			Source:  d.Source,
			Score:   d.Score,
		}
	}
	return results, nil
}

// Add upserts docs into scope. Keys are prefixed with the scope so tenants
// cannot overwrite each other's documents.
func (l *arangoLookup) Add(ctx context.Context, scope string, docs []Document) error {
	out := make([]arangodb.Document, len(docs))
	for i, d := range docs {
		out[i] = arangodb.Document{
			Key:     documentKey(scope, d.Key),
			Scope:   scope,
			Title:   d.Title,
			Content: d.Content,
			Source:  d.Source,
		}
	}
	return l.client.UpsertDocuments(ctx, l.collection, out)
}

// ArangoDB keys may not contain slashes.
func documentKey(scope, key string) string {
	return strings.ReplaceAll(scope+":"+key, "/", "_")
}
