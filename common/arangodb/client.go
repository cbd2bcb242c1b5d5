package arangodb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

// Client stores knowledge documents and scores them against free text.
type Client interface {
	// Setup operations
	EnsureDatabase(ctx context.Context) error
	EnsureCollection(ctx context.Context, name string) error

	// Write operations
	UpsertDocuments(ctx context.Context, collection string, docs []Document) error

	// Read operations
	Search(ctx context.Context, collection string, scope string, text string, limit int) ([]ScoredDocument, error)

	// Utility
	Close() error
}

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

type client struct {
	conn         connection.Connection
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	return &client{
		conn:         conn,
		arangoClient: arangodb.NewClient(conn),
		cfg:          cfg,
	}, nil
}

func (c *client) Close() error {
	return nil
}

func (c *client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		if _, err = c.arangoClient.CreateDatabase(ctx, c.cfg.Database, nil); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "arangodb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db

	return nil
}

func (c *client) EnsureCollection(ctx context.Context, name string) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", name, err)
	}
	if exists {
		return nil
	}

	colType := arangodb.CollectionTypeDocument
	if _, err = c.db.CreateCollectionV2(ctx, name, &arangodb.CreateCollectionPropertiesV2{Type: &colType}); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	slog.InfoContext(ctx, "arangodb collection created", "collection", name)
	return nil
}

const upsertQuery = `
FOR d IN @docs
  UPSERT { _key: d._key }
  INSERT d
  REPLACE d
  IN @@collection`

// UpsertDocuments writes docs keyed by Document.Key, replacing existing ones.
func (c *client) UpsertDocuments(ctx context.Context, collection string, docs []Document) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(docs) == 0 {
		return nil
	}

	start := time.Now()
	payload := make([]map[string]any, len(docs))
	for i, doc := range docs {
		payload[i] = map[string]any{
			"_key":    doc.Key,
			"scope":   doc.Scope,
			"title":   doc.Title,
			"content": doc.Content,
			"source":  doc.Source,
		}
	}

	cursor, err := c.db.Query(ctx, upsertQuery, &arangodb.QueryOptions{
		BindVars: map[string]any{
			"docs":        payload,
			"@collection": collection,
		},
	})
	if err != nil {
		return fmt.Errorf("upsert documents: %w", err)
	}
	defer cursor.Close()

	slog.DebugContext(ctx, "arangodb documents upserted",
		"collection", collection,
		"count", len(docs),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Score is the share of query terms found in title or content.
const searchQuery = `
FOR d IN @@collection
  FILTER d.scope == @scope
  LET hay = LOWER(CONCAT(d.title, " ", d.content))
  LET hits = LENGTH(FOR t IN @terms FILTER CONTAINS(hay, t) RETURN 1)
  FILTER hits > 0
  LET score = hits / LENGTH(@terms)
  SORT score DESC, d._key ASC
  LIMIT @limit
  RETURN { key: d._key, scope: d.scope, title: d.title, content: d.content, source: d.source, score: score }`

func (c *client) Search(ctx context.Context, collection string, scope string, text string, limit int) ([]ScoredDocument, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	terms := Terms(text)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	start := time.Now()
	cursor, err := c.db.Query(ctx, searchQuery, &arangodb.QueryOptions{
		BindVars: map[string]any{
			"@collection": collection,
			"scope":       scope,
			"terms":       terms,
			"limit":       limit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer cursor.Close()

	var results []ScoredDocument
	for cursor.HasMore() {
		var doc ScoredDocument
		if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		results = append(results, doc)
	}

	slog.DebugContext(ctx, "arangodb search completed",
		"collection", collection,
		"scope", scope,
		"terms", len(terms),
		"results", len(results),
		"duration_ms", time.Since(start).Milliseconds())

	return results, nil
}

// Terms lowercases text and splits it into distinct words of three or more
// letters or digits, keeping first-seen order.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
