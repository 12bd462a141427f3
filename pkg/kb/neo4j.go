package kb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore backs a Store with a Neo4j graph holding Entity nodes.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore creates a Neo4jStore.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{
		client:   driver,
		database: database,
	}, nil
}

// Lookup matches Entity nodes by label, exact matches before substring
// matches.
func (s *Neo4jStore) Lookup(ctx context.Context, q Query) ([]Entity, error) {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	limit := q.Limit
	if limit <= 0 {
		limit = 25
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity)
			WHERE toLower(e.label) = toLower($label)
			RETURN e.uri AS uri, e.label AS label, e.types AS types, 0 AS rank
		`
		if q.Substring {
			query = `
				MATCH (e:Entity)
				WHERE toLower(e.label) CONTAINS toLower($label)
				RETURN e.uri AS uri, e.label AS label, e.types AS types,
					CASE WHEN toLower(e.label) = toLower($label) THEN 0 ELSE 1 END AS rank
				ORDER BY rank
			`
		}
		query += " LIMIT $limit"

		res, err := tx.Run(ctx, query, map[string]any{
			"label": q.Label,
			"limit": limit,
		})
		if err != nil {
			return nil, err
		}

		var entities []Entity
		for res.Next(ctx) {
			record := res.Record()
			e := Entity{}
			if uri, ok := record.Get("uri"); ok {
				e.URI, _ = uri.(string)
			}
			if label, ok := record.Get("label"); ok {
				e.Label, _ = label.(string)
			}
			if types, ok := record.Get("types"); ok {
				if list, ok := types.([]any); ok {
					for _, t := range list {
						if ts, ok := t.(string); ok {
							e.Types = append(e.Types, ts)
						}
					}
				}
			}
			entities = append(entities, e)
		}
		return entities, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge store lookup failed: %w", err)
	}

	return result.([]Entity), nil
}

// Add upserts an Entity node keyed by URI.
func (s *Neo4jStore) Add(ctx context.Context, e Entity) error {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (e:Entity {uri: $uri})
			SET e.label = $label, e.types = $types
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"uri":   e.URI,
			"label": e.Label,
			"types": e.Types,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("knowledge store add failed: %w", err)
	}
	return nil
}

// Close shuts down the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
