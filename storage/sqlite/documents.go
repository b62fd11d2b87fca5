package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vitrineai/semdex/core"
	"github.com/vitrineai/semdex/storage"
)

var _ storage.DocumentIndex = (*Store)(nil)

// UpsertDocument inserts or overwrites the canonical document for its
// (entity type, entity id) pair. Joins any transaction carried in ctx.
func (s *Store) UpsertDocument(ctx context.Context, doc *core.CanonicalDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", storage.ErrInvalidQuery)
	}
	if !core.ValidEntityType(doc.EntityType) {
		return fmt.Errorf("%w: %q", core.ErrInvalidEntityType, doc.EntityType)
	}

	meta := "{}"
	if len(doc.Metadata) > 0 {
		b, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encoding metadata: %w", storage.ErrSerializationFailed, err)
		}
		meta = string(b)
	}

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	var sourceUpdated any
	if doc.SourceUpdatedAt != nil {
		sourceUpdated = doc.SourceUpdatedAt.UTC()
	}

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO canonical_documents
			(entity_type, entity_id, content_md, embedding, metadata, source_updated_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			content_md = excluded.content_md,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			source_updated_at = excluded.source_updated_at,
			updated_at = excluded.updated_at`,
		string(doc.EntityType), doc.EntityID, doc.ContentMarkdown,
		storage.EncodeVector(doc.Embedding), meta, sourceUpdated, doc.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting document %s/%d: %w", doc.EntityType, doc.EntityID, err)
	}
	return nil
}

// DeleteDocument removes the document for the given key; missing keys are a no-op.
func (s *Store) DeleteDocument(ctx context.Context, entityType core.EntityType, entityID int64) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM canonical_documents WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), entityID)
	if err != nil {
		return fmt.Errorf("deleting document %s/%d: %w", entityType, entityID, err)
	}
	return nil
}

// GetDocument retrieves one canonical document.
func (s *Store) GetDocument(ctx context.Context, entityType core.EntityType, entityID int64) (*core.CanonicalDocument, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT entity_type, entity_id, content_md, embedding, metadata, source_updated_at, updated_at
		FROM canonical_documents WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), entityID)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s/%d: %w", entityType, entityID, core.ErrNotFound)
	}
	return doc, err
}

// SearchSimilar ranks stored documents by cosine similarity to the query
// vector, descending. The scan is brute-force; the document corpus is bounded
// by the storefront's entity count.
func (s *Store) SearchSimilar(ctx context.Context, vector []float32, limit int, entityTypes []core.EntityType) ([]*storage.ScoredDocument, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	query := `SELECT entity_type, entity_id, content_md, embedding, metadata, source_updated_at, updated_at
		FROM canonical_documents`
	var args []any
	if len(entityTypes) > 0 {
		placeholders := make([]string, len(entityTypes))
		for i, t := range entityTypes {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` WHERE entity_type IN (` + strings.Join(placeholders, ", ") + `)`
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var results []*storage.ScoredDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		score := storage.CosineSimilarity(vector, doc.Embedding)
		results = append(results, &storage.ScoredDocument{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	slices.SortFunc(results, func(a, b *storage.ScoredDocument) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountDocuments returns the number of stored documents for one entity type.
func (s *Store) CountDocuments(ctx context.Context, entityType core.EntityType) (int, error) {
	var n int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM canonical_documents WHERE entity_type = ?`,
		string(entityType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents for %s: %w", entityType, err)
	}
	return n, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*core.CanonicalDocument, error) {
	var (
		doc           core.CanonicalDocument
		entityType    string
		blob          []byte
		meta          string
		sourceUpdated sql.NullTime
	)
	if err := r.Scan(&entityType, &doc.EntityID, &doc.ContentMarkdown, &blob, &meta, &sourceUpdated, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.EntityType = core.EntityType(entityType)

	vec, err := storage.DecodeVector(blob)
	if err != nil {
		return nil, err
	}
	doc.Embedding = vec

	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("%w: decoding metadata: %w", storage.ErrSerializationFailed, err)
		}
	}
	if sourceUpdated.Valid {
		t := sourceUpdated.Time
		doc.SourceUpdatedAt = &t
	}
	return &doc, nil
}
