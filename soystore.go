package arbiter

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
)

// SoyStore implements Store using soy for PostgreSQL persistence. With an
// embedder configured, retrieval is ordered by pgvector distance to the
// query embedding; without one it falls back to importance ordering within
// the workspace, leaving semantic relevance to the caller's seeding.
type SoyStore struct {
	items    *soy.Soy[KnowledgeItem]
	signals  *soy.Soy[Signal]
	links    *soy.Soy[Link]
	db       *sqlx.DB
	embedder Embedder
}

// SoyStoreOption configures a SoyStore.
type SoyStoreOption func(*SoyStore)

// WithStoreEmbedder enables semantic retrieval ordering. The embedder is
// injected here and owned by the composition root.
func WithStoreEmbedder(e Embedder) SoyStoreOption {
	return func(s *SoyStore) { s.embedder = e }
}

// NewSoyStore creates a soy-backed Store implementation.
func NewSoyStore(db *sqlx.DB, opts ...SoyStoreOption) (*SoyStore, error) {
	renderer := postgres.New()

	items, err := soy.New[KnowledgeItem](db, "knowledge_items", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize knowledge_items table: %w", err)
	}

	signals, err := soy.New[Signal](db, "memory_signals", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory_signals table: %w", err)
	}

	links, err := soy.New[Link](db, "memory_links", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory_links table: %w", err)
	}

	s := &SoyStore{
		items:   items,
		signals: signals,
		links:   links,
		db:      db,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Retrieve returns up to q.Limit items from the workspace, ordered by
// semantic distance when an embedder is configured and by importance
// otherwise. Importance/confidence floors are applied after retrieval.
func (s *SoyStore) Retrieve(ctx context.Context, q RetrieveQuery) (*RetrieveResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}

	var (
		rows []*KnowledgeItem
		err  error
	)
	if s.embedder != nil && q.Query != "" {
		var embedding []float32
		embedding, err = s.embedder.Embed(ctx, q.Query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		rows, err = s.items.Query().
			Where("workspace_id", "=", "workspace").
			WhereNotNull("embedding").
			OrderByExpr("embedding", "<->", "query_embedding", "asc").
			Limit(limit).
			Exec(ctx, map[string]any{
				"workspace":       q.Workspace,
				"query_embedding": Vector(embedding),
			})
	} else {
		rows, err = s.items.Query().
			Where("workspace_id", "=", "workspace").
			OrderBy("importance", "desc").
			Limit(limit).
			Exec(ctx, map[string]any{"workspace": q.Workspace})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve items: %w", err)
	}

	result := &RetrieveResult{}
	kept := make([]*KnowledgeItem, 0, len(rows))
	for _, row := range rows {
		if row.Importance < q.MinImportance || row.Confidence < q.MinConfidence {
			continue
		}
		kept = append(kept, row)
	}
	for i, row := range kept {
		item := *row
		// Relevance decays with retrieval rank.
		item.Relevance = roundClamp100(100 - float64(i)*100/float64(len(kept)))
		result.Items = append(result.Items, item)
	}

	if q.IncludeRelated && len(result.Items) > 0 {
		related, err := s.relatedItems(ctx, result.Items)
		if err != nil {
			return nil, err
		}
		result.Related = related
	}

	return result, nil
}

// relatedItems loads items one relationship hop away from the primaries.
func (s *SoyStore) relatedItems(ctx context.Context, primaries []KnowledgeItem) ([]RelatedItem, error) {
	ids := make([]string, len(primaries))
	primary := make(map[string]struct{}, len(primaries))
	for i, item := range primaries {
		ids[i] = item.ID
		primary[item.ID] = struct{}{}
	}

	links, err := s.links.Query().
		Where("from_id", "IN", "ids").
		Exec(ctx, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}
	if len(links) == 0 {
		return nil, nil
	}

	targetIDs := make([]string, 0, len(links))
	seen := make(map[string]struct{})
	for _, link := range links {
		if _, isPrimary := primary[link.ToID]; isPrimary {
			continue
		}
		if _, dup := seen[link.ToID]; dup {
			continue
		}
		seen[link.ToID] = struct{}{}
		targetIDs = append(targetIDs, link.ToID)
	}
	if len(targetIDs) == 0 {
		return nil, nil
	}

	targets, err := s.Items(ctx, targetIDs)
	if err != nil {
		return nil, err
	}
	targetMap := make(map[string]KnowledgeItem, len(targets))
	for _, item := range targets {
		targetMap[item.ID] = item
	}

	related := make([]RelatedItem, 0, len(links))
	for _, link := range links {
		item, ok := targetMap[link.ToID]
		if !ok {
			continue
		}
		related = append(related, RelatedItem{
			Item:         item,
			Relationship: link.Relationship,
			Strength:     link.Strength,
		})
	}
	return related, nil
}

// Items loads knowledge items by ID. Unknown IDs are omitted.
func (s *SoyStore) Items(ctx context.Context, ids []string) ([]KnowledgeItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.items.Query().
		Where("id", "IN", "ids").
		Exec(ctx, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	items := make([]KnowledgeItem, len(rows))
	for i, row := range rows {
		items[i] = *row
	}
	return items, nil
}

// UnresolvedSignals returns unresolved signals attached to the given
// items.
func (s *SoyStore) UnresolvedSignals(ctx context.Context, itemIDs []string) ([]Signal, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	rows, err := s.signals.Query().
		Where("item_id", "IN", "item_ids").
		Where("resolved", "=", "resolved").
		Exec(ctx, map[string]any{
			"item_ids": itemIDs,
			"resolved": false,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}
	signals := make([]Signal, len(rows))
	for i, row := range rows {
		signals[i] = *row
	}
	return signals, nil
}

// Links returns relationships originating from the given items, filtered
// to the supplied labels. Only links whose target is also in the item set
// count as evidence "among the items", so targets outside the set are
// dropped when a label filter is supplied.
func (s *SoyStore) Links(ctx context.Context, itemIDs []string, relationships []string) ([]Link, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	query := s.links.Query().Where("from_id", "IN", "ids")
	params := map[string]any{"ids": itemIDs}
	if len(relationships) > 0 {
		query = query.Where("relationship", "IN", "rels")
		params["rels"] = relationships
	}

	rows, err := query.Exec(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}

	inSet := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		inSet[id] = struct{}{}
	}

	links := make([]Link, 0, len(rows))
	for _, row := range rows {
		if len(relationships) > 0 {
			if _, ok := inSet[row.ToID]; !ok {
				continue
			}
		}
		links = append(links, *row)
	}
	return links, nil
}

// Close closes the underlying database connection.
func (s *SoyStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SoyStore)(nil)
