package arbiter

import (
	"context"
	"time"
)

// KnowledgeItem is one unit of prior knowledge in the store. Importance
// and confidence are 0-100 scores maintained by the memory system;
// relevance is assigned per retrieval and is not persisted.
type KnowledgeItem struct {
	ID         string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()" json:"id"`
	Workspace  string    `db:"workspace_id" type:"text" constraints:"notnull" json:"workspace"`
	Type       string    `db:"item_type" type:"text" constraints:"notnull" json:"type"`
	Content    string    `db:"content" type:"text" constraints:"notnull" json:"content"`
	Importance int       `db:"importance" type:"integer" constraints:"notnull" json:"importance"`
	Confidence int       `db:"confidence" type:"integer" constraints:"notnull" json:"confidence"`
	Created    time.Time `db:"created" type:"timestamp" constraints:"notnull" json:"created"`
	Embedding  Vector    `db:"embedding" type:"vector(1536)" json:"-"`

	Relevance int `json:"relevance"`
}

// RelatedItem is a knowledge item reachable from a primary item via one
// relationship hop.
type RelatedItem struct {
	Item         KnowledgeItem `json:"item"`
	Relationship string        `json:"relationship"`
	Strength     int           `json:"strength"`
}

// Signal is an unresolved risk or anomaly observation attached to a
// knowledge item. Magnitude is 0-100.
type Signal struct {
	ID        string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()" json:"id"`
	ItemID    string    `db:"item_id" type:"uuid" constraints:"notnull" references:"knowledge_items(id)" json:"item_id"`
	Type      string    `db:"signal_type" type:"text" constraints:"notnull" json:"type"`
	Magnitude int       `db:"magnitude" type:"integer" constraints:"notnull" json:"magnitude"`
	Resolved  bool      `db:"resolved" type:"boolean" default:"false" json:"resolved"`
	Created   time.Time `db:"created" type:"timestamp" constraints:"notnull" json:"created"`
}

// Link is a typed relationship between two knowledge items. Strength is
// 0-100.
type Link struct {
	ID           string `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()" json:"id"`
	FromID       string `db:"from_id" type:"uuid" constraints:"notnull" references:"knowledge_items(id)" json:"from_id"`
	ToID         string `db:"to_id" type:"uuid" constraints:"notnull" references:"knowledge_items(id)" json:"to_id"`
	Relationship string `db:"relationship" type:"text" constraints:"notnull" json:"relationship"`
	Strength     int    `db:"strength" type:"integer" constraints:"notnull" json:"strength"`
}

// Relationship labels the risk model treats as evidence against acting.
const (
	RelContradicts = "contradicts"
	RelInvalidates = "invalidates"
)

// RetrieveQuery describes one retrieval from the knowledge store.
type RetrieveQuery struct {
	Workspace      string
	Query          string
	Limit          int
	MinImportance  int
	MinConfidence  int
	IncludeRelated bool
}

// RetrieveResult is the outcome of a retrieval: primary items ordered by
// relevance, plus items one relationship hop away when requested.
type RetrieveResult struct {
	Items   []KnowledgeItem
	Related []RelatedItem
}

// Store is the durable knowledge boundary read by the context assembler
// and the risk model. The core never writes through it; knowledge state is
// written only by the surrounding memory system, so a reasoning run cannot
// affect the inputs of a concurrently running sibling.
type Store interface {
	// Retrieve returns up to Limit items relevant to the query,
	// optionally including items one relationship hop away.
	Retrieve(ctx context.Context, q RetrieveQuery) (*RetrieveResult, error)

	// Items loads the given items by ID. Unknown IDs are omitted.
	Items(ctx context.Context, ids []string) ([]KnowledgeItem, error)

	// UnresolvedSignals returns the unresolved signals attached to the
	// given items.
	UnresolvedSignals(ctx context.Context, itemIDs []string) ([]Signal, error)

	// Links returns relationships originating from the given items,
	// filtered to the supplied relationship labels (all labels when
	// empty).
	Links(ctx context.Context, itemIDs []string, relationships []string) ([]Link, error)
}
