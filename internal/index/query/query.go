// Package query implements C3's read surface over the persisted index:
// lexical/embedding search, node lookup, implementation discovery, and
// type-member enumeration, as exposed to agents via tools and to the MCP
// host via §6's aura_search/aura_navigate operations.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"aura/internal/db"
	"aura/internal/index/store"
)

// Query answers read operations against one Aura database.
type Query struct {
	db *db.DB
}

// New wraps an open database connection.
func New(d *db.DB) *Query {
	return &Query{db: d}
}

// EmbeddingProvider turns text into a vector; Search uses it only when
// configured, degrading to lexical-only scoring otherwise.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchResult is one scored chunk returned by Search.
type SearchResult struct {
	store.Chunk
	Score float64
}

// Search ranks chunks in workspaceID against a free-text query. When
// embedder is non-nil and every candidate chunk has a stored embedding,
// ranking uses cosine similarity; otherwise it falls back to a lexical
// token-overlap score, exactly the degrade path spec.md requires when no
// embedding provider is configured.
func (q *Query) Search(ctx context.Context, st *store.Store, workspaceID, text string, embedder EmbeddingProvider, limit int) ([]SearchResult, error) {
	chunks, err := st.ChunksForWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query: search: %w", err)
	}

	var results []SearchResult
	if embedder != nil && allHaveEmbeddings(chunks) {
		vecs, err := embedder.Embed(ctx, []string{text})
		if err != nil || len(vecs) == 0 {
			results = lexicalScore(chunks, text)
		} else {
			qvec := vecs[0]
			for _, c := range chunks {
				results = append(results, SearchResult{Chunk: c, Score: cosine(qvec, c.Embedding)})
			}
		}
	} else {
		results = lexicalScore(chunks, text)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func allHaveEmbeddings(chunks []store.Chunk) bool {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return false
		}
	}
	return len(chunks) > 0
}

func lexicalScore(chunks []store.Chunk, text string) []SearchResult {
	terms := strings.Fields(strings.ToLower(text))
	var out []SearchResult
	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		score := 0.0
		for _, t := range terms {
			score += float64(strings.Count(lower, t))
		}
		if score > 0 {
			out = append(out, SearchResult{Chunk: c, Score: score})
		}
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (sqrt(magA) * sqrt(magB))
}

func sqrt(f float64) float64 {
	if f == 0 {
		return 0
	}
	x := f
	for i := 0; i < 30; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

// Node is a code-graph node row.
type Node struct {
	ID, Kind, FQN, Name, SourcePath string
	StartLine, EndLine              int
}

// FindNodes looks up nodes by name: every node whose name matches
// case-insensitively, exactly or as a substring, is returned; only when none
// matches does it fall back to fuzzy ranking (github.com/sahilm/fuzzy) over
// every workspace node name.
func (q *Query) FindNodes(ctx context.Context, workspaceID, name string, limit int) ([]Node, error) {
	rows, err := q.db.Conn.QueryContext(ctx,
		`SELECT id, kind, fqn, name, source_path, start_line, end_line FROM code_nodes WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query: find nodes: %w", err)
	}
	defer rows.Close()

	var all []Node
	var names []string
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Kind, &n.FQN, &n.Name, &n.SourcePath, &n.StartLine, &n.EndLine); err != nil {
			return nil, err
		}
		all = append(all, n)
		names = append(names, n.Name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var exact []Node
	lowerName := strings.ToLower(name)
	for _, n := range all {
		if strings.ToLower(n.Name) == lowerName || strings.Contains(strings.ToLower(n.Name), lowerName) {
			exact = append(exact, n)
		}
	}
	if len(exact) > 0 {
		if limit > 0 && len(exact) > limit {
			exact = exact[:limit]
		}
		return exact, nil
	}

	matches := fuzzy.Find(name, names)
	var out []Node
	for _, m := range matches {
		out = append(out, all[m.Index])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FindImplementations returns every node connected to ifaceFQN by an
// Implements edge.
func (q *Query) FindImplementations(ctx context.Context, workspaceID, ifaceFQN string) ([]Node, error) {
	return q.edgeTraverse(ctx, workspaceID, ifaceFQN, "Implements", true)
}

// TypeMembers returns every node Contains-connected from typeFQN.
func (q *Query) TypeMembers(ctx context.Context, workspaceID, typeFQN string) ([]Node, error) {
	return q.edgeTraverse(ctx, workspaceID, typeFQN, "Contains", false)
}

func (q *Query) edgeTraverse(ctx context.Context, workspaceID, fqn, edgeKind string, reverse bool) ([]Node, error) {
	var fromQuery string
	if reverse {
		fromQuery = `SELECT e.from_node_id FROM code_edges e JOIN code_nodes n ON n.id = e.to_node_id
			WHERE e.workspace_id = ? AND e.kind = ? AND n.fqn = ?`
	} else {
		fromQuery = `SELECT e.to_node_id FROM code_edges e JOIN code_nodes n ON n.id = e.from_node_id
			WHERE e.workspace_id = ? AND e.kind = ? AND n.fqn = ?`
	}

	rows, err := q.db.Conn.QueryContext(ctx, fromQuery, workspaceID, edgeKind, fqn)
	if err != nil {
		return nil, fmt.Errorf("query: traverse: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Node
	for _, id := range ids {
		var n Node
		row := q.db.Conn.QueryRowContext(ctx,
			`SELECT id, kind, fqn, name, source_path, start_line, end_line FROM code_nodes WHERE id = ?`, id)
		if err := row.Scan(&n.ID, &n.Kind, &n.FQN, &n.Name, &n.SourcePath, &n.StartLine, &n.EndLine); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
