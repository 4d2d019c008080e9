// Package store persists C3's chunks and code graph to SQLite, replacing a
// file's prior chunks/nodes/edges atomically on re-ingestion so freshness
// tracking never leaves stale entries behind a deleted or renamed symbol.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/oklog/ulid/v2"

	"aura/internal/db"
	"aura/internal/index/ingest"
)

// Store is the SQLite-backed persistence layer for one Aura database.
type Store struct {
	db *db.DB
}

// New wraps an open database connection.
func New(d *db.DB) *Store {
	return &Store{db: d}
}

// ReplaceFile atomically swaps out every chunk/node/edge previously
// recorded for sourcePath in workspaceID and inserts res's contents.
func (s *Store) ReplaceFile(ctx context.Context, workspaceID, sourcePath string, res ingest.Result) error {
	tx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFile(ctx, tx, workspaceID, sourcePath); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range res.Chunks {
		id := ulid.Make().String()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, workspace_id, source_path, seq, text, start_line, end_line, ingestor, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, workspaceID, sourcePath, c.Seq, c.Text, c.StartLine, c.EndLine, c.Ingestor, now); err != nil {
			return fmt.Errorf("store: insert chunk: %w", err)
		}
	}

	fqnToID := map[string]string{}
	for _, n := range res.Nodes {
		id := ulid.Make().String()
		fqnToID[n.FQN] = id
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO code_nodes (id, workspace_id, kind, fqn, name, source_path, start_line, end_line)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, workspaceID, n.Kind, n.FQN, n.Name, sourcePath, n.StartLine, n.EndLine); err != nil {
			return fmt.Errorf("store: insert node: %w", err)
		}
	}

	for _, e := range res.Edges {
		fromID, fromOK := fqnToID[e.FromFQN]
		toID, toOK := fqnToID[e.ToFQN]
		if !fromOK || !toOK {
			continue // endpoint outside this file's batch; edges that cross files are not stored
		}
		id := ulid.Make().String()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO code_edges (id, workspace_id, kind, from_node_id, to_node_id) VALUES (?, ?, ?, ?, ?)`,
			id, workspaceID, e.Kind, fromID, toID); err != nil {
			return fmt.Errorf("store: insert edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func deleteFile(ctx context.Context, tx *sql.Tx, workspaceID, sourcePath string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM code_edges WHERE workspace_id = ? AND (
			from_node_id IN (SELECT id FROM code_nodes WHERE workspace_id = ? AND source_path = ?)
			OR to_node_id IN (SELECT id FROM code_nodes WHERE workspace_id = ? AND source_path = ?)
		)`, workspaceID, workspaceID, sourcePath, workspaceID, sourcePath); err != nil {
		return fmt.Errorf("store: delete edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM code_nodes WHERE workspace_id = ? AND source_path = ?`, workspaceID, sourcePath); err != nil {
		return fmt.Errorf("store: delete nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE workspace_id = ? AND source_path = ?`, workspaceID, sourcePath); err != nil {
		return fmt.Errorf("store: delete chunks: %w", err)
	}
	return nil
}

// SetEmbedding stores a chunk's embedding vector, serialized as a flat
// little-endian float32 BLOB.
func (s *Store) SetEmbedding(ctx context.Context, chunkID string, vec []float32) error {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	_, err := s.db.Conn.ExecContext(ctx, `UPDATE chunks SET embedding = ? WHERE id = ?`, buf, chunkID)
	return err
}

// Chunk is a persisted chunk row.
type Chunk struct {
	ID         string
	SourcePath string
	Seq        int
	Text       string
	StartLine  int
	EndLine    int
	Ingestor   string
	Embedding  []float32
}

// ChunksForWorkspace returns every chunk recorded for workspaceID.
func (s *Store) ChunksForWorkspace(ctx context.Context, workspaceID string) ([]Chunk, error) {
	rows, err := s.db.Conn.QueryContext(ctx,
		`SELECT id, source_path, seq, text, start_line, end_line, ingestor, embedding
		 FROM chunks WHERE workspace_id = ? ORDER BY source_path, seq`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var emb []byte
		if err := rows.Scan(&c.ID, &c.SourcePath, &c.Seq, &c.Text, &c.StartLine, &c.EndLine, &c.Ingestor, &emb); err != nil {
			return nil, err
		}
		if len(emb) > 0 {
			c.Embedding = decodeEmbedding(emb)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func decodeEmbedding(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

// SetFreshness records the workspace's last-indexed timestamp and git HEAD.
func (s *Store) SetFreshness(ctx context.Context, workspaceID, gitHead, embeddingModel string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Conn.ExecContext(ctx,
		`INSERT INTO index_metadata (workspace_id, last_indexed_at, last_git_head, embedding_model)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(workspace_id) DO UPDATE SET last_indexed_at = excluded.last_indexed_at,
			last_git_head = excluded.last_git_head, embedding_model = excluded.embedding_model`,
		workspaceID, now, gitHead, embeddingModel)
	return err
}

// Freshness is the persisted index-freshness record for one workspace.
type Freshness struct {
	LastIndexedAt time.Time
	LastGitHead   string
	EmbeddingModel string
}

// GetFreshness returns the freshness record for workspaceID, or the zero
// value if the workspace has never been indexed.
func (s *Store) GetFreshness(ctx context.Context, workspaceID string) (Freshness, error) {
	var f Freshness
	var lastIndexed string
	row := s.db.Conn.QueryRowContext(ctx,
		`SELECT last_indexed_at, last_git_head, embedding_model FROM index_metadata WHERE workspace_id = ?`, workspaceID)
	if err := row.Scan(&lastIndexed, &f.LastGitHead, &f.EmbeddingModel); err != nil {
		if err == sql.ErrNoRows {
			return Freshness{}, nil
		}
		return Freshness{}, err
	}
	f.LastIndexedAt, _ = time.Parse(time.RFC3339, lastIndexed)
	return f, nil
}
