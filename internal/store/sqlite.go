package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// New creates a new SQLite store at the given path and applies any pending
// migrations. Use ":memory:" for an ephemeral database.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize access through a single connection. SQLite handles one
	// writer at a time and :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertChunks inserts or replaces source units in a single transaction.
// A unit whose (collection, item, chunk index) key already exists is
// overwritten in place.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, units []*types.SourceUnit) error {
	if len(units) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection_key, item_path, chunk_index, text,
			start_line, end_line, language, content_hash, embedding, kind, is_global)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_key, item_path, chunk_index) DO UPDATE SET
			text = excluded.text,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			language = excluded.language,
			content_hash = excluded.content_hash,
			embedding = excluded.embedding,
			kind = excluded.kind,
			is_global = excluded.is_global,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, u := range units {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("invalid source unit %s: %w", u.RefID(), err)
		}
		kind := u.Kind
		if kind == "" {
			kind = types.KindCode
		}
		_, err := stmt.ExecContext(ctx,
			u.CollectionKey, u.ItemPath, u.ChunkIndex, u.Text,
			u.StartLine, u.EndLine, u.Language, u.ContentHash,
			serializeVector(u.Embedding), string(kind), u.IsGlobal)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", u.RefID(), err)
		}
	}

	return tx.Commit()
}

// DeleteItem removes all chunks for an item. Deleting an item with no
// chunks is a no-op.
func (s *SQLiteStore) DeleteItem(ctx context.Context, collectionKey, itemPath string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection_key = ? AND item_path = ?",
		collectionKey, itemPath)
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemPath, err)
	}
	return nil
}

// DeleteCollection removes all chunks and the status row for a collection.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, collectionKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE collection_key = ?", collectionKey); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM index_status WHERE collection_key = ?", collectionKey); err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}

	return tx.Commit()
}

// GetItemHash returns the stored content hash for an item, or ErrNotFound
// if the item has no chunks.
func (s *SQLiteStore) GetItemHash(ctx context.Context, collectionKey, itemPath string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT content_hash FROM chunks WHERE collection_key = ? AND item_path = ? LIMIT 1",
		collectionKey, itemPath).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get item hash: %w", err)
	}
	return hash, nil
}

// CountChunks returns the number of chunks stored for a collection.
func (s *SQLiteStore) CountChunks(ctx context.Context, collectionKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection_key = ?", collectionKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// candidate is a chunk row with its embedding, before scoring.
type candidate struct {
	result    types.SearchResult
	embedding []float32
}

// Query ranks all eligible chunks by cosine similarity against queryVector.
// Ranking is computed over the full eligible set first; Languages and
// PathPrefixes filters are applied to the ranked list, then the limit.
func (s *SQLiteStore) Query(ctx context.Context, collectionKey string, queryVector []float32, opts QueryOptions) ([]types.SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	query := `SELECT item_path, chunk_index, text, start_line, end_line, language, embedding, kind
		FROM chunks WHERE `
	args := []any{}

	if opts.IncludeGlobal {
		query += "(collection_key = ? OR (kind = ? AND is_global = 1))"
		args = append(args, collectionKey, string(types.KindMemory))
	} else {
		query += "collection_key = ?"
		args = append(args, collectionKey)
	}

	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var scored []candidate
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, err
		}
		sim := cosineSimilarity(queryVector, c.embedding)
		if sim < opts.Threshold {
			continue
		}
		c.result.Similarity = sim
		scored = append(scored, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunk rows: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i].result, scored[j].result
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		ai, bi := chunkIndexOf(a.RefID), chunkIndexOf(b.RefID)
		if ai != bi {
			return ai < bi
		}
		return a.Location.Path < b.Location.Path
	})

	results := make([]types.SearchResult, 0, len(scored))
	for _, c := range scored {
		if !matchLanguage(c.result.Language, opts.Languages) {
			continue
		}
		if !matchPrefix(c.result.Location.Path, opts.PathPrefixes) {
			continue
		}
		results = append(results, c.result)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// scanChunkRow maps a chunk row into a scoring candidate.
func scanChunkRow(rows *sql.Rows) (candidate, error) {
	var (
		itemPath   string
		chunkIndex int
		text       string
		startLine  int
		endLine    int
		language   sql.NullString
		blob       []byte
		kind       string
	)
	if err := rows.Scan(&itemPath, &chunkIndex, &text, &startLine, &endLine, &language, &blob, &kind); err != nil {
		return candidate{}, fmt.Errorf("failed to scan chunk row: %w", err)
	}

	refID := fmt.Sprintf("%s#%d", itemPath, chunkIndex)
	if kind == string(types.KindMemory) {
		refID = itemPath
	}

	return candidate{
		result: types.SearchResult{
			RefID: refID,
			Text:  text,
			Location: types.Location{
				Path:      itemPath,
				StartLine: startLine,
				EndLine:   endLine,
			},
			Kind:     types.ResultKind(kind),
			Language: language.String,
		},
		embedding: deserializeVector(blob),
	}, nil
}

// chunkIndexOf extracts the chunk index from a code ref ID. Memory ref IDs
// have no index and sort as zero.
func chunkIndexOf(refID string) int {
	i := strings.LastIndex(refID, "#")
	if i < 0 {
		return 0
	}
	var idx int
	if _, err := fmt.Sscanf(refID[i+1:], "%d", &idx); err != nil {
		return 0
	}
	return idx
}

func matchLanguage(language string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, l := range filter {
		if strings.EqualFold(language, l) {
			return true
		}
	}
	return false
}

func matchPrefix(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// UpsertStatus inserts or replaces the status row for a collection.
func (s *SQLiteStore) UpsertStatus(ctx context.Context, status *types.IndexStatus) error {
	var lastIndexed any
	if !status.LastIndexedAt.IsZero() {
		lastIndexed = status.LastIndexedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_status (collection_key, state, files_indexed, chunks_created, last_indexed_at, error_message, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection_key) DO UPDATE SET
			state = excluded.state,
			files_indexed = excluded.files_indexed,
			chunks_created = excluded.chunks_created,
			last_indexed_at = excluded.last_indexed_at,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP`,
		status.CollectionKey, string(status.State), status.FilesIndexed,
		status.ChunksCreated, lastIndexed, status.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}

// GetStatus returns the status row for a collection. A collection that has
// never been indexed reports the idle state.
func (s *SQLiteStore) GetStatus(ctx context.Context, collectionKey string) (*types.IndexStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT collection_key, state, files_indexed, chunks_created, last_indexed_at, error_message, updated_at
		FROM index_status WHERE collection_key = ?`, collectionKey)

	status, err := scanStatusRow(row)
	if err == sql.ErrNoRows {
		return &types.IndexStatus{
			CollectionKey: collectionKey,
			State:         types.StateIdle,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

// scanStatusRow maps a status row into a typed IndexStatus.
func scanStatusRow(row *sql.Row) (*types.IndexStatus, error) {
	var (
		status      types.IndexStatus
		state       string
		lastIndexed sql.NullTime
		errMsg      sql.NullString
	)
	err := row.Scan(&status.CollectionKey, &state, &status.FilesIndexed,
		&status.ChunksCreated, &lastIndexed, &errMsg, &status.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan status row: %w", err)
	}
	status.State = types.IndexState(state)
	if lastIndexed.Valid {
		status.LastIndexedAt = lastIndexed.Time
	}
	status.ErrorMessage = errMsg.String
	return &status, nil
}

// UpsertMemory inserts or replaces a memory record.
func (s *SQLiteStore) UpsertMemory(ctx context.Context, rec *types.MemoryRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid memory record: %w", err)
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, collection_key, memory_type, title, content, is_global,
			source_item_id, relevance_score, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			memory_type = excluded.memory_type,
			title = excluded.title,
			content = excluded.content,
			is_global = excluded.is_global,
			source_item_id = excluded.source_item_id,
			relevance_score = excluded.relevance_score,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		rec.ID, rec.CollectionKey, string(rec.MemoryType), rec.Title, rec.Content,
		rec.IsGlobal, nullString(rec.SourceItemID), rec.RelevanceScore, rec.IsActive,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert memory %s: %w", rec.ID, err)
	}
	return nil
}

// GetMemory returns a memory record by ID, or ErrNotFound.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*types.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_key, memory_type, title, content, is_global,
			source_item_id, relevance_score, is_active, created_at, updated_at
		FROM memories WHERE id = ?`, id)

	rec, err := scanMemoryRow(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListMemories returns active memories for a collection, newest first.
// With includeGlobal, globally visible memories from other collections are
// included as well.
func (s *SQLiteStore) ListMemories(ctx context.Context, collectionKey string, includeGlobal bool) ([]*types.MemoryRecord, error) {
	query := `
		SELECT id, collection_key, memory_type, title, content, is_global,
			source_item_id, relevance_score, is_active, created_at, updated_at
		FROM memories WHERE is_active = 1 AND `
	args := []any{}
	if includeGlobal {
		query += "(collection_key = ? OR is_global = 1)"
	} else {
		query += "collection_key = ?"
	}
	args = append(args, collectionKey)
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	var records []*types.MemoryRecord
	for rows.Next() {
		rec, err := scanMemoryRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memory rows: %w", err)
	}
	return records, nil
}

// DeactivateMemory soft-deletes a memory record. The embedding chunk must be
// removed separately via DeleteItem.
func (s *SQLiteStore) DeactivateMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE memories SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate memory %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivation of %s: %w", id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMemoryRow maps a memory row into a typed MemoryRecord.
func scanMemoryRow(row rowScanner) (*types.MemoryRecord, error) {
	var (
		rec        types.MemoryRecord
		memoryType string
		sourceItem sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.CollectionKey, &memoryType, &rec.Title, &rec.Content,
		&rec.IsGlobal, &sourceItem, &rec.RelevanceScore, &rec.IsActive,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan memory row: %w", err)
	}
	rec.MemoryType = types.MemoryType(memoryType)
	rec.SourceItemID = sourceItem.String
	return &rec, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
