package docstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	_ "github.com/go-sql-driver/mysql" // mysql dialect driver registration
	_ "github.com/lib/pq"              // postgres dialect driver registration
	_ "modernc.org/sqlite"             // sqlite dialect driver registration (cgo-free, used in tests)
)

// chunkTable and bufferTable are shared across all namespaces, per spec §3.
const (
	chunkTable  = "json_chunks"
	bufferTable = "json_buffer"
)

// Store is the DocStore described in spec §4.3: a per-namespace metadata
// table, a shared chunk table, and a shared staging buffer, all reached
// through one *sql.DB/Dialect pair.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open wraps an already-configured *sql.DB (the pool; spec §5 calls for
// one bounded pool with one connection acquired per operation, which
// database/sql already provides) with dialect-specific SQL generation.
func Open(db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("docstore: db is required")
	}
	if !dialect.valid() {
		return nil, fmt.Errorf("docstore: unsupported dialect %q", dialect)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// Close releases the underlying connection pool. Safe to call once at
// process shutdown.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureChunkTable creates the shared chunk and staging-buffer tables if
// they do not already exist. Idempotent.
func (s *Store) EnsureChunkTable(ctx context.Context) error {
	blobType := "BYTEA"
	if s.dialect != DialectPostgres {
		blobType = "BLOB"
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id   %[3]s NOT NULL,
    part INTEGER NOT NULL,
    data %[2]s NOT NULL,
    PRIMARY KEY (id, part)
)`, chunkTable, blobType, s.uuidColumnType())

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrorsTransient("create chunk table", err)
	}

	bufferDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id      %[3]s PRIMARY KEY,
    content %[2]s NOT NULL
)`, bufferTable, blobType, s.uuidColumnType())

	if _, err := s.db.ExecContext(ctx, bufferDDL); err != nil {
		return apperrorsTransient("create buffer table", err)
	}
	return nil
}

// EnsureMetaTable creates the per-namespace metadata table if it does
// not already exist. The namespace must already have passed
// ValidateNamespace; this function re-validates defensively.
func (s *Store) EnsureMetaTable(ctx context.Context, namespace string) error {
	if err := ValidateNamespace(namespace); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	table := quoteIdent(s.dialect, metaTableName(namespace))
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id             %[2]s PRIMARY KEY,
    document_name  TEXT NOT NULL,
    content_length  INTEGER NOT NULL,
    content_hash   TEXT NOT NULL,
    created_at     %[3]s NOT NULL,
    updated_at     %[3]s NOT NULL
)`, table, s.uuidColumnType(), s.dialect.timestampType())

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrorsTransient("create metadata table", err)
	}
	return nil
}

// uuidColumnType returns the DDL column type used to store a document
// id. Postgres gets a native UUID column; other dialects store the
// canonical string form.
func (s *Store) uuidColumnType() string {
	if s.dialect == DialectPostgres {
		return "UUID"
	}
	return "TEXT"
}

// CreateDocumentStream implements spec §4.3's streaming insert: it reads
// body lazily (never materializing the whole document in memory),
// maintains a running SHA-256 and length, batches pending (id, part,
// bytes) tuples up to opts.MaxBatchBytes, and commits chunks + a single
// metadata row atomically in one transaction.
func (s *Store) CreateDocumentStream(ctx context.Context, namespace, documentName string, body io.Reader, opts IngestOptions) (DocumentMeta, error) {
	maxBatch := opts.MaxBatchBytes
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchBytes
	}

	id := uuid.Must(uuid.NewV7()).String()
	hasher := sha256.New()
	totalLen := 0
	part := 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DocumentMeta{}, apperrorsTransient("begin ingest transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	var pending []chunkRow
	pendingBytes := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.insertChunkBatch(ctx, tx, pending); err != nil {
			return err
		}
		pending = pending[:0]
		pendingBytes = 0
		return nil
	}

	buf := make([]byte, 64*1024)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			hasher.Write(chunk)
			totalLen += n

			pending = append(pending, chunkRow{id: id, part: part, data: chunk})
			part++
			pendingBytes += n

			if pendingBytes >= maxBatch {
				if err := flush(); err != nil {
					return DocumentMeta{}, err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return DocumentMeta{}, apperrorsTransient("read document body", readErr)
		}
	}

	if err := flush(); err != nil {
		return DocumentMeta{}, err
	}

	contentHash := hex.EncodeToString(hasher.Sum(nil))
	now := time.Now().UTC()

	table := quoteIdent(s.dialect, metaTableName(namespace))
	insertMeta := fmt.Sprintf(
		`INSERT INTO %s (id, document_name, content_length, content_hash, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s)`,
		table,
		s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
		s.dialect.placeholder(4), s.dialect.placeholder(5), s.dialect.placeholder(6),
	)
	if _, err := tx.ExecContext(ctx, insertMeta, id, documentName, totalLen, contentHash, now, now); err != nil {
		return DocumentMeta{}, apperrorsTransient("insert document metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return DocumentMeta{}, apperrorsTransient("commit ingest transaction", err)
	}

	return DocumentMeta{
		ID:            id,
		DocumentName:  documentName,
		ContentLength: totalLen,
		ContentHash:   contentHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

type chunkRow struct {
	id   string
	part int
	data []byte
}

func (s *Store) insertChunkBatch(ctx context.Context, tx *sql.Tx, rows []chunkRow) error {
	for _, r := range rows {
		if len(r.data) == 0 {
			// An empty incoming chunk is skipped without advancing part,
			// but CreateDocumentStream already assigns part per non-empty
			// read; nothing reaches here with zero length in practice.
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s (id, part, data) VALUES (%s, %s, %s)`,
			chunkTable, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))
		if _, err := tx.ExecContext(ctx, q, r.id, r.part, r.data); err != nil {
			return apperrorsTransient("insert chunk batch", err)
		}
	}
	return nil
}

// IterChunks returns a single-pass, non-restartable sequence of chunk
// bytes ordered by part ascending, per spec §4.3. The returned sequence
// stops early (without error) if the consumer's yield returns false.
func (s *Store) IterChunks(ctx context.Context, id string) func(yield func([]byte, error) bool) {
	return func(yield func([]byte, error) bool) {
		q := fmt.Sprintf(`SELECT data FROM %s WHERE id = %s ORDER BY part ASC`, chunkTable, s.dialect.placeholder(1))
		rows, err := s.db.QueryContext(ctx, q, id)
		if err != nil {
			yield(nil, apperrorsTransient("query chunks", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var data []byte
			if err := rows.Scan(&data); err != nil {
				yield(nil, apperrorsTransient("scan chunk", err))
				return
			}
			if !yield(data, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, apperrorsTransient("iterate chunks", err))
		}
	}
}

// CreateDocument is the non-streaming fast path described in spec §4.3:
// it serializes payload to canonical (compact) JSON, computes hash and
// length, and writes metadata plus the full body to the staging buffer
// in one transaction.
func (s *Store) CreateDocument(ctx context.Context, namespace, documentName string, payload map[string]any) (DocumentMeta, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return DocumentMeta{}, fmt.Errorf("%w: encode payload: %v", errBadRequest, err)
	}
	hash := sha256.Sum256(raw)
	contentHash := hex.EncodeToString(hash[:])
	contentLength := len(raw)

	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DocumentMeta{}, apperrorsTransient("begin create-document transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	table := quoteIdent(s.dialect, metaTableName(namespace))
	insertMeta := fmt.Sprintf(
		`INSERT INTO %s (id, document_name, content_length, content_hash, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s)`,
		table,
		s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
		s.dialect.placeholder(4), s.dialect.placeholder(5), s.dialect.placeholder(6),
	)
	if _, err := tx.ExecContext(ctx, insertMeta, id, documentName, contentLength, contentHash, now, now); err != nil {
		return DocumentMeta{}, apperrorsTransient("insert document metadata", err)
	}

	insertBuffer := fmt.Sprintf(`INSERT INTO %s (id, content) VALUES (%s, %s)`,
		bufferTable, s.dialect.placeholder(1), s.dialect.placeholder(2))
	if _, err := tx.ExecContext(ctx, insertBuffer, id, raw); err != nil {
		return DocumentMeta{}, apperrorsTransient("insert staging buffer", err)
	}

	if err := tx.Commit(); err != nil {
		return DocumentMeta{}, apperrorsTransient("commit create-document transaction", err)
	}

	return DocumentMeta{
		ID:            id,
		DocumentName:  documentName,
		ContentLength: contentLength,
		ContentHash:   contentHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetStagedBlob reads a non-streamed document body back from the
// staging buffer, or returns (nil, false) if none exists.
func (s *Store) GetStagedBlob(ctx context.Context, id string) ([]byte, bool, error) {
	q := fmt.Sprintf(`SELECT content FROM %s WHERE id = %s`, bufferTable, s.dialect.placeholder(1))
	var content []byte
	err := s.db.QueryRowContext(ctx, q, id).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrorsTransient("get staged blob", err)
	}
	return content, true, nil
}

// GetMeta fetches a document's metadata row, or (zero, false) if absent.
func (s *Store) GetMeta(ctx context.Context, namespace, id string) (DocumentMeta, bool, error) {
	table := quoteIdent(s.dialect, metaTableName(namespace))
	q := fmt.Sprintf(
		`SELECT id, document_name, content_length, content_hash, created_at, updated_at FROM %s WHERE id = %s`,
		table, s.dialect.placeholder(1))

	var m DocumentMeta
	err := s.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.DocumentName, &m.ContentLength, &m.ContentHash, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return DocumentMeta{}, false, nil
	}
	if err != nil {
		return DocumentMeta{}, false, apperrorsTransient("get document meta", err)
	}
	return m, true, nil
}

// DeleteMeta removes a document's metadata row and reports whether a row
// was actually deleted.
func (s *Store) DeleteMeta(ctx context.Context, namespace, id string) (bool, error) {
	table := quoteIdent(s.dialect, metaTableName(namespace))
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, table, s.dialect.placeholder(1))
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, apperrorsTransient("delete document meta", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrorsTransient("delete document meta: rows affected", err)
	}
	return n > 0, nil
}

// DeleteChunks removes all chunk rows for a document id.
func (s *Store) DeleteChunks(ctx context.Context, id string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, chunkTable, s.dialect.placeholder(1))
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return apperrorsTransient("delete chunks", err)
	}
	return nil
}

// DeleteObject deletes a document's metadata row and all of its chunks
// in one transaction. Per the §9 open-question resolution, success is
// determined solely by the metadata row: a document that has already
// been indexed has no chunks left by design, and that must not be
// treated as a delete failure.
func (s *Store) DeleteObject(ctx context.Context, namespace, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperrorsTransient("begin delete transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	table := quoteIdent(s.dialect, metaTableName(namespace))
	metaQ := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, table, s.dialect.placeholder(1))
	res, err := tx.ExecContext(ctx, metaQ, id)
	if err != nil {
		return false, apperrorsTransient("delete document meta", err)
	}
	metaDeleted, err := res.RowsAffected()
	if err != nil {
		return false, apperrorsTransient("delete document meta: rows affected", err)
	}

	chunkQ := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, chunkTable, s.dialect.placeholder(1))
	if _, err := tx.ExecContext(ctx, chunkQ, id); err != nil {
		return false, apperrorsTransient("delete chunks", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apperrorsTransient("commit delete transaction", err)
	}

	return metaDeleted > 0, nil
}

// ListMeta lists a namespace's documents ordered by created_at
// descending, honoring either a limit/offset page or an opaque cursor
// (interpreted as "id <= cursor"), per spec §4.3 and §6.
func (s *Store) ListMeta(ctx context.Context, namespace string, opts ListOptions) (DocumentList, error) {
	table := quoteIdent(s.dialect, metaTableName(namespace))

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if opts.Cursor != "" {
		q := fmt.Sprintf(
			`SELECT id, document_name, content_length, content_hash, created_at, updated_at FROM %s WHERE id <= %s ORDER BY created_at DESC LIMIT %s`,
			table, s.dialect.placeholder(1), s.dialect.placeholder(2))
		rows, err = s.db.QueryContext(ctx, q, opts.Cursor, limit)
	} else {
		q := fmt.Sprintf(
			`SELECT id, document_name, content_length, content_hash, created_at, updated_at FROM %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
			table, s.dialect.placeholder(1), s.dialect.placeholder(2))
		rows, err = s.db.QueryContext(ctx, q, limit, opts.Offset)
	}
	if err != nil {
		return DocumentList{}, apperrorsTransient("list document meta", err)
	}
	defer rows.Close()

	var items []DocumentMeta
	for rows.Next() {
		var m DocumentMeta
		if err := rows.Scan(&m.ID, &m.DocumentName, &m.ContentLength, &m.ContentHash, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return DocumentList{}, apperrorsTransient("scan document meta", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return DocumentList{}, apperrorsTransient("iterate document meta", err)
	}

	countQ := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
	var count int
	if err := s.db.QueryRowContext(ctx, countQ).Scan(&count); err != nil {
		return DocumentList{}, apperrorsTransient("count document meta", err)
	}

	return DocumentList{Items: items, Count: count}, nil
}
