// Package sqlitevec provides a SQLite-backed store using sqlite-vec for
// cosine-distance chunk ranking.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/store"
)

// Driver implements store.Store using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the fixed embedding dimension for the vec0 table.
	// Must match the deployed embedding model.
	Dimensions uint
}

// NewDriver creates a SQLite store backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	// _foreign_keys enforces the document -> chunk cascade.
	db, err := sql.Open("sqlite3", c.DBPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", store.ErrConnection, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS text_chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_text TEXT NOT NULL,
			chunk_order INTEGER NOT NULL,
			UNIQUE (document_id, chunk_order)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating text_chunks table: %w", err)
	}

	// vec0 virtual tables use integer rowids; chunk embeddings share the
	// text_chunks rowid so the two tables stay aligned.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec store initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Begin opens a transaction for one ingestion.
func (d *Driver) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// TopKByDistance returns up to k chunks of the document ranked by ascending
// cosine distance to the query vector.
func (d *Driver) TopKByDistance(ctx context.Context, documentID int64, query []float32, k int) ([]store.ScoredChunk, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.chunk_text,
			c.chunk_order,
			vec_distance_cosine(ve.embedding, ?) AS distance
		FROM text_chunks c
		INNER JOIN chunk_embeddings ve ON ve.rowid = c.id
		WHERE c.document_id = ?
		ORDER BY distance
		LIMIT ?
	`, serializeFloat32(query), documentID, k)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []store.ScoredChunk
	for rows.Next() {
		var sc store.ScoredChunk
		if err := rows.Scan(&sc.Text, &sc.Order, &sc.Distance); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}

	d.logger.Debug("ranked chunks",
		zap.Int64("document_id", documentID),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DocumentExists reports whether a document row exists for the id.
func (d *Driver) DocumentExists(ctx context.Context, documentID int64) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE id = ?`, documentID,
	).Scan(&one)
	switch err {
	case nil:
		return true, nil
	case sql.ErrNoRows:
		return false, nil
	default:
		return false, fmt.Errorf("checking document %d: %w", documentID, err)
	}
}

// DeleteDocument removes a document and its chunks. The relational rows
// cascade via the foreign key; the vec0 rows are removed explicitly since
// virtual tables do not participate in cascades.
func (d *Driver) DeleteDocument(ctx context.Context, documentID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM chunk_embeddings
		WHERE rowid IN (SELECT id FROM text_chunks WHERE document_id = ?)
	`, documentID); err != nil {
		return fmt.Errorf("deleting embeddings for document %d: %w", documentID, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", documentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion of document %d: %w", documentID, err)
	}
	if affected == 0 {
		return store.ErrDocumentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deletion: %w", err)
	}

	return nil
}

// Close releases the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

// sqliteTx wraps a database/sql transaction as a store.Tx.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) InsertDocument(ctx context.Context, filename string) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO documents (filename) VALUES (?)`, filename,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting document id: %w", err)
	}
	return id, nil
}

func (t *sqliteTx) InsertChunk(ctx context.Context, documentID int64, text string, embedding []float32, order int) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO text_chunks (document_id, chunk_text, chunk_order)
		VALUES (?, ?, ?)
	`, documentID, text, order)
	if err != nil {
		return fmt.Errorf("inserting chunk %d for document %d: %w", order, documentID, err)
	}

	rowID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting chunk rowid: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO chunk_embeddings(rowid, embedding) VALUES (?, ?)`,
		rowID, serializeFloat32(embedding),
	); err != nil {
		return fmt.Errorf("inserting embedding for chunk %d: %w", order, err)
	}

	return nil
}

func (t *sqliteTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

var _ store.Store = (*Driver)(nil)
