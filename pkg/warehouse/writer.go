package warehouse

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"rasgo-sdk/internal/storage"
	"rasgo-sdk/internal/utils"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Conn is the part of *sqlx.DB the writers use.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Writer loads the rows of a dataset into an existing table whose columns
// match the dataset.
type Writer interface {
	Write(ctx context.Context, conn Conn, table string, ds *frame.Dataset) error
}

// maxBindParams keeps multi-row inserts under the driver parameter limits.
const maxBindParams = 30000

// InsertWriter writes rows with INSERT statements inside one transaction.
type InsertWriter struct {
	BatchSize int
	// MultiRow sends BatchSize rows per statement, otherwise a prepared
	// single row statement is executed once per row.
	MultiRow bool
}

func (w *InsertWriter) Write(ctx context.Context, conn Conn, table string, ds *frame.Dataset) error {
	if ds.Nrow() == 0 || ds.Ncol() == 0 {
		return nil
	}

	columns := ds.Names()
	kinds := make([]frame.Kind, len(columns))
	for i, c := range columns {
		kinds[i] = ds.Kind(c)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	row := "(" + placeholders(len(columns)) + ")"

	if w.MultiRow {
		batch := max(w.BatchSize, 1)
		batch = min(batch, max(maxBindParams/len(columns), 1))

		for start := 0; start < ds.Nrow(); start += batch {
			end := min(start+batch, ds.Nrow())
			values := make([]string, 0, end-start)
			args := make([]any, 0, (end-start)*len(columns))
			for r := start; r < end; r++ {
				values = append(values, row)
				args = append(args, rowValues(ds, columns, kinds, r)...)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(insert+strings.Join(values, ", ")), args...); err != nil {
				return fmt.Errorf("error inserting rows %d-%d into %s: %w", start, end, table, err)
			}
			slog.Debug("inserted rows", "table", table, "start", start, "end", end)
		}
	} else {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(insert+row))
		if err != nil {
			return fmt.Errorf("error preparing insert into %s: %w", table, err)
		}
		defer stmt.Close()

		for r := 0; r < ds.Nrow(); r++ {
			if _, err := stmt.ExecContext(ctx, rowValues(ds, columns, kinds, r)...); err != nil {
				return fmt.Errorf("error inserting row %d into %s: %w", r, table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing insert into %s: %w", table, err)
	}
	return nil
}

func rowValues(ds *frame.Dataset, columns []string, kinds []frame.Kind, row int) []any {
	values := make([]any, len(columns))
	for i, c := range columns {
		if kinds[i] == frame.KindDatetime {
			if t, ok := ds.ParseTime(c, row); ok {
				values[i] = t
				continue
			}
		}
		values[i] = ds.Value(c, row)
	}
	return values
}

type StageCredentials struct {
	AccessKey string
	SecretKey string
}

// StageWriter uploads the dataset as CSV chunks to an object store and loads
// each chunk with the dialect copy statement. Uploaded chunks are removed
// once the load finishes.
type StageWriter struct {
	Stage        storage.Stage
	Prefix       string
	ChunkRows    int
	Workers      int
	CopyTemplate string
	Credentials  StageCredentials
}

type stageChunk struct {
	index int
	ds    *frame.Dataset
}

type stagedChunk struct {
	key string
	loc storage.Location
}

type copyParams struct {
	Table     string
	Columns   string
	URI       string
	URL       string
	AccessKey string
	SecretKey string
}

func (w *StageWriter) Write(ctx context.Context, conn Conn, table string, ds *frame.Dataset) error {
	if w.CopyTemplate == "" {
		return api.Errorf(api.ErrUnsupported, "warehouse dialect does not support staged loads")
	}
	if ds.Nrow() == 0 {
		return nil
	}

	if err := w.Stage.Prepare(ctx); err != nil {
		return fmt.Errorf("error preparing stage: %w", err)
	}

	chunkRows := max(w.ChunkRows, 1)
	nChunks := (ds.Nrow() + chunkRows - 1) / chunkRows
	loadId := uuid.New().String()

	pending := make([]stageChunk, nChunks)
	for i := range pending {
		start := i * chunkRows
		idx := make([]int, 0, chunkRows)
		for r := start; r < min(start+chunkRows, ds.Nrow()); r++ {
			idx = append(idx, r)
		}
		pending[i] = stageChunk{index: i, ds: ds.Rows(idx)}
	}

	results := utils.RunInPool(ctx, pending, w.Workers, func(ctx context.Context, chunk stageChunk) (stagedChunk, error) {
		var buf bytes.Buffer
		if err := chunk.ds.WriteCSV(&buf); err != nil {
			return stagedChunk{}, err
		}
		key := path.Join(w.Prefix, loadId, fmt.Sprintf("part-%05d.csv", chunk.index))
		loc, err := w.Stage.Upload(ctx, key, &buf)
		if err != nil {
			return stagedChunk{}, fmt.Errorf("error uploading chunk %d: %w", chunk.index, err)
		}
		return stagedChunk{key: key, loc: loc}, nil
	})

	var chunks []stagedChunk
	var errs []error
	for _, task := range results {
		if task.Error != nil {
			errs = append(errs, task.Error)
		} else {
			chunks = append(chunks, task.Result)
		}
	}
	defer w.cleanup(chunks)

	if len(errs) > 0 {
		return fmt.Errorf("error staging %s: %w", table, errors.Join(errs...))
	}

	for _, chunk := range chunks {
		stmt, err := render("stage_copy", w.CopyTemplate, copyParams{
			Table:     table,
			Columns:   strings.Join(ds.Names(), ", "),
			URI:       chunk.loc.URI,
			URL:       chunk.loc.URL,
			AccessKey: w.Credentials.AccessKey,
			SecretKey: w.Credentials.SecretKey,
		})
		if err != nil {
			return err
		}
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error loading %s into %s: %w", chunk.key, table, err)
		}
		slog.Info("loaded staged chunk", "table", table, "key", chunk.key)
	}
	return nil
}

func (w *StageWriter) cleanup(chunks []stagedChunk) {
	if len(chunks) == 0 {
		return
	}
	keys := make([]string, len(chunks))
	for i, c := range chunks {
		keys[i] = c.key
	}
	if err := w.Stage.Remove(context.Background(), keys...); err != nil {
		slog.Warn("unable to remove staged chunks", "count", len(keys), "error", err)
	}
}
