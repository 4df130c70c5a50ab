package storage

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	rmerrors "github.com/anstrom/radiomap/internal/errors"
	"github.com/anstrom/radiomap/internal/logging"
	"github.com/anstrom/radiomap/internal/metrics"
)

const (
	dataDirPerm  = 0750
	dataFilePerm = 0600
)

// Appender appends fingerprint rows to per-modality CSV files under one
// base directory, widening each file's header as new columns appear.
type Appender struct {
	baseDir string
	mu      sync.Mutex
}

// NewAppender creates the base directory if needed and returns an
// appender rooted there.
func NewAppender(baseDir string) (*Appender, error) {
	if err := os.MkdirAll(baseDir, dataDirPerm); err != nil {
		return nil, rmerrors.WrapStorageError(rmerrors.CodeDirectoryCreate,
			"failed to create data directory", baseDir, err)
	}
	return &Appender{baseDir: baseDir}, nil
}

// BaseDir returns the directory the appender writes under.
func (a *Appender) BaseDir() string {
	return a.baseDir
}

// Append writes one row to the named CSV file. A new or empty file gets
// the row's columns as its header. If the row introduces columns the
// existing header lacks, the whole file is rewritten with the widened
// header and prior rows backfilled with blank cells; otherwise the row
// is appended aligned to the existing header, with blanks for header
// columns the row does not carry.
func (a *Appender) Append(file string, row *Row) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := filepath.Join(a.baseDir, file)

	header, records, err := a.readFile(path)
	if err != nil {
		metrics.Global().IncrementStorageErrors(file, "read")
		return err
	}

	if header == nil {
		if err := a.writeFile(path, row.Columns(), [][]string{row.record(row.Columns())}); err != nil {
			metrics.Global().IncrementStorageErrors(file, "write")
			return err
		}
		metrics.Global().IncrementRowsAppended(file)
		logging.InfoStorage("created data file", "file", file, "columns", row.Len())
		return nil
	}

	merged, widened := ReconcileHeader(header, row.Columns())
	if widened {
		records = append(records, row.record(merged))
		if err := a.writeFile(path, merged, records); err != nil {
			metrics.Global().IncrementStorageErrors(file, "write")
			return err
		}
		metrics.Global().IncrementHeaderRewrites(file)
		metrics.Global().IncrementRowsAppended(file)
		logging.InfoStorage("widened data file schema",
			"file", file,
			"columns", len(merged),
			"added", len(merged)-len(header))
		return nil
	}

	if err := a.appendRecord(path, row.record(header)); err != nil {
		metrics.Global().IncrementStorageErrors(file, "write")
		return err
	}
	metrics.Global().IncrementRowsAppended(file)
	return nil
}

// readFile returns the existing header and data records, or a nil
// header when the file is missing or empty.
func (a *Appender) readFile(path string) (header []string, records [][]string, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, rmerrors.WrapStorageError(rmerrors.CodeStorageRead,
			"failed to open data file", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// Backfilled rows can be shorter than the current header in files
	// written by other tools; tolerate ragged records on read.
	reader.FieldsPerRecord = -1

	header, err = reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, rmerrors.WrapStorageError(rmerrors.CodeStorageRead,
			"failed to read data file header", path, err)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, rmerrors.WrapStorageError(rmerrors.CodeStorageRead,
				"failed to read data file records", path, err)
		}
		// Align ragged records to the header length.
		aligned := make([]string, len(header))
		copy(aligned, record)
		records = append(records, aligned)
	}

	return header, records, nil
}

// writeFile atomically replaces the file with the given header and
// records via a temp file rename.
func (a *Appender) writeFile(path string, header []string, records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return rmerrors.WrapStorageError(rmerrors.CodeStorageWrite,
			"failed to create temp file", path, err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	writeErr := writer.Write(header)
	for _, record := range records {
		if writeErr != nil {
			break
		}
		// Pad records to the final header width.
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}
		writeErr = writer.Write(record)
	}
	if writeErr == nil {
		writer.Flush()
		writeErr = writer.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return rmerrors.WrapStorageError(rmerrors.CodeStorageWrite,
			"failed to write data file", path, writeErr)
	}

	if err := os.Chmod(tmpPath, dataFilePerm); err != nil {
		_ = os.Remove(tmpPath)
		return rmerrors.WrapStorageError(rmerrors.CodeFilePermission,
			"failed to set data file permissions", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return rmerrors.WrapStorageError(rmerrors.CodeStorageWrite,
			"failed to replace data file", path, err)
	}
	return nil
}

// appendRecord appends one record to an existing file.
func (a *Appender) appendRecord(path string, record []string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, dataFilePerm)
	if err != nil {
		return rmerrors.WrapStorageError(rmerrors.CodeStorageWrite,
			"failed to open data file for append", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(record); err != nil {
		return rmerrors.WrapStorageError(rmerrors.CodeStorageWrite,
			"failed to append record", path, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return rmerrors.WrapStorageError(rmerrors.CodeStorageWrite,
			"failed to flush record", path, err)
	}
	return nil
}
