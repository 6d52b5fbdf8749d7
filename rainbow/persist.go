package rainbow

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	log "github.com/sirupsen/logrus"
)

// LoadOptions configures Load.
type LoadOptions struct {
	// Verify recomputes every chain and rejects rows whose endpoint does
	// not match.
	Verify bool
}

// WriteRows writes the table as "<start>,<end>" lines, grouped by endpoint.
func WriteRows(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	for i, row := range t.Rows() {
		if err := cw.Write([]string{row.Start, row.End}); err != nil {
			return &PersistenceError{Line: i + 1, Err: fmt.Errorf("unable to write row: %w", err)}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &PersistenceError{Err: fmt.Errorf("unable to flush CSV writer: %w", err)}
	}
	return nil
}

// ReadRows parses "<start>,<end>" lines.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.ReuseRecord = true

	var rows []Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &PersistenceError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return nil, &PersistenceError{Err: err}
		}
		if record[0] == "" || record[1] == "" {
			line, _ := cr.FieldPos(0)
			return nil, &PersistenceError{Line: line, Err: errors.New("empty start or endpoint")}
		}
		rows = append(rows, Row{Start: record[0], End: record[1]})
	}
}

// Save writes the table to path. The file is compressed according to its
// suffix: .zst, .gz and .lz4 are understood, anything else is plain text.
// The file is written next to path first and renamed on success.
func Save(t *Table, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &PersistenceError{Path: path, Err: fmt.Errorf("unable to create output file: %w", err)}
	}

	err = writeCompressed(f, path, func(w io.Writer) error {
		return WriteRows(t, w)
	})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return asPersistenceError(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Path: path, Err: err}
	}

	log.WithFields(log.Fields{"path": path, "endpoints": t.Size(), "chains": t.Chains()}).Info("saved rainbow table")
	return nil
}

// Load replaces the contents of t with the rows in path.
// Rows sharing an endpoint are merged into one start list. On any error the
// table keeps its previous contents.
func Load(t *Table, path string, opts LoadOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	defer f.Close()

	r, closer, err := openCompressed(f, path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	defer closer()

	rows, err := ReadRows(bufio.NewReader(r))
	if err != nil {
		return asPersistenceError(path, err)
	}

	state := newTableState()
	for i, row := range rows {
		if err := checkCandidate(row.Start); err != nil {
			return &PersistenceError{Path: path, Line: i + 1, Err: err}
		}
		if opts.Verify {
			end, err := t.engine.ComputeChain(row.Start)
			if err != nil {
				return &PersistenceError{Path: path, Line: i + 1, Err: err}
			}
			if end != row.End {
				return &PersistenceError{
					Path: path,
					Line: i + 1,
					Err:  fmt.Errorf("chain from %q ends at %q, file says %q", row.Start, end, row.End),
				}
			}
		}
		state.add(row.Start, row.End)
	}
	t.replace(state)

	log.WithFields(log.Fields{"path": path, "endpoints": len(state.order), "chains": state.chains}).Info("loaded rainbow table")
	return nil
}

func asPersistenceError(path string, err error) error {
	var pErr *PersistenceError
	if errors.As(err, &pErr) {
		if pErr.Path == "" {
			pErr.Path = path
		}
		return pErr
	}
	return &PersistenceError{Path: path, Err: err}
}

func writeCompressed(w io.Writer, path string, write func(io.Writer) error) error {
	var cw io.WriteCloser
	switch {
	case strings.HasSuffix(path, ".zst"):
		cw = zstd.NewWriter(w)
	case strings.HasSuffix(path, ".gz"):
		cw = gzip.NewWriter(w)
	case strings.HasSuffix(path, ".lz4"):
		cw = lz4.NewWriter(w)
	default:
		bw := bufio.NewWriter(w)
		if err := write(bw); err != nil {
			return err
		}
		return bw.Flush()
	}

	if err := write(cw); err != nil {
		_ = cw.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("unable to finish compressed stream: %w", err)
	}
	return nil
}

func openCompressed(r io.Reader, path string) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		zr := zstd.NewReader(r)
		return zr, func() { _ = zr.Close() }, nil
	case strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open gzip stream: %w", err)
		}
		return gr, func() { _ = gr.Close() }, nil
	case strings.HasSuffix(path, ".lz4"):
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}
