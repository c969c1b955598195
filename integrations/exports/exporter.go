package exports

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"treasurehunt/indexer"
	"treasurehunt/observability"
)

const (
	csvFile      = "discoveries.csv"
	jsonlFile    = "discoveries.jsonl"
	parquetFile  = "discoveries.parquet"
	manifestFile = "manifest.json"
)

// ErrDirRequired is returned when the exporter has no output directory.
var ErrDirRequired = errors.New("exports: output directory required")

// Checksum returns the hex blake3-256 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Source provides the discoveries to snapshot.
type Source interface {
	Discoveries(ctx context.Context) ([]indexer.Discovery, error)
}

// Notifier is told about every completed snapshot.
type Notifier interface {
	NotifyExport(m *Manifest) error
}

// File describes one artefact of a snapshot.
type File struct {
	Name     string `json:"name"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"blake3"`
}

// Manifest indexes the files of a snapshot run.
type Manifest struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Rows        int       `json:"rows"`
	Dir         string    `json:"dir"`
	Files       []File    `json:"files"`
}

// Exporter writes periodic discovery snapshots under a base directory.
type Exporter struct {
	dir      string
	source   Source
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewExporter constructs an exporter. notifier may be nil.
func NewExporter(dir string, source Source, notifier Notifier, logger *slog.Logger) (*Exporter, error) {
	if dir == "" {
		return nil, ErrDirRequired
	}
	if source == nil {
		return nil, errors.New("exports: source required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, source: source, notifier: notifier, logger: logger, now: time.Now}, nil
}

// Run produces one snapshot directory and returns its manifest.
func (e *Exporter) Run(ctx context.Context) (manifest *Manifest, err error) {
	defer func() { observability.Runtime().RecordExport(err) }()

	rows, err := e.source.Discoveries(ctx)
	if err != nil {
		return nil, fmt.Errorf("exports: load discoveries: %w", err)
	}
	generated := e.now().UTC()
	runID := uuid.NewString()
	runDir := filepath.Join(e.dir, generated.Format("20060102T150405Z")+"-"+runID[:8])
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("exports: create run dir: %w", err)
	}

	manifest = &Manifest{RunID: runID, GeneratedAt: generated, Rows: len(rows), Dir: runDir}

	csvData, csvSum, err := DiscoveriesCSV(rows)
	if err != nil {
		return nil, fmt.Errorf("exports: csv: %w", err)
	}
	if err := writeFile(filepath.Join(runDir, csvFile), csvData); err != nil {
		return nil, err
	}
	manifest.Files = append(manifest.Files, File{Name: csvFile, Bytes: int64(len(csvData)), Checksum: csvSum})

	jsonlData, jsonlSum, err := DiscoveriesJSONL(rows)
	if err != nil {
		return nil, fmt.Errorf("exports: jsonl: %w", err)
	}
	if err := writeFile(filepath.Join(runDir, jsonlFile), jsonlData); err != nil {
		return nil, err
	}
	manifest.Files = append(manifest.Files, File{Name: jsonlFile, Bytes: int64(len(jsonlData)), Checksum: jsonlSum})

	parquetPath := filepath.Join(runDir, parquetFile)
	if err := writeParquet(parquetPath, rows); err != nil {
		return nil, err
	}
	parquetData, err := os.ReadFile(parquetPath)
	if err != nil {
		return nil, fmt.Errorf("exports: read parquet: %w", err)
	}
	manifest.Files = append(manifest.Files, File{Name: parquetFile, Bytes: int64(len(parquetData)), Checksum: Checksum(parquetData)})

	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exports: encode manifest: %w", err)
	}
	if err := writeFile(filepath.Join(runDir, manifestFile), encoded); err != nil {
		return nil, err
	}
	e.logger.Info("discovery snapshot written",
		slog.String("run", runID),
		slog.String("dir", runDir),
		slog.Int("rows", len(rows)))

	if e.notifier != nil {
		if nerr := e.notifier.NotifyExport(manifest); nerr != nil {
			e.logger.Warn("export notification failed", slog.String("run", runID), slog.Any("error", nerr))
		}
	}
	return manifest, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("exports: write %s: %w", filepath.Base(path), err)
	}
	return nil
}
