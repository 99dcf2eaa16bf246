package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"BreakScan/internal/domain/models"
	applogger "BreakScan/pkg/logger"
)

type fileUploader interface {
	UploadFile(ctx context.Context, localPath, key string) (string, error)
}

// snapshotRow is the on-disk parquet layout of a Snapshot.
type snapshotRow struct {
	Kind       string  `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Symbol     string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Sector     string  `parquet:"name=sector, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Bucket     int64   `parquet:"name=bucket, type=INT64, encoding=DELTA_BINARY_PACKED"`
	LTP        float64 `parquet:"name=ltp, type=DOUBLE, encoding=PLAIN"`
	Open       float64 `parquet:"name=open, type=DOUBLE, encoding=PLAIN"`
	High       float64 `parquet:"name=high, type=DOUBLE, encoding=PLAIN"`
	Low        float64 `parquet:"name=low, type=DOUBLE, encoding=PLAIN"`
	Close      float64 `parquet:"name=close, type=DOUBLE, encoding=PLAIN"`
	Volume     int64   `parquet:"name=volume, type=INT64, encoding=DELTA_BINARY_PACKED"`
	PctChange  float64 `parquet:"name=pct_change, type=DOUBLE, encoding=PLAIN"`
	Source     string  `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CapturedAt int64   `parquet:"name=captured_at, type=INT64, encoding=DELTA_BINARY_PACKED"`
}

// ParquetArchiver writes one parquet file per session day and optionally uploads it.
type ParquetArchiver struct {
	dir      string
	uploader fileUploader
	l        *applogger.Logger
}

// NewParquetArchiver archives into dir. uploader may be nil.
func NewParquetArchiver(dir string, uploader fileUploader, l *applogger.Logger) *ParquetArchiver {
	return &ParquetArchiver{dir: dir, uploader: uploader, l: l}
}

// Archive writes snaps to snapshots_<day>.parquet and returns the final location.
// Re-archiving the same day overwrites the file.
func (a *ParquetArchiver) Archive(ctx context.Context, day time.Time, snaps []models.Snapshot) (string, error) {
	if len(snaps) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("archive dir: %w", err)
	}
	name := fmt.Sprintf("snapshots_%s.parquet", day.Format(dayLayout))
	p := filepath.Join(a.dir, name)
	if err := writeSnapshotParquet(p, snaps); err != nil {
		return "", err
	}
	if a.uploader == nil {
		return p, nil
	}
	uri, err := a.uploader.UploadFile(ctx, p, name)
	if err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	if a.l != nil {
		a.l.Info("snapshot archive uploaded",
			applogger.String("uri", uri),
			applogger.Int("rows", len(snaps)),
		)
	}
	return uri, nil
}

func writeSnapshotParquet(p string, snaps []models.Snapshot) error {
	fw, err := local.NewLocalFileWriter(p)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(snapshotRow), 2)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP
	pw.RowGroupSize = 32 * 1024 * 1024

	for _, s := range snaps {
		row := snapshotRow{
			Kind: string(s.Kind), Symbol: s.Symbol, Sector: s.Sector,
			Bucket: s.Bucket.Unix(),
			LTP:    s.LTP, Open: s.Open, High: s.High, Low: s.Low, Close: s.Close,
			Volume: s.Volume, PctChange: s.PctChange, Source: s.Source,
			CapturedAt: s.CapturedAt.UnixMilli(),
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}
