package exports

import (
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"treasurehunt/indexer"
)

type parquetRow struct {
	Treasure     string  `parquet:"name=treasure, type=BYTE_ARRAY, convertedtype=UTF8"`
	Handle       string  `parquet:"name=handle, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name         string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol       string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Mint         string  `parquet:"name=mint, type=BYTE_ARRAY, convertedtype=UTF8"`
	Finder       string  `parquet:"name=finder, type=BYTE_ARRAY, convertedtype=UTF8"`
	Lat          float64 `parquet:"name=lat, type=DOUBLE"`
	Lng          float64 `parquet:"name=lng, type=DOUBLE"`
	RewardAmount uint64  `parquet:"name=reward_amount, type=INT64, convertedtype=UINT_64"`
	FoundAt      int64   `parquet:"name=found_at, type=INT64"`
}

// writeParquet writes the discoveries as a snappy-compressed parquet file.
func writeParquet(path string, rows []indexer.Discovery) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("exports: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetRow{
			Treasure:     row.Treasure,
			Handle:       row.Handle,
			Name:         row.Name,
			Symbol:       row.Symbol,
			Mint:         row.Mint,
			Finder:       row.Finder,
			Lat:          row.Lat,
			Lng:          row.Lng,
			RewardAmount: row.RewardAmount,
			FoundAt:      row.FoundAt,
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("exports: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("exports: close parquet file: %w", err)
	}
	return nil
}
