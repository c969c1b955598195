package exports

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"treasurehunt/indexer"
)

var csvHeader = []string{"treasure", "handle", "name", "symbol", "mint", "finder", "lat", "lng", "reward_amount", "found_at"}

// DiscoveriesCSV builds a CSV export for the supplied discoveries and returns
// the serialised data alongside a blake3 checksum of the payload.
func DiscoveriesCSV(rows []indexer.Discovery) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(csvHeader); err != nil {
		return nil, "", err
	}
	for _, row := range rows {
		record := []string{
			row.Treasure,
			row.Handle,
			row.Name,
			row.Symbol,
			row.Mint,
			row.Finder,
			strconv.FormatFloat(row.Lat, 'f', -1, 64),
			strconv.FormatFloat(row.Lng, 'f', -1, 64),
			strconv.FormatUint(row.RewardAmount, 10),
			time.Unix(row.FoundAt, 0).UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	return data, Checksum(data), nil
}
