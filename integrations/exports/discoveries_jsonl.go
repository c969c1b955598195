package exports

import (
	"bytes"
	"encoding/json"
	"time"

	"treasurehunt/indexer"
)

// DiscoveriesJSONL builds a JSON Lines export for the supplied discoveries and
// returns the serialised payload alongside a checksum.
func DiscoveriesJSONL(rows []indexer.Discovery) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, row := range rows {
		payload := map[string]interface{}{
			"treasure":     row.Treasure,
			"handle":       row.Handle,
			"name":         row.Name,
			"symbol":       row.Symbol,
			"mint":         row.Mint,
			"finder":       row.Finder,
			"lat":          row.Lat,
			"lng":          row.Lng,
			"rewardAmount": row.RewardAmount,
			"foundAt":      time.Unix(row.FoundAt, 0).UTC().Format(time.RFC3339),
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	return data, Checksum(data), nil
}
