package lookup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"
)

// AppendLookupFunc reads a single document and stores whatever it finds
// relevant in the lookup map.
type AppendLookupFunc func(context.Context, *sync.Map, io.ReadCloser) error

// FixedMetadataAppendLookupFunc stores a fixed sensor metadata document under
// the sensor name recorded in its 'sensor' key. Documents without a sensor
// name are skipped; duplicate sensor names are an error.
func FixedMetadataAppendLookupFunc(ctx context.Context, lu *sync.Map, fh io.ReadCloser) error {

	body, err := io.ReadAll(fh)

	if err != nil {
		return err
	}

	sensor_rsp := gjson.GetBytes(body, "sensor")

	if !sensor_rsp.Exists() {
		slog.Warn("Fixed metadata document is missing a sensor name, skipping")
		return nil
	}

	sensor := sensor_rsp.String()

	_, exists := lu.LoadOrStore(sensor, body)

	if exists {
		return fmt.Errorf("Existing fixed metadata for sensor '%s'", sensor)
	}

	return nil
}
