package transport

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/okian/sunwatch/internal/domain/model"
)

const contentType = "application/json"

// envelope is the wire form of an Item on the broker.
type envelope struct {
	ID     string       `json:"id"`
	Path   string       `json:"path"`
	Fields model.Fields `json:"fields"`
	At     time.Time    `json:"at"`
}

func encodeItem(item Item) ([]byte, error) {
	b, err := json.Marshal(envelope{
		ID:     item.ID,
		Path:   item.Path,
		Fields: item.Fields,
		At:     item.At.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode item %s: %w", item.ID, err)
	}
	return b, nil
}

// decodeItem keeps numbers as json.Number so integer codes survive.
func decodeItem(b []byte) (Item, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}
	if env.Path == "" {
		return Item{}, fmt.Errorf("decode item %s: missing path", env.ID)
	}
	return Item{ID: env.ID, Path: env.Path, Fields: env.Fields, At: env.At}, nil
}

// routingKey maps a path to a topic routing key:
// "/watch_face_config/Digital" becomes "watch_face_config.Digital".
func routingKey(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}
