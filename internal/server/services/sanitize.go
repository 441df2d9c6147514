package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/everkeep/internal/common"
)

// Collection caps. Exceeding any of them rejects the whole state.
var collectionLimits = []struct {
	key string
	max int
}{
	{"memories", 5000},
	{"sections", 200},
	{"people", 2000},
	{"places", 2000},
}

var mapKeys = []string{"settings", "flags"}

var (
	emptyList = json.RawMessage(`[]`)
	emptyMap  = json.RawMessage(`{}`)
)

// SanitizeState validates a client document and returns a copy holding
// exactly the four collections plus settings and flags. Item contents are
// not inspected.
func SanitizeState(raw json.RawMessage) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return nil, fmt.Errorf("%w: state must be an object", common.ErrInvalidState)
	}

	out := make(map[string]json.RawMessage, len(collectionLimits)+len(mapKeys))

	for _, c := range collectionLimits {
		v, ok := top[c.key]
		if !ok || isNull(v) {
			out[c.key] = emptyList
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			return nil, fmt.Errorf("%w: %s must be a list", common.ErrInvalidState, c.key)
		}
		if len(items) > c.max {
			return nil, fmt.Errorf("%w: %s exceeds %d items", common.ErrInvalidState, c.key, c.max)
		}
		out[c.key] = v
	}

	for _, k := range mapKeys {
		v, ok := top[k]
		if !ok {
			out[k] = emptyMap
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(v, &m); err != nil || m == nil {
			out[k] = emptyMap
			continue
		}
		out[k] = v
	}

	return json.Marshal(out)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
