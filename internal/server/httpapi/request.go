package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"regexp"
	"strconv"

	"github.com/dmitrijs2005/everkeep/internal/common"
)

const maxOwnerKeyLen = 64

var ownerKeyStrip = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// readBody returns the request body as a JSON object. Missing or malformed
// bodies yield an empty object.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) (map[string]json.RawMessage, error) {
	body := map[string]json.RawMessage{}
	if r.Body == nil {
		return body, nil
	}
	if r.ContentLength > limit {
		return nil, common.ErrPayloadTooLarge
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, common.ErrPayloadTooLarge
		}
		return nil, err
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return body, nil
	}
	if json.Unmarshal(raw, &body) != nil || body == nil {
		return map[string]json.RawMessage{}, nil
	}
	return body, nil
}

// ownerKey reads the key from the body, falling back to the query string,
// and strips anything outside [A-Za-z0-9_-].
func ownerKey(r *http.Request, body map[string]json.RawMessage) string {
	raw := scalarString(body["ownerKey"])
	if raw == "" {
		raw = r.URL.Query().Get("ownerKey")
	}
	return SanitizeOwnerKey(raw)
}

func SanitizeOwnerKey(raw string) string {
	key := ownerKeyStrip.ReplaceAllString(raw, "")
	if len(key) > maxOwnerKeyLen {
		key = key[:maxOwnerKeyLen]
	}
	return key
}

// scalarString renders JSON strings and numbers as text; other kinds are "".
func scalarString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(v, &n) == nil {
		return n.String()
	}
	return ""
}

// clientUpdatedAt reads an epoch-millis value given as a number or numeric
// string. Anything else is 0.
func clientUpdatedAt(v json.RawMessage) int64 {
	s := scalarString(v)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
