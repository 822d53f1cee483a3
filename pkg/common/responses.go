package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies forwarded to the upstream service
const DefaultMaxBodyBytes = 10 << 20

// RespondJSON writes data as a JSON document with the given status
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ParseJSONBody decodes a request body with a size limit. Unknown fields are
// rejected when strict is set.
func ParseJSONBody(r *http.Request, v interface{}, maxBytes int64, strict bool) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	if decoder.More() {
		return errors.New("request body has trailing data")
	}
	return nil
}
