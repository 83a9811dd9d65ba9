package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/futig/medrag/internal/entity"
)

const maxBodyBytes = 1 << 20

// JSON decodes a single JSON object from the request body into dst.
// Any failure is reported as malformed input.
func JSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", entity.ErrMalformedInput)
		}
		return fmt.Errorf("%w: invalid request body: %v", entity.ErrMalformedInput, err)
	}

	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", entity.ErrMalformedInput)
	}

	return nil
}
