package normalize

import (
	"encoding/json"
	"errors"
)

// Decode unmarshals a provider document into dst. A field whose JSON type does not match its
// Go type is left at the zero value and the rest of the document is still decoded; dropped
// names the first such field. Malformed JSON, or a top-level value of the wrong shape, is an error.
func Decode(raw []byte, dst any) (dropped string, err error) {
	err = json.Unmarshal(raw, dst)
	if err == nil {
		return "", nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field, nil
	}
	return "", err
}
