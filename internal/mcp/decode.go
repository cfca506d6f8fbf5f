package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode reads tool arguments into T. An argument T does not declare, or one
// of the wrong JSON type, is an error naming the argument.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var args T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return args, fmt.Errorf("arguments: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return args, fmt.Errorf("argument %q must be a %s", typeErr.Field, typeErr.Type)
		}
		return args, fmt.Errorf("arguments: %w", err)
	}
	return args, nil
}
