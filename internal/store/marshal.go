package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/sqlheur/internal/ir"
)

// marshalArgs converts query arguments to JSON TEXT for storage.
// Arguments are normalized through ir.Value first, so an int and an int64
// store identically.
func marshalArgs(args []any) (string, error) {
	natives := make([]any, len(args))
	for i, a := range args {
		natives[i] = ir.Native(ir.Of(a))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(natives); err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalArgs parses stored JSON TEXT back into arguments.
// Numbers without a fraction or exponent decode as int64 so large
// integers keep their precision.
func unmarshalArgs(data string) ([]any, error) {
	if data == "" || data == "[]" {
		return []any{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}

	args := make([]any, len(raw))
	for i, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			args[i] = v
			continue
		}
		val, err := ir.ParseNumber(n.String())
		if err != nil {
			return nil, fmt.Errorf("unmarshal args: %w", err)
		}
		args[i] = ir.Native(val)
	}
	return args, nil
}
