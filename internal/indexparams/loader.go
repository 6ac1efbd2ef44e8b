package indexparams

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML parameter file and returns the validated Params
// along with the raw bytes. Unknown fields fail the load so typos never
// silently fall back to defaults. Fields absent from the file keep
// their built-in default.
func Load(path string) (Params, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, nil, fmt.Errorf("failed to read params file: %w", err)
	}

	p := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Params{}, nil, fmt.Errorf("failed to decode params file %s: %w", path, err)
	}

	if err := Validate(p); err != nil {
		return Params{}, data, err
	}

	return p, data, nil
}

// Resolve returns the validated parameter set for a run: Load(path)
// when path is non-empty, the built-in defaults otherwise.
func Resolve(path string) (Params, error) {
	if path == "" {
		p := Default()
		if err := Validate(p); err != nil {
			return Params{}, err
		}
		return p, nil
	}
	p, _, err := Load(path)
	return p, err
}

// Hash generates a SHA-256 hash over the canonical JSON encoding of
// Params. Struct encoding keeps field order deterministic, so equal
// parameter sets hash equally across runs.
func Hash(p Params) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
