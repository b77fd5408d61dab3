package configstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// recognizedKeys lists every JSON key Config decodes, used to split a raw
// document into "recognized" (goes through Config/validation) and
// "unknown" (preserved byte-for-byte on write-back) parts.
var recognizedKeys = map[string]struct{}{
	"target_temperature":     {},
	"espresso_temperature":   {},
	"steam_temperature":      {},
	"proportional":           {},
	"integral":               {},
	"derivative":             {},
	"recovery_proportional":  {},
	"recovery_integral":      {},
	"recovery_derivative":    {},
	"machine_state":          {},
	"machine_state_updated":  {},
}

// document is a decoded config file: the recognized Config plus whatever
// unrecognized keys were present, kept as raw JSON so they survive a
// write-back untouched (spec.md §3: "any unknown key is preserved on
// write-back").
type document struct {
	Config  Config
	Unknown map[string]json.RawMessage
}

// readDocument loads and splits path's JSON document. A missing file is
// not an error: it returns an empty document so first-install semantics
// (spec.md §3 lifecycle: "created once on first install") are handled by
// the caller writing Defaults.
func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return document{Unknown: map[string]json.RawMessage{}}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return document{}, fmt.Errorf("parse config: %w", err)
	}

	unknown := map[string]json.RawMessage{}
	recognized := map[string]json.RawMessage{}
	for k, v := range raw {
		if _, ok := recognizedKeys[k]; ok {
			recognized[k] = v
		} else {
			unknown[k] = v
		}
	}

	recognizedBytes, err := json.Marshal(recognized)
	if err != nil {
		return document{}, fmt.Errorf("re-marshal recognized fields: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(recognizedBytes, &cfg); err != nil {
		return document{}, fmt.Errorf("decode recognized fields: %w", err)
	}

	return document{Config: cfg, Unknown: unknown}, nil
}

// writeDocument atomically replaces path's contents with doc: marshal the
// recognized Config fields, overlay the preserved unknown keys, write to
// a temp file in the same directory, then rename over the destination
// (spec.md §4.9: "temp-file-then-rename pattern").
func writeDocument(path string, doc document) error {
	merged := map[string]json.RawMessage{}

	cfgBytes, err := json.Marshal(doc.Config)
	if err != nil {
		return fmt.Errorf("%w: marshal config", errSerialization)
	}
	var cfgFields map[string]json.RawMessage
	if err := json.Unmarshal(cfgBytes, &cfgFields); err != nil {
		return fmt.Errorf("%w: re-decode config fields", errSerialization)
	}
	for k, v := range cfgFields {
		merged[k] = v
	}
	for k, v := range doc.Unknown {
		merged[k] = v
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(merged); err != nil {
		return fmt.Errorf("%w: encode document", errSerialization)
	}

	return atomicWrite(path, out.Bytes())
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return classifyWriteError(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return classifyWriteError(err)
	}
	if err := tmp.Close(); err != nil {
		return classifyWriteError(err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return classifyWriteError(err)
	}
	return nil
}
