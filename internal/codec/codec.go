// Package codec serializes and deserializes the values and envelope
// records that the partition engine stores on disk.
package codec

import "encoding/json"

// Marshal renders v as pretty-printed, indented JSON, matching the
// on-disk format every key file and the index snapshot use.
func Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Unmarshal decodes JSON-encoded data into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// TryUnmarshal decodes data into v, reporting false instead of an error
// on failure. A single corrupt key file should make that key look
// missing, not fail the whole partition.
func TryUnmarshal(data []byte, v any) bool {
	return json.Unmarshal(data, v) == nil
}
