package utils

import (
	"encoding/json"

	"github.com/juju/errors"
)

// Serialize encodes a value into the byte form the stores persist. Every
// store payload, run records included, goes through here so the on-disk
// and in-database formats stay interchangeable.
func Serialize(o any) ([]byte, error) {
	b, err := json.Marshal(o)
	return b, errors.Trace(err)
}

// Unserialize decodes what Serialize produced into o.
func Unserialize(b []byte, o any) error {
	return errors.Trace(json.Unmarshal(b, o))
}
