package types

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

// Data carries step parameters.
type Data map[string]any

func (d Data) Get(key string) (any, bool) {
	v, exists := d[key]
	return v, exists
}

func (d Data) GetString(key string) (string, bool) {
	v, exists := d.Get(key)
	return cast.ToString(v), exists
}

func (d Data) GetStringSlice(key string) ([]string, bool) {
	v, exists := d.Get(key)
	return cast.ToStringSlice(v), exists
}

func (d Data) GetInt(key string) (int, bool) {
	v, exists := d.Get(key)
	return cast.ToInt(v), exists
}

func (d Data) GetBool(key string) (bool, bool) {
	v, exists := d.Get(key)
	return cast.ToBool(v), exists
}

func (d Data) GetFloat64(key string) (float64, bool) {
	v, exists := d.Get(key)
	return cast.ToFloat64(v), exists
}

func (d Data) GetStringMapString(key string) (map[string]string, bool) {
	v, exists := d.Get(key)
	return cast.ToStringMapString(v), exists
}

func (d Data) GetStruct(key string, s any) error {
	v, exists := d.Get(key)
	if !exists {
		return errors.NotFound
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.New("marshal failed"))
	}
	return json.Unmarshal(b, s)
}

func (d Data) Set(key string, value any) {
	d[key] = value
}

/**
 * Clone returns a deep copy. Step instances receive cloned parameter sets
 * so a step mutating its Data can never leak into another instance sharing
 * the same defaults.
 */
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	cloned := make(Data, len(d))
	for k, v := range d {
		cloned[k] = cloneValue(v)
	}
	return cloned
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(value))
		for k, e := range value {
			m[k] = cloneValue(e)
		}
		return m
	case Data:
		return value.Clone()
	case []any:
		s := make([]any, len(value))
		for i, e := range value {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		s := make([]string, len(value))
		copy(s, value)
		return s
	case map[string]string:
		m := make(map[string]string, len(value))
		for k, e := range value {
			m[k] = e
		}
		return m
	}
	return v
}
