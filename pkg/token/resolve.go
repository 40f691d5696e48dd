package token

import (
	"fmt"
	"reflect"
	"sort"
)

// Resolve converts v into plain template JSON values, resolving every token it contains.
// Map entries that resolve to nil are dropped.
func Resolve(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int32, int64, float32, float64:
		return v, nil
	case Str:
		if !v.IsUnresolved() {
			return v.lit, nil
		}
		return resolveToken(v.tok)
	case *Str:
		if v == nil {
			return nil, nil
		}
		return Resolve(*v)
	case Token:
		return resolveToken(v)
	case map[string]any:
		return resolveMap(v)
	case []any:
		return resolveSlice(reflect.ValueOf(v))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return Resolve(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot resolve map with %s keys", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return resolveMap(m)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		return resolveSlice(rv)
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("cannot resolve value of type %T", v)
}

func resolveToken(t Token) (any, error) {
	v, err := t.Resolve()
	if err != nil {
		return nil, err
	}
	return Resolve(v)
}

func resolveMap(m map[string]any) (any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		r, err := Resolve(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if r == nil {
			continue
		}
		out[k] = r
	}
	return out, nil
}

func resolveSlice(rv reflect.Value) (any, error) {
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		r, err := Resolve(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if r == nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
