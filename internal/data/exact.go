// internal/data/exact.go
package data

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// exactKeys drops object keys that do not match a json tag of typ exactly.
// encoding/json matches field names case-insensitively, which would let
// "WATCHDOG_RESET" set watchdog_reset. Values of the wrong shape are
// returned untouched so the decoder still reports them.
func exactKeys(raw json.RawMessage, typ reflect.Type) json.RawMessage {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	switch typ.Kind() {
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if !isObject(raw) || json.Unmarshal(raw, &obj) != nil {
			return raw
		}
		fields := jsonFields(typ)
		out := make(map[string]json.RawMessage, len(obj))
		for key, v := range obj {
			if ft, ok := fields[key]; ok {
				out[key] = exactKeys(v, ft)
			}
		}
		b, err := json.Marshal(out)
		if err != nil {
			return raw
		}
		return b

	case reflect.Slice, reflect.Array:
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil || items == nil {
			return raw
		}
		for i := range items {
			items[i] = exactKeys(items[i], typ.Elem())
		}
		b, err := json.Marshal(items)
		if err != nil {
			return raw
		}
		return b
	}
	return raw
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func jsonFields(typ reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		fields[name] = f.Type
	}
	return fields
}
