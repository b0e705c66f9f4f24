package promptdepot

import (
	"reflect"
	"sync"
)

type payloadField struct {
	index int
	tag   string
}

type payloadSchema struct {
	fields []payloadField
}

var payloadCache sync.Map // reflect.Type -> *payloadSchema

// VarsFromStruct converts a struct (or pointer to struct) into render variables.
// Only exported fields tagged `prompt:"name"` are included; `prompt:"-"` skips a field.
// Returns ErrInvalidPayload for nil, non-struct or untagged payloads.
func VarsFromStruct(payload any) (map[string]any, error) {
	if payload == nil {
		return nil, ErrInvalidPayload
	}
	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, ErrInvalidPayload
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, ErrInvalidPayload
	}
	typ := v.Type()
	var schema *payloadSchema
	if cached, ok := payloadCache.Load(typ); ok {
		schema = cached.(*payloadSchema)
	} else {
		schema = &payloadSchema{}
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			tag := f.Tag.Get("prompt")
			if tag == "" || tag == "-" || !f.IsExported() {
				continue
			}
			schema.fields = append(schema.fields, payloadField{index: i, tag: tag})
		}
		if len(schema.fields) == 0 {
			return nil, ErrInvalidPayload
		}
		payloadCache.Store(typ, schema)
	}
	vars := make(map[string]any, len(schema.fields))
	for _, fi := range schema.fields {
		vars[fi.tag] = v.Field(fi.index).Interface()
	}
	return vars, nil
}
