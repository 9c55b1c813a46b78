package qdrant

import (
	"fmt"
	"sort"
	"strings"
)

// Pinecone-style metadata filters are translated into Qdrant's must/must_not form.
// Supported: bare scalar equality, $eq, $ne, $in and $and.

type translatedFilter struct {
	Must    []any
	MustNot []any
}

func (f translatedFilter) asMap() map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = f.Must
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = f.MustNot
	}
	return out
}

func translateFilterMap(filter map[string]any) (translatedFilter, error) {
	out := translatedFilter{}
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		value := filter[key]
		if strings.EqualFold(k, "$and") {
			items, ok := value.([]any)
			if !ok {
				return translatedFilter{}, opErr(OpFilterTranslate, OperationErrorValidation, "operator $and expects an array", nil)
			}
			for _, item := range items {
				obj, ok := item.(map[string]any)
				if !ok {
					return translatedFilter{}, opErr(OpFilterTranslate, OperationErrorValidation, "operator $and expects objects", nil)
				}
				sub, err := translateFilterMap(obj)
				if err != nil {
					return translatedFilter{}, err
				}
				out.Must = append(out.Must, sub.Must...)
				out.MustNot = append(out.MustNot, sub.MustNot...)
			}
			continue
		}
		if strings.HasPrefix(k, "$") {
			return translatedFilter{}, opErr(OpFilterTranslate, OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported top-level filter operator %q", k), nil)
		}
		if err := translateField(&out, k, value); err != nil {
			return translatedFilter{}, err
		}
	}
	return out, nil
}

func translateField(out *translatedFilter, field string, value any) error {
	ops, isOps := value.(map[string]any)
	if !isOps {
		if !isScalar(value) {
			return opErr(OpFilterTranslate, OperationErrorValidation, fmt.Sprintf("field %q expects scalar value or operator object", field), nil)
		}
		out.Must = append(out.Must, matchValue(field, value))
		return nil
	}
	for op, opVal := range ops {
		switch strings.ToLower(strings.TrimSpace(op)) {
		case "$eq":
			if !isScalar(opVal) {
				return opErr(OpFilterTranslate, OperationErrorValidation, fmt.Sprintf("$eq on %q expects scalar", field), nil)
			}
			out.Must = append(out.Must, matchValue(field, opVal))
		case "$ne":
			if !isScalar(opVal) {
				return opErr(OpFilterTranslate, OperationErrorValidation, fmt.Sprintf("$ne on %q expects scalar", field), nil)
			}
			out.MustNot = append(out.MustNot, matchValue(field, opVal))
		case "$in":
			values, ok := opVal.([]any)
			if !ok || len(values) == 0 {
				return opErr(OpFilterTranslate, OperationErrorValidation, fmt.Sprintf("$in on %q expects a non-empty array", field), nil)
			}
			out.Must = append(out.Must, map[string]any{"key": field, "match": map[string]any{"any": values}})
		default:
			return opErr(OpFilterTranslate, OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported filter operator %q for field %q", op, field), nil)
		}
	}
	return nil
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
