package normalize

import (
	"time"

	"github.com/google/uuid"

	"github.com/user/intel-pipeline/internal/domain"
)

// Normalize converts a loosely-typed payload into the canonical record shape
// for its declared data type. Defaults never override values that are already
// present, so normalizing an already-normalized record is a no-op. Unknown
// data types pass through unchanged.
func Normalize(payload map[string]any, dataType domain.DataType) map[string]any {
	switch dataType {
	case domain.DataTypeEvent:
		return normalizeEvent(payload)
	case domain.DataTypeEntity:
		return normalizeEntity(payload)
	case domain.DataTypeRelationship:
		return normalizeRelationship(payload)
	case domain.DataTypeDocument:
		return normalizeDocument(payload)
	default:
		return payload
	}
}

func normalizeEvent(payload map[string]any) map[string]any {
	out := clone(payload)
	ensureID(out)
	defaultString(out, "type", "unknown")
	out["timestamp"] = coerceTimestamp(out["timestamp"])
	defaultString(out, "severity", "INFO")
	return out
}

func normalizeEntity(payload map[string]any) map[string]any {
	out := clone(payload)
	ensureID(out)
	defaultString(out, "type", "unknown")
	out["confidence"] = clampConfidence(out["confidence"])
	defaultString(out, "source", "unknown")
	return out
}

func normalizeRelationship(payload map[string]any) map[string]any {
	out := clone(payload)
	ensureID(out)
	resolveAlias(out, "source", "from")
	resolveAlias(out, "target", "to")
	out["confidence"] = clampConfidence(out["confidence"])
	return out
}

func normalizeDocument(payload map[string]any) map[string]any {
	out := clone(payload)
	ensureID(out)
	defaultString(out, "title", "Untitled")
	if _, ok := out["content"]; !ok {
		out["content"] = ""
	}
	return out
}

func clone(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func ensureID(m map[string]any) {
	if s, ok := m["id"].(string); ok && s != "" {
		return
	}
	m["id"] = uuid.NewString()
}

func defaultString(m map[string]any, key, def string) {
	if s, ok := m[key].(string); ok && s != "" {
		return
	}
	m[key] = def
}

// resolveAlias promotes the alias key to the canonical key when the canonical
// one is absent. The alias is left in place so the pass stays idempotent.
func resolveAlias(m map[string]any, canonical, alias string) {
	if s, ok := m[canonical].(string); ok && s != "" {
		return
	}
	if s, ok := m[alias].(string); ok && s != "" {
		m[canonical] = s
		return
	}
	defaultString(m, canonical, "unknown")
}

// coerceTimestamp accepts RFC3339 strings and epoch numbers; anything else
// is replaced with the current time.
func coerceTimestamp(v any) string {
	switch t := v.(type) {
	case string:
		if _, err := time.Parse(time.RFC3339, t); err == nil {
			return t
		}
	case float64:
		return time.Unix(int64(t), 0).UTC().Format(time.RFC3339)
	case int64:
		return time.Unix(t, 0).UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func clampConfidence(v any) float64 {
	var conf float64
	switch c := v.(type) {
	case float64:
		conf = c
	case int:
		conf = float64(c)
	case int64:
		conf = float64(c)
	default:
		conf = 0.5
	}
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
