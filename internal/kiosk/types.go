package kiosk

// Config is the display configuration served to kiosk clients.
// JSON field names are part of the client protocol and must not change.
type Config struct {
	KioskURL           string `json:"kioskUrl"`
	Title              string `json:"title"`
	FooterText         string `json:"footerText"`
	Timezone           string `json:"timezone"`
	DisableContextMenu bool   `json:"disableContextMenu"`
	DisableShortcuts   bool   `json:"disableShortcuts"`
}

// Override is a partial Config keyed by the same JSON field names.
// Only allow-listed fields are ever stored in an Override.
type Override map[string]any

// Clone returns an independent copy of the override.
func (o Override) Clone() Override {
	if o == nil {
		return nil
	}
	cpy := make(Override, len(o))
	for k, v := range o {
		cpy[k] = v
	}
	return cpy
}

// fieldKind describes the expected JSON type of an allow-listed field.
type fieldKind int

const (
	stringField fieldKind = iota
	boolField
)

// allowedFields is the fixed allow-list for config updates and overrides.
// Unknown fields in an update are dropped silently.
var allowedFields = map[string]fieldKind{
	"kioskUrl":           stringField,
	"title":              stringField,
	"footerText":         stringField,
	"timezone":           stringField,
	"disableContextMenu": boolField,
	"disableShortcuts":   boolField,
}

// filterFields returns only the allow-listed fields of in whose values have
// the expected type. The returned map is a fresh copy.
func filterFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, kind := range allowedFields {
		v, ok := in[key]
		if !ok {
			continue
		}
		switch kind {
		case stringField:
			if s, ok := v.(string); ok {
				out[key] = s
			}
		case boolField:
			if b, ok := v.(bool); ok {
				out[key] = b
			}
		}
	}
	return out
}

// applyFields merges allow-listed fields into cfg. Fields must already have
// passed filterFields.
func applyFields(cfg *Config, fields map[string]any) {
	for key, v := range fields {
		switch key {
		case "kioskUrl":
			cfg.KioskURL = v.(string)
		case "title":
			cfg.Title = v.(string)
		case "footerText":
			cfg.FooterText = v.(string)
		case "timezone":
			cfg.Timezone = v.(string)
		case "disableContextMenu":
			cfg.DisableContextMenu = v.(bool)
		case "disableShortcuts":
			cfg.DisableShortcuts = v.(bool)
		}
	}
}
