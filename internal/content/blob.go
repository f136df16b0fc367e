package content

import "strings"

// Blob is the schema-loose site-wide content document: departments, services,
// job types, benefits, and similar keyed lists. It may live in a JSON file, in
// the sentinel database row, or both.
type Blob map[string]any

// Merge returns a copy of base with overlay's top-level keys taking precedence.
// Neither input is mutated.
func Merge(base, overlay Blob) Blob {
	merged := make(Blob, len(base)+len(overlay))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range overlay {
		merged[key] = value
	}
	return merged
}

// ListEntry is one entry of a keyed list section such as departments.
type ListEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// HumanizeKey converts a machine key such as "customer-success" into a display
// label such as "Customer Success". Used when a list entry has no label.
func HumanizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// listEntries extracts a []ListEntry from a blob section, tolerating missing or
// malformed data by skipping anything that is not a keyed object.
func listEntries(blob Blob, section string) []ListEntry {
	raw, ok := blob[section].([]any)
	if !ok {
		return nil
	}

	entries := make([]ListEntry, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		key, _ := obj["key"].(string)
		if strings.TrimSpace(key) == "" {
			continue
		}

		label, _ := obj["label"].(string)
		if strings.TrimSpace(label) == "" {
			label = HumanizeKey(key)
		}

		entries = append(entries, ListEntry{Key: key, Label: label})
	}
	return entries
}
