package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHumanizeKey(t *testing.T) {
	cases := map[string]string{
		"customer-success": "Customer Success",
		"engineering":      "Engineering",
		"full_time":        "Full Time",
		"san francisco":    "San Francisco",
		"a-b_c":            "A B C",
		"":                 "",
		"  ":               "",
	}

	for input, want := range cases {
		require.Equal(t, want, HumanizeKey(input), "input %q", input)
	}
}

func TestMergeOverlayWins(t *testing.T) {
	base := Blob{"a": 1, "b": "base"}
	overlay := Blob{"b": "overlay", "c": true}

	merged := Merge(base, overlay)

	require.Equal(t, Blob{"a": 1, "b": "overlay", "c": true}, merged)

	// Inputs are untouched.
	require.Equal(t, "base", base["b"])
	require.NotContains(t, base, "c")
}

func TestListEntriesLabelFallback(t *testing.T) {
	blob := Blob{
		"departments": []any{
			map[string]any{"key": "engineering", "label": "Engineering"},
			map[string]any{"key": "customer-success"},
			map[string]any{"label": "no key, skipped"},
			"not an object",
		},
	}

	entries := listEntries(blob, "departments")
	require.Equal(t, []ListEntry{
		{Key: "engineering", Label: "Engineering"},
		{Key: "customer-success", Label: "Customer Success"},
	}, entries)

	require.Nil(t, listEntries(blob, "missing"))
	require.Nil(t, listEntries(Blob{"departments": "oops"}, "departments"))
}
