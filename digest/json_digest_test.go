package digest

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestEmptyJSONDigestIsMinimal(t *testing.T) {
	t.Parallel()

	d := JSONDigestor{}.Digest(map[string]any{}, "")
	require.Equal(t, "empty", d.RootType)
	require.Equal(t, "skip", d.Action)
}

func TestJSONDigestArrayOfObjectsClassifiesConsistency(t *testing.T) {
	t.Parallel()

	data := []any{
		map[string]any{"id": json.Number("1"), "name": "a"},
		map[string]any{"id": json.Number("2"), "name": "b"},
		map[string]any{"id": json.Number("3"), "name": "c"},
	}

	d := JSONDigestor{}.Digest(data, "")
	require.Equal(t, "array_of_objects", d.RootType)
	require.Equal(t, "excellent", d.ArrayConsistencyVerdict)
	require.InDelta(t, 1.0, d.ArrayConsistency, 0.001)
	require.Contains(t, d.SchemaHint, "id")
}

func TestJSONDigestInconsistentArrayIsChaotic(t *testing.T) {
	t.Parallel()

	data := []any{
		map[string]any{"id": json.Number("1")},
		"just a string",
		json.Number("42"),
		nil,
		true,
	}

	d := JSONDigestor{}.Digest(data, "")
	require.Equal(t, "chaotic", d.ArrayConsistencyVerdict)
	require.Equal(t, "chaotic", d.Verdict)
	require.Equal(t, "inspect_manually", d.Action)
}

func TestJSONDigestSparsityBuckets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		data    any
		verdict string
	}{
		{
			name: "dense",
			data: map[string]any{"a": "x", "b": "y", "c": "z"},
			verdict: "dense",
		},
		{
			name: "very_sparse",
			data: map[string]any{"a": nil, "b": nil, "c": nil, "d": "x"},
			verdict: "very_sparse",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := JSONDigestor{}.Digest(tc.data, "")
			require.Equal(t, tc.verdict, d.SparsityVerdict)
		})
	}
}

func TestJSONDigestKeyStyleClassification(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"user_name":  "alice",
		"created_at": "2026-01-01",
		"is_active":  true,
	}

	d := JSONDigestor{}.Digest(data, "")
	require.Equal(t, "semantic", d.KeyStyle)
	require.Equal(t, "snake_case", d.KeyConvention)
}

func TestJSONDigestStringFallsBackToErrorDigestOnBadInput(t *testing.T) {
	t.Parallel()

	d := JSONDigestor{}.DigestString(`{not valid json`)
	require.Equal(t, "invalid", d.RootType)
	require.Equal(t, "skip", d.Action)
	require.Contains(t, d.Flags, "parse_error")
}

func TestJSONDigestHotspotFindsLargestArray(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"small": []any{"a"},
		"big":   []any{"a", "b", "c", "d", "e", "f"},
	}

	d := JSONDigestor{}.Digest(data, "")
	require.Equal(t, "$.big", d.HotspotPath)
}

// TestJSONDigestConsistencyIsDeterministic verifies that digesting the same
// value twice yields an identical summary, regardless of Go's randomized
// map iteration order.
func TestJSONDigestConsistencyIsDeterministic(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("digesting a value twice yields the same verdict and action", prop.ForAll(
		func(keys []string, values []string) bool {
			obj := map[string]any{}
			for i, k := range keys {
				if k == "" {
					continue
				}
				obj[k] = values[i%len(values)]
			}
			if len(obj) == 0 {
				return true
			}

			d1 := JSONDigestor{}.Digest(obj, "")
			d2 := JSONDigestor{}.Digest(obj, "")

			return d1.Verdict == d2.Verdict &&
				d1.Action == d2.Action &&
				d1.KeyStyle == d2.KeyStyle &&
				d1.TopKeys == d2.TopKeys
		},
		gen.SliceOfN(5, gen.AlphaString()),
		gen.SliceOfN(5, gen.AlphaString()),
	))

	properties.TestingRun(t)
}
