package variables_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/gobii-run/agentcore/internal/clock"
	"github.com/gobii-run/agentcore/variables"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()

	v1, created1, err := store.GetOrCreate(ctx, "agt_1", "greeting", "hello", "", "")
	require.NoError(t, err)
	require.True(t, created1)

	v2, created2, err := store.GetOrCreate(ctx, "agt_1", "greeting", "a different value", "", "")
	require.NoError(t, err)
	require.False(t, created2)
	require.Equal(t, v1.ID, v2.ID)
	require.Equal(t, "hello", v2.Value)
}

func TestGetOrCreateIsIdempotentUnderConcurrentCallers(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()

	const n = 50
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, _, err := store.GetOrCreate(ctx, "agt_race", "shared", "v", "", "")
			require.NoError(t, err)
			ids[i] = v.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestVariableCapEvictsOldestByCreatedAt(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := &clock.Fixed{At: base}
	store := variables.NewMemoryStore(fc)
	ctx := context.Background()

	for i := 0; i < variables.MaxPerAgent+10; i++ {
		fc.At = base.Add(time.Duration(i) * time.Second)
		_, _, err := store.GetOrCreate(ctx, "agt_cap", nameFor(i), "x", "", "")
		require.NoError(t, err)
	}

	all, err := store.List(ctx, "agt_cap")
	require.NoError(t, err)
	require.Len(t, all, variables.MaxPerAgent)

	_, err = store.Get(ctx, "agt_cap", nameFor(0))
	require.ErrorIs(t, err, variables.ErrNotFound)

	_, err = store.Get(ctx, "agt_cap", nameFor(variables.MaxPerAgent+9))
	require.NoError(t, err)
}

func nameFor(i int) string {
	return "v" + string(rune('a'+i%26)) + itoa(i)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestGenerateNameIsDeterministicAndBounded(t *testing.T) {
	t.Parallel()

	name1 := variables.GenerateName("send_email", "a1b2c3", "body", "")
	name2 := variables.GenerateName("send_email", "a1b2c3", "body", "")
	require.Equal(t, name1, name2)
	require.Equal(t, "send_email_a1b2c3_body", name1)
	require.LessOrEqual(t, len(name1), variables.MaxNameLen)
}

func TestGenerateNamePrefersPrefixOverToolName(t *testing.T) {
	t.Parallel()

	name := variables.GenerateName("send_email", "deadbeef", "", "custom_prefix")
	require.Equal(t, "custom_prefix_deadbeef_result", name)
}

func TestGenerateNameSanitizesUnsafeCharacters(t *testing.T) {
	t.Parallel()

	name := variables.GenerateName("My Tool!!", "1", "Weird Field", "")
	require.Regexp(t, `^[a-z0-9_]+$`, name)
}

func TestResolveParamsReplacesVariableReferences(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()
	_, _, err := store.GetOrCreate(ctx, "agt_1", "to_addr", "user@example.com", "", "")
	require.NoError(t, err)

	params := map[string]any{
		"to":      "$to_addr",
		"subject": "hello",
		"nested":  []any{"$to_addr", "literal"},
	}

	resolved, used, err := variables.ResolveParams(ctx, store, "agt_1", params)
	require.NoError(t, err)
	require.True(t, used["to_addr"])

	m := resolved.(map[string]any)
	require.Equal(t, "user@example.com", m["to"])
	require.Equal(t, "hello", m["subject"])

	nested := m["nested"].([]any)
	require.Equal(t, "user@example.com", nested[0])
	require.Equal(t, "literal", nested[1])
}

func TestResolveParamsFailsOnUnknownVariable(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()

	_, _, err := variables.ResolveParams(ctx, store, "agt_1", map[string]any{"to": "$missing"})
	require.Error(t, err)
	var resErr *variables.ResolutionError
	require.True(t, errors.As(err, &resErr))
	require.Equal(t, "missing", resErr.Name)
}

func TestResolveParamsDecodesJSONVariables(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()
	_, _, err := store.GetOrCreate(ctx, "agt_1", "payload", map[string]any{"k": "v"}, "", "")
	require.NoError(t, err)

	resolved, _, err := variables.ResolveParams(ctx, store, "agt_1", "$payload")
	require.NoError(t, err)
	m, ok := resolved.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "v", m["k"])
}

func TestExtractVariableizeConfigPopsConfigKey(t *testing.T) {
	t.Parallel()

	result := map[string]any{
		"body": "hi",
		"_variableize": map[string]any{
			"fields": []any{"body"},
			"prefix": "email",
		},
	}

	cleaned, cfg := variables.ExtractVariableizeConfig(result)
	require.NotContains(t, cleaned, "_variableize")
	require.NotNil(t, cfg)
	require.Equal(t, []string{"body"}, cfg.Fields)
	require.Equal(t, "email", cfg.Prefix)
}

func TestExtractVariableizeConfigReturnsNilWhenAbsent(t *testing.T) {
	t.Parallel()

	result := map[string]any{"body": "hi"}
	cleaned, cfg := variables.ExtractVariableizeConfig(result)
	require.Nil(t, cfg)
	require.Equal(t, result, cleaned)
}

func TestFromConfigCreatesOneVariablePerField(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()

	cfg := &variables.VariableizeConfig{Fields: []string{"body", "missing_field"}}
	result := map[string]any{"body": "hello world"}

	created, err := variables.FromConfig(ctx, store, "agt_1", "send_email", "abc123", "tc_1", result, cfg)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "send_email_abc123_body", created[0].Name)
}

func TestFromFullResultSkipsBelowMinBytes(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()

	v, err := variables.FromFullResult(ctx, store, "agt_1", "fetch_page", "abc", "tc_1", "short", 1024)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestFromFullResultCreatesVariableAboveMinBytes(t *testing.T) {
	t.Parallel()

	store := variables.NewMemoryStore(clock.Real)
	ctx := context.Background()

	big := make([]byte, 2000)
	for i := range big {
		big[i] = 'x'
	}

	v, err := variables.FromFullResult(ctx, store, "agt_1", "fetch_page", "abc", "tc_1", string(big), 1024)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, "fetch_page_abc_result", v.Name)
}

func TestDescribeRendersSizeAndSummary(t *testing.T) {
	t.Parallel()

	vars := []variables.Variable{
		{Name: "x", Summary: "custom summary", SizeBytes: 2048, IsJSON: true},
		{Name: "y", SizeBytes: 512, IsJSON: false},
	}
	out := variables.Describe(vars)
	require.Contains(t, out, "$x — custom summary (~2.0 KB)")
	require.Contains(t, out, "$y — Text (~0.5 KB)")
}

// TestGenerateNameNeverExceedsMaxLenProperty verifies the bounded-length
// testable property for variable names across arbitrary inputs.
func TestGenerateNameNeverExceedsMaxLenProperty(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("generated names never exceed MaxNameLen and match [A-Za-z0-9_]", prop.ForAll(
		func(toolName, stepHex, field, prefix string) bool {
			name := variables.GenerateName(toolName, stepHex, field, prefix)
			if len(name) > variables.MaxNameLen {
				return false
			}
			for _, r := range name {
				if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_') {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.AlphaString(),
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
