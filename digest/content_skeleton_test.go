package digest

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestExtractSERPSkeletonDedupsByBaseURL(t *testing.T) {
	t.Parallel()

	markdown := "[Example Site](https://example.com/page?utm_source=x) " +
		"[Example Site Again](https://example.com/page#section) " +
		"[Docs](https://docs.example.com/guide)"

	s := ExtractSERPSkeleton(markdown, "example query")
	require.Equal(t, "serp", s.Kind)
	require.Len(t, s.Items, 2)
	require.Equal(t, "example query", s.Title)
}

func TestExtractSERPSkeletonDropsGoogleInternalLinks(t *testing.T) {
	t.Parallel()

	markdown := "[Settings](https://www.google.com/preferences) " +
		"[Result](https://example.com/a)"

	s := ExtractSERPSkeleton(markdown, "")
	require.Len(t, s.Items, 1)
	require.Equal(t, "https://example.com/a", s.Items[0]["u"])
}

func TestExtractSERPSkeletonUsesURLTitleWhenLinkTextIsUseless(t *testing.T) {
	t.Parallel()

	markdown := "[Read more](https://example.com/deep-dive-article)"
	s := ExtractSERPSkeleton(markdown, "")
	require.Len(t, s.Items, 1)
	title, _ := s.Items[0]["t"].(string)
	require.Contains(t, title, "example.com")
}

func TestExtractSERPSkeletonCapsAtTwelveItems(t *testing.T) {
	t.Parallel()

	var markdown string
	for i := 0; i < 20; i++ {
		markdown += "[Result Title](https://site" + string(rune('a'+i)) + ".example.com/page) "
	}

	s := ExtractSERPSkeleton(markdown, "")
	require.Len(t, s.Items, serpMaxItems)
}

func TestExtractArticleSkeletonBuildsHeadingItems(t *testing.T) {
	t.Parallel()

	markdown := "# Introduction\nThis article explains the basics of the topic in detail.\n\n" +
		"## Details\nHere are more specifics about how the system behaves under load.\n"

	s := ExtractArticleSkeleton(markdown, "My Article")
	require.Equal(t, "article", s.Kind)
	require.Equal(t, "My Article", s.Title)
	require.Len(t, s.Items, 2)
	require.Equal(t, "Introduction", s.Items[0]["h"])
	require.Equal(t, 1, s.Items[0]["l"])
	require.Equal(t, "Details", s.Items[1]["h"])
	require.Equal(t, 2, s.Items[1]["l"])
}

func TestExtractArticleSkeletonFallsBackToRawWithoutHeadings(t *testing.T) {
	t.Parallel()

	s := ExtractArticleSkeleton("just plain text with no markdown headings at all.", "Plain")
	require.Equal(t, "raw", s.Kind)
	require.Empty(t, s.Items)
	require.NotEmpty(t, s.Excerpt)
}

func TestExtractSkeletonDetectsSERPFromContent(t *testing.T) {
	t.Parallel()

	s := ExtractSkeleton("Google Search Results\n[A](https://example.com/a)", "", "")
	require.Equal(t, "serp", s.Kind)
}

func TestExtractSkeletonDetectsArticleFromHeadings(t *testing.T) {
	t.Parallel()

	s := ExtractSkeleton("# Title\nBody content describing the subject matter at length.", "", "")
	require.Equal(t, "article", s.Kind)
}

func TestQueryHintDescribesSERPItemCount(t *testing.T) {
	t.Parallel()

	s := Skeleton{Kind: "serp", Items: []map[string]any{{"t": "a", "u": "b"}}}
	hint := QueryHint(s)
	require.Contains(t, hint, "SERP: 1 results")
}

func TestContextHintReturnsFalseBelowMinimumSignal(t *testing.T) {
	t.Parallel()

	_, ok := ContextHint(Skeleton{Kind: "serp", Items: []map[string]any{{"t": "only one", "u": "https://example.com"}}})
	require.False(t, ok)

	_, ok = ContextHint(Skeleton{Kind: "raw", Excerpt: "some text"})
	require.False(t, ok)
}

func TestContextHintRendersThreeLineSummary(t *testing.T) {
	t.Parallel()

	s := Skeleton{
		Kind: "serp",
		Items: []map[string]any{
			{"t": "First Result", "u": "https://a.example.com/1"},
			{"t": "Second Result", "u": "https://b.example.com/2"},
		},
	}

	hint, ok := ContextHint(s)
	require.True(t, ok)
	require.Contains(t, hint, "a.example.com")
	require.Contains(t, hint, "https://a.example.com/1")
}

// TestExtractSERPSkeletonNeverExceedsCapProperty verifies a bounded
// testable property: no matter how many links a page contains, the
// skeleton never exceeds the configured item cap, and every kept item's
// URL is unique by base URL.
func TestExtractSERPSkeletonNeverExceedsCapProperty(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("SERP skeleton respects the item cap and uniqueness invariant", prop.ForAll(
		func(n int) bool {
			var markdown string
			for i := 0; i < n; i++ {
				markdown += "[Result](https://site.example.com/page" + itoaTest(i) + ") "
			}

			s := ExtractSERPSkeleton(markdown, "")
			if len(s.Items) > serpMaxItems {
				return false
			}

			seen := map[string]bool{}
			for _, item := range s.Items {
				u, _ := item["u"].(string)
				if seen[u] {
					return false
				}
				seen[u] = true
			}
			return true
		},
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func itoaTest(n int) string {
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
