// Package digest computes compact structural summaries of large tool
// results (spec §4.5): JSON digests, text digests, and content skeletons.
// These bound the context a tool result contributes to the next prompt
// iteration — the compacted form, not the raw result, becomes the
// next-iteration context (spec §4.3 step 6).
package digest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Array-consistency verdict thresholds (spec §4.5).
const (
	consistencyExcellent = 0.95
	consistencyGood      = 0.80
	consistencyFair      = 0.60
	consistencyPoor      = 0.40
)

// Sparsity verdict thresholds (spec §4.5).
const (
	sparsityDense  = 0.05
	sparsityNormal = 0.15
	sparsitySparse = 0.30
)

// Depth buckets used when scoring overall structure quality.
const (
	depthModerate = 5
	depthDeep     = 10
)

var (
	keyPatternOpaque = regexp.MustCompile(`^[a-fA-F0-9]{8,}$|^[A-Za-z0-9+/=]{16,}$|^[a-zA-Z0-9]{12,}$`)
	keyPatternSingle = regexp.MustCompile(`^[a-zA-Z]$`)
	keyPatternNumSuf = regexp.MustCompile(`^.*[_-]?\d+$`)
	keyPatternSem    = regexp.MustCompile(`^[a-z][a-z0-9]*([A-Z][a-z0-9]*)*$|^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

	namingCamel  = regexp.MustCompile(`^[a-z]+([A-Z][a-z0-9]*)*$`)
	namingPascal = regexp.MustCompile(`^[A-Z][a-z0-9]*([A-Z][a-z0-9]*)*$`)
)

// TypeDistribution reports the fraction of leaf values in each JSON type.
type TypeDistribution struct {
	Strings  float64
	Numbers  float64
	Booleans float64
	Nulls    float64
	Objects  float64
	Arrays   float64
}

// Compact renders the distribution as a short space-joined list, omitting
// types present at under 1%.
func (d TypeDistribution) Compact() string {
	var parts []string
	add := func(label string, v float64) {
		if v > 0.01 {
			parts = append(parts, fmt.Sprintf("%s:%.0f%%", label, v*100))
		}
	}
	add("str", d.Strings)
	add("num", d.Numbers)
	add("bool", d.Booleans)
	add("null", d.Nulls)
	add("obj", d.Objects)
	add("arr", d.Arrays)
	return strings.Join(parts, " ")
}

// JSONDigest is a fixed-width structural summary of a JSON value (spec §4.5).
type JSONDigest struct {
	BytesRaw  int
	BytesData int
	Density   float64

	DepthMax   int
	DepthAvg   float64
	BreadthMax int

	RootType         string
	TypeDistribution string

	TotalValues  int
	TotalKeys    int
	TotalArrays  int
	TotalObjects int

	KeyStyle      string
	KeyConvention string
	TopKeys       string

	ArrayConsistency       float64
	ArrayConsistencyVerdict string
	DominantArrayType      string

	Sparsity        float64
	SparsityVerdict string

	HotspotPath string
	HotspotPct  float64

	SchemaHint string
	Verdict    string
	Action     string
	Flags      string

	SamplePath  string
	SampleValue string
}

// SummaryLine renders a one-line summary suitable for log lines.
func (d JSONDigest) SummaryLine() string {
	parts := []string{
		fmt.Sprintf("root=%s", d.RootType),
		fmt.Sprintf("verdict=%s", d.Verdict),
		fmt.Sprintf("action=%s", d.Action),
		fmt.Sprintf("consistency=%.2f", d.ArrayConsistency),
		fmt.Sprintf("sparsity=%.2f", d.Sparsity),
		fmt.Sprintf("keys=%s", d.KeyStyle),
	}
	if d.Flags != "" {
		parts = append(parts, fmt.Sprintf("flags=%s", d.Flags))
	}
	return strings.Join(parts, " ")
}

// ToPrompt renders the digest as the multi-line block fed into the
// assembled prompt in place of a bulky tool result (spec §4.3 step 6).
func (d JSONDigest) ToPrompt() string {
	var b strings.Builder
	b.WriteString("<json_digest>\n")
	fmt.Fprintf(&b, "size: %s raw, %s data (%.0f%% density)\n",
		humanBytes(d.BytesRaw), humanBytes(d.BytesData), d.Density*100)
	fmt.Fprintf(&b, "shape: %s | depth: %d (avg %.1f) | breadth: %d\n",
		d.RootType, d.DepthMax, d.DepthAvg, d.BreadthMax)
	fmt.Fprintf(&b, "counts: %d values, %d unique keys, %d arrays, %d objects\n",
		d.TotalValues, d.TotalKeys, d.TotalArrays, d.TotalObjects)
	fmt.Fprintf(&b, "types: %s\n", d.TypeDistribution)
	fmt.Fprintf(&b, "keys: %s (%s) | top: %s\n", d.KeyStyle, d.KeyConvention, d.TopKeys)
	fmt.Fprintf(&b, "arrays: %s consistency (%.0f%%) | contains: %s\n",
		d.ArrayConsistencyVerdict, d.ArrayConsistency*100, d.DominantArrayType)
	fmt.Fprintf(&b, "sparsity: %s (%.0f%% null/empty)\n", d.SparsityVerdict, d.Sparsity*100)
	fmt.Fprintf(&b, "hotspot: %s (%.0f%% of data)\n", d.HotspotPath, d.HotspotPct*100)
	fmt.Fprintf(&b, "schema: %s\n", d.SchemaHint)
	fmt.Fprintf(&b, "VERDICT: %s -> %s\n", d.Verdict, d.Action)
	if d.Flags != "" {
		fmt.Fprintf(&b, "flags: %s\n", d.Flags)
	}
	fmt.Fprintf(&b, "sample: %s = %s\n", d.SamplePath, d.SampleValue)
	b.WriteString("</json_digest>")
	return b.String()
}

func humanBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	}
}

const (
	maxKeysTrack      = 1000
	maxArraySample    = 100
	maxPathDepth      = 50
	maxSampleValueLen = 80
)

type arrayInfo struct {
	path         string
	length       int
	elementSigs  []string
	elementTypes map[string]int
}

type traversalStats struct {
	maxDepth   int
	depthSum   int
	leafCount  int
	maxBreadth int

	typeCounts       map[string]int
	keyCounts        map[string]int
	keyCountOrder    []string
	keyStyles        map[string]int
	namingConvention map[string]int

	arrays      []*arrayInfo
	arrayCount  int
	objectCount int

	nullCount        int
	emptyStringCount int
	emptyArrayCount  int
	emptyObjectCount int

	dataChars int

	bestSamplePath  string
	bestSampleValue string
	bestSampleScore int

	flags map[string]bool
}

func newTraversalStats() *traversalStats {
	return &traversalStats{
		typeCounts:       map[string]int{},
		keyCounts:        map[string]int{},
		keyStyles:        map[string]int{},
		namingConvention: map[string]int{},
		flags:            map[string]bool{},
		bestSampleScore:  -1,
	}
}

// JSONDigestor computes JSONDigests. The zero value is ready to use.
type JSONDigestor struct{}

// Digest summarizes an already-decoded JSON value. rawJSON, when non-empty,
// is used to compute BytesRaw without re-encoding data.
func (JSONDigestor) Digest(data any, rawJSON string) JSONDigest {
	var bytesRaw int
	if rawJSON != "" {
		bytesRaw = len(rawJSON)
	} else if enc, err := json.Marshal(data); err == nil {
		bytesRaw = len(enc)
	}

	if isEmptyJSONValue(data) {
		return emptyDigest(bytesRaw)
	}

	stats := newTraversalStats()
	traverseJSON(data, stats, "$", 0)
	return buildDigest(data, stats, bytesRaw)
}

// DigestString parses and digests a JSON string, returning a digest with
// verdict "chaotic" and action "skip" if the string does not parse.
func (d JSONDigestor) DigestString(jsonString string) JSONDigest {
	var data any
	if err := json.Unmarshal([]byte(jsonString), &data); err != nil {
		return errorDigest(err.Error(), len(jsonString))
	}
	return d.Digest(data, jsonString)
}

func isEmptyJSONValue(data any) bool {
	if data == nil {
		return true
	}
	switch v := data.(type) {
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func traverseJSON(node any, stats *traversalStats, path string, depth int) string {
	if depth > maxPathDepth {
		stats.flags["extremely_deep"] = true
		return "truncated"
	}
	if depth > stats.maxDepth {
		stats.maxDepth = depth
	}

	switch v := node.(type) {
	case nil:
		stats.typeCounts["null"]++
		stats.nullCount++
		stats.depthSum += depth
		stats.leafCount++
		maybeUpdateSample(stats, path, "null", depth)
		return "null"

	case bool:
		stats.typeCounts["boolean"]++
		stats.depthSum += depth
		stats.leafCount++
		s := "false"
		if v {
			s = "true"
		}
		maybeUpdateSample(stats, path, s, depth)
		return "bool"

	case json.Number:
		stats.typeCounts["number"]++
		stats.depthSum += depth
		stats.leafCount++
		s := v.String()
		stats.dataChars += len(s)
		maybeUpdateSample(stats, path, s, depth)
		return "number"

	case float64:
		stats.typeCounts["number"]++
		stats.depthSum += depth
		stats.leafCount++
		s := strconv.FormatFloat(v, 'g', -1, 64)
		stats.dataChars += len(s)
		maybeUpdateSample(stats, path, s, depth)
		return "number"

	case int, int64, int32, float32:
		stats.typeCounts["number"]++
		stats.depthSum += depth
		stats.leafCount++
		s := fmt.Sprint(v)
		stats.dataChars += len(s)
		maybeUpdateSample(stats, path, s, depth)
		return "number"

	case string:
		stats.typeCounts["string"]++
		stats.depthSum += depth
		stats.leafCount++
		stats.dataChars += len(v)
		if v == "" {
			stats.emptyStringCount++
		}
		maybeUpdateSample(stats, path, v, depth)
		return "string"

	case map[string]any:
		stats.typeCounts["object"]++
		stats.objectCount++
		if len(v) > stats.maxBreadth {
			stats.maxBreadth = len(v)
		}
		if len(v) == 0 {
			stats.emptyObjectCount++
			return "{}"
		}

		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			if len(stats.keyCounts) < maxKeysTrack {
				if _, ok := stats.keyCounts[key]; !ok {
					stats.keyCountOrder = append(stats.keyCountOrder, key)
				}
				stats.keyCounts[key]++
			}
			analyzeKey(key, stats)
		}

		childSigs := make([]string, 0, len(keys))
		for _, key := range keys {
			childPath := path + "." + key
			sig := traverseJSON(v[key], stats, childPath, depth+1)
			childSigs = append(childSigs, key+":"+sig)
		}
		sort.Strings(childSigs)
		if len(childSigs) > 10 {
			childSigs = childSigs[:10]
		}
		return "{" + strings.Join(childSigs, ",") + "}"

	case []any:
		stats.typeCounts["array"]++
		stats.arrayCount++
		if len(v) > stats.maxBreadth {
			stats.maxBreadth = len(v)
		}
		if len(v) == 0 {
			stats.emptyArrayCount++
			return "[]"
		}

		info := &arrayInfo{path: path, length: len(v), elementTypes: map[string]int{}}
		sampleIdx := sampleIndices(len(v), maxArraySample)

		for i, item := range v {
			childPath := fmt.Sprintf("%s[%d]", path, i)
			sig := traverseJSON(item, stats, childPath, depth+1)
			if sampleIdx[i] {
				info.elementSigs = append(info.elementSigs, sig)
				base := baseSig(sig)
				info.elementTypes[base]++
			}
		}
		stats.arrays = append(stats.arrays, info)

		if len(info.elementSigs) > 0 {
			dominant := mostCommonKey(info.elementTypes)
			return fmt.Sprintf("[%s*%d]", dominant, len(v))
		}
		return "[]"

	default:
		stats.typeCounts["unknown"]++
		return "unknown"
	}
}

func baseSig(sig string) string {
	if i := strings.IndexByte(sig, '{'); i >= 0 {
		sig = sig[:i]
	}
	if i := strings.IndexByte(sig, '['); i >= 0 {
		sig = sig[:i]
	}
	return sig
}

func analyzeKey(key string, stats *traversalStats) {
	switch {
	case keyPatternOpaque.MatchString(key):
		stats.keyStyles["opaque"]++
	case keyPatternSingle.MatchString(key):
		stats.keyStyles["single_char"]++
	case keyPatternNumSuf.MatchString(key):
		stats.keyStyles["numeric_suffix"]++
	case keyPatternSem.MatchString(key):
		stats.keyStyles["semantic"]++
	default:
		stats.keyStyles["other"]++
	}

	switch {
	case strings.Contains(key, "_") && key == strings.ToLower(key):
		stats.namingConvention["snake_case"]++
	case namingCamel.MatchString(key):
		stats.namingConvention["camelCase"]++
	case namingPascal.MatchString(key):
		stats.namingConvention["PascalCase"]++
	case key == strings.ToUpper(key) && len(key) > 1:
		stats.namingConvention["UPPER_CASE"]++
	default:
		stats.namingConvention["other"]++
	}
}

func maybeUpdateSample(stats *traversalStats, path, value string, depth int) {
	score := depth
	if value != "" && value != "null" && value != "true" && value != "false" {
		score += 2
	}
	if len(value) > 10 {
		score++
	}
	if score > stats.bestSampleScore {
		stats.bestSampleScore = score
		stats.bestSamplePath = path
		if len(value) > maxSampleValueLen {
			value = value[:maxSampleValueLen]
		}
		stats.bestSampleValue = value
	}
}

func sampleIndices(length, maxSample int) map[int]bool {
	out := map[int]bool{}
	if length <= maxSample {
		for i := 0; i < length; i++ {
			out[i] = true
		}
		return out
	}
	step := float64(length) / float64(maxSample)
	for i := 0; i < maxSample; i++ {
		out[int(float64(i)*step)] = true
	}
	return out
}

func mostCommonKey(m map[string]int) string {
	best, bestCount := "none", -1
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] > bestCount {
			best, bestCount = k, m[k]
		}
	}
	return best
}

func buildDigest(data any, stats *traversalStats, bytesRaw int) JSONDigest {
	rootType := classifyRoot(data)

	totalTypes := 0
	for _, v := range stats.typeCounts {
		totalTypes += v
	}
	denom := maxInt(1, totalTypes)
	typeDist := TypeDistribution{
		Strings:  float64(stats.typeCounts["string"]) / float64(denom),
		Numbers:  float64(stats.typeCounts["number"]) / float64(denom),
		Booleans: float64(stats.typeCounts["boolean"]) / float64(denom),
		Nulls:    float64(stats.typeCounts["null"]) / float64(denom),
		Objects:  float64(stats.typeCounts["object"]) / float64(denom),
		Arrays:   float64(stats.typeCounts["array"]) / float64(denom),
	}

	keyStyle := determineKeyStyle(stats)
	keyConvention := determineNamingConvention(stats)
	topKeys := topKeysSummary(stats)

	arrayConsistency, arrayVerdict, dominantArrayType := analyzeArrayConsistency(stats)

	totalValues := stats.leafCount
	emptyCount := stats.nullCount + stats.emptyStringCount
	sparsity := float64(emptyCount) / float64(maxInt(1, totalValues))
	sparsityVerdict := classifySparsity(sparsity)

	bytesData := stats.dataChars
	density := float64(bytesData) / float64(maxInt(1, bytesRaw))

	depthAvg := float64(stats.depthSum) / float64(maxInt(1, stats.leafCount))

	hotspotPath, hotspotPct := findHotspot(stats, totalValues)

	schemaHint := inferSchemaHint(data, rootType)

	verdict, action := determineVerdict(arrayConsistency, sparsity, keyStyle, stats)

	flags := compileFlags(stats, arrayConsistency)

	return JSONDigest{
		BytesRaw:                bytesRaw,
		BytesData:               bytesData,
		Density:                 round3(density),
		DepthMax:                stats.maxDepth,
		DepthAvg:                round2(depthAvg),
		BreadthMax:              stats.maxBreadth,
		RootType:                rootType,
		TypeDistribution:        typeDist.Compact(),
		TotalValues:             totalValues,
		TotalKeys:               len(stats.keyCounts),
		TotalArrays:             stats.arrayCount,
		TotalObjects:            stats.objectCount,
		KeyStyle:                keyStyle,
		KeyConvention:           keyConvention,
		TopKeys:                 topKeys,
		ArrayConsistency:        round3(arrayConsistency),
		ArrayConsistencyVerdict: arrayVerdict,
		DominantArrayType:       dominantArrayType,
		Sparsity:                round3(sparsity),
		SparsityVerdict:         sparsityVerdict,
		HotspotPath:             hotspotPath,
		HotspotPct:              round3(hotspotPct),
		SchemaHint:              schemaHint,
		Verdict:                 verdict,
		Action:                  action,
		Flags:                   flags,
		SamplePath:              orDefault(stats.bestSamplePath, "$"),
		SampleValue:             truncateSample(stats.bestSampleValue),
	}
}

func classifyRoot(data any) string {
	switch v := data.(type) {
	case map[string]any:
		return "object"
	case []any:
		if len(v) == 0 {
			return "empty_array"
		}
		n := minInt(len(v), 10)
		allObjects, allArrays, allScalar := true, true, true
		for i := 0; i < n; i++ {
			switch v[i].(type) {
			case map[string]any:
				allArrays, allScalar = false, false
			case []any:
				allObjects, allScalar = false, false
			case string, float64, json.Number, bool, nil, int, int64, int32, float32:
				allObjects, allArrays = false, false
			default:
				allObjects, allArrays, allScalar = false, false, false
			}
		}
		switch {
		case allObjects:
			return "array_of_objects"
		case allArrays:
			return "array_of_arrays"
		case allScalar:
			return "array_of_scalars"
		default:
			return "array_mixed"
		}
	default:
		return "scalar"
	}
}

func determineKeyStyle(stats *traversalStats) string {
	total := 0
	for _, v := range stats.keyStyles {
		total += v
	}
	if total == 0 {
		return "none"
	}
	semantic := stats.keyStyles["semantic"]
	opaque := stats.keyStyles["opaque"]
	if float64(semantic)/float64(maxInt(1, total)) > 0.7 {
		return "semantic"
	}
	if float64(opaque)/float64(maxInt(1, total)) > 0.3 {
		return "opaque"
	}
	return "mixed"
}

func determineNamingConvention(stats *traversalStats) string {
	if len(stats.namingConvention) == 0 {
		return "unknown"
	}
	bestKey, bestCount, total := "", -1, 0
	keys := make([]string, 0, len(stats.namingConvention))
	for k := range stats.namingConvention {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := stats.namingConvention[k]
		total += c
		if c > bestCount {
			bestKey, bestCount = k, c
		}
	}
	if float64(bestCount)/float64(total) > 0.6 {
		return bestKey
	}
	return "mixed"
}

func topKeysSummary(stats *traversalStats) string {
	if len(stats.keyCounts) == 0 {
		return "none"
	}
	type kc struct {
		key   string
		count int
		order int
	}
	order := map[string]int{}
	for i, k := range stats.keyCountOrder {
		order[k] = i
	}
	list := make([]kc, 0, len(stats.keyCounts))
	for k, c := range stats.keyCounts {
		list = append(list, kc{k, c, order[k]})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].order < list[j].order
	})
	if len(list) > 5 {
		list = list[:5]
	}
	names := make([]string, len(list))
	for i, item := range list {
		names[i] = item.key
	}
	return strings.Join(names, ", ")
}

func analyzeArrayConsistency(stats *traversalStats) (float64, string, string) {
	if len(stats.arrays) == 0 {
		return 1.0, "n/a", "none"
	}
	var nonEmpty []*arrayInfo
	for _, a := range stats.arrays {
		if len(a.elementSigs) > 0 {
			nonEmpty = append(nonEmpty, a)
		}
	}
	if len(nonEmpty) == 0 {
		return 1.0, "n/a", "none"
	}

	var consistencies []float64
	allTypes := map[string]int{}

	for _, arr := range nonEmpty {
		sigCounts := map[string]int{}
		for _, sig := range arr.elementSigs {
			sigCounts[sig]++
		}
		for t, c := range arr.elementTypes {
			allTypes[t] += c
		}
		mostCommonCount := 0
		for _, c := range sigCounts {
			if c > mostCommonCount {
				mostCommonCount = c
			}
		}
		consistencies = append(consistencies, float64(mostCommonCount)/float64(len(arr.elementSigs)))
	}

	var sum float64
	for _, c := range consistencies {
		sum += c
	}
	avg := sum / float64(len(consistencies))

	var verdict string
	switch {
	case avg >= consistencyExcellent:
		verdict = "excellent"
	case avg >= consistencyGood:
		verdict = "good"
	case avg >= consistencyFair:
		verdict = "fair"
	case avg >= consistencyPoor:
		verdict = "poor"
	default:
		verdict = "chaotic"
	}

	dominant := mostCommonKey(allTypes)
	return avg, verdict, dominant
}

func classifySparsity(sparsity float64) string {
	switch {
	case sparsity <= sparsityDense:
		return "dense"
	case sparsity <= sparsityNormal:
		return "normal"
	case sparsity <= sparsitySparse:
		return "sparse"
	default:
		return "very_sparse"
	}
}

func findHotspot(stats *traversalStats, totalValues int) (string, float64) {
	if len(stats.arrays) == 0 {
		return "$", 1.0
	}
	largest := stats.arrays[0]
	for _, a := range stats.arrays[1:] {
		if a.length > largest.length {
			largest = a
		}
	}
	return largest.path, float64(largest.length) / float64(maxInt(1, totalValues))
}

func inferSchemaHint(data any, rootType string) string {
	switch rootType {
	case "array_of_objects":
		if arr, ok := data.([]any); ok && len(arr) > 0 {
			if obj, ok := arr[0].(map[string]any); ok {
				keys := make([]string, 0, len(obj))
				for k := range obj {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				if len(keys) > 5 {
					keys = keys[:5]
				}
				return "{" + strings.Join(keys, ", ") + ", ...}[]"
			}
		}
	case "object":
		if obj, ok := data.(map[string]any); ok {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 5 {
				keys = keys[:5]
			}
			return "{" + strings.Join(keys, ", ") + ", ...}"
		}
	case "array_of_scalars":
		return "scalar[]"
	case "array_of_arrays":
		return "[][]"
	}
	return rootType
}

func determineVerdict(arrayConsistency, sparsity float64, keyStyle string, stats *traversalStats) (string, string) {
	if arrayConsistency < consistencyPoor {
		return "chaotic", "inspect_manually"
	}
	if arrayConsistency < consistencyFair {
		return "messy", "normalize_first"
	}

	score := arrayConsistency * 0.4
	score += (1 - minFloat(1.0, sparsity)) * 0.2

	switch keyStyle {
	case "semantic":
		score += 0.2
	case "mixed":
		score += 0.1
	case "opaque":
		score += 0.05
	}

	switch {
	case stats.maxDepth <= depthModerate:
		score += 0.1
	case stats.maxDepth <= depthDeep:
		score += 0.05
	}

	if len(stats.flags) == 0 {
		score += 0.1
	}

	switch {
	case score >= 0.75:
		return "structured", "parse_directly"
	case score >= 0.55:
		return "usable", "parse_with_care"
	case score >= 0.35:
		return "messy", "normalize_first"
	default:
		return "chaotic", "inspect_manually"
	}
}

func compileFlags(stats *traversalStats, arrayConsistency float64) string {
	var flags []string
	for f := range stats.flags {
		flags = append(flags, f)
	}
	sort.Strings(flags)
	if stats.maxDepth > depthDeep {
		flags = append(flags, "deep_nesting")
	}
	if arrayConsistency < consistencyPoor {
		flags = append(flags, "inconsistent_arrays")
	}
	if stats.emptyArrayCount+stats.emptyObjectCount > 10 {
		flags = append(flags, "many_empties")
	}
	if stats.objectCount > 0 && float64(len(stats.keyCounts))/float64(stats.objectCount) > 20 {
		flags = append(flags, "high_key_variety")
	}
	return strings.Join(flags, ",")
}

func truncateSample(value string) string {
	if value == "" {
		return "\"\""
	}
	if len(value) <= maxSampleValueLen {
		if strings.HasPrefix(value, "\"") {
			return value
		}
		return "\"" + value + "\""
	}
	return "\"" + value[:maxSampleValueLen-3] + "...\""
}

func emptyDigest(bytesRaw int) JSONDigest {
	return JSONDigest{
		BytesRaw:                bytesRaw,
		RootType:                "empty",
		KeyStyle:                "none",
		KeyConvention:           "none",
		TopKeys:                 "none",
		ArrayConsistency:        1.0,
		ArrayConsistencyVerdict: "n/a",
		DominantArrayType:       "none",
		SparsityVerdict:         "n/a",
		HotspotPath:             "$",
		SchemaHint:              "empty",
		Verdict:                 "minimal",
		Action:                  "skip",
		Flags:                   "empty",
		SamplePath:              "$",
		SampleValue:             "null",
	}
}

func errorDigest(errMsg string, bytesRaw int) JSONDigest {
	msg := errMsg
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return JSONDigest{
		BytesRaw:                bytesRaw,
		RootType:                "invalid",
		KeyStyle:                "none",
		KeyConvention:           "none",
		TopKeys:                 "none",
		ArrayConsistencyVerdict: "n/a",
		DominantArrayType:       "none",
		SparsityVerdict:         "n/a",
		HotspotPath:             "$",
		SchemaHint:              "invalid",
		Verdict:                 "chaotic",
		Action:                  "skip",
		Flags:                   "parse_error",
		SamplePath:              "$",
		SampleValue:             "error: " + msg,
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func round2(f float64) float64 { return float64(int(f*100+0.5)) / 100 }
func round3(f float64) float64 { return float64(int(f*1000+0.5)) / 1000 }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
