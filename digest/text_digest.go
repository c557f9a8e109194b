package digest

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

type rangeF struct{ lo, hi float64 }

func (r rangeF) contains(v float64) bool { return v >= r.lo && v <= r.hi }

var entropyRange = map[string]rangeF{
	"english_prose":      {3.8, 4.5},
	"informal_text":       {4.2, 4.8},
	"code_with_comments": {4.4, 5.0},
	"pure_code":          {4.8, 5.3},
	"minified":           {5.4, 5.8},
	"base64":             {5.95, 6.02},
}

var icRange = map[string]rangeF{
	"english":          {0.064, 0.072},
	"english_informal": {0.058, 0.066},
	"code_english_vars": {0.048, 0.058},
	"code_terse":       {0.042, 0.050},
	"multilingual":     {0.042, 0.052},
	"random":           {0.036, 0.042},
}

const (
	proseAlphaMin   = 0.75
	proseSpecialMax = 0.05
	codeSpecialMin  = 0.08
	codeSpecialMax  = 0.18
	dataSpecialMin  = 0.15

	minifiedLineLen           = 500
	boilerplateUniqueThresh   = 0.70
	severeBoilerplateThresh   = 0.40
)

var garbagePatterns = compilePatterns([]string{
	`utm_source=`,
	`(?:__|ga|_gaq|gtag|fbq)\s*[(\[]`,
	`data:image/[^;]+;base64,`,
	`\.(?:woff2?|ttf|eot)\b`,
	`@keyframes\s+\w+`,
	`(?i:(?:cookie|gdpr|consent|privacy).{0,30}(?:accept|agree|policy))`,
	`(?i:(?:subscribe|newsletter|signup).{0,20}(?:email|inbox))`,
	`\\u[0-9a-fA-F]{4}`,
	`(?i:(?:prev|next|older|newer)\s*(?:post|page|article))`,
	`(?i:(?:share|tweet|pin)\s*(?:on|this|it))`,
	`(?i:all\s*rights?\s*reserved)`,
})

var qualitySignals = compilePatterns([]string{
	`(?i)\b(?:because|therefore|however|although|furthermore|consequently)\b`,
	`(?i)\b(?:study|research|data|evidence|analysis|found|shows)\b`,
	`(?i)\b(?:first|second|third|finally|additionally|moreover)\b`,
	`\b\d{4}\b`,
	`(?:Dr\.|Prof\.|Ph\.?D|University|Institute)\b`,
})

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)\b(def|function|class|const|let|var|import|return)\b`),
	regexp.MustCompile(`=>`),
	regexp.MustCompile(`(?m)\{\s*$`),
	regexp.MustCompile(`(?m);\s*$`),
}

var htmlTagPattern = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

var mdPatterns = []struct {
	re     *regexp.Regexp
	weight float64
}{
	{regexp.MustCompile(`(?m)^#{1,6}\s+\S`), 0.20},
	{regexp.MustCompile(`(?m)^\s*[-*+]\s+\S`), 0.12},
	{regexp.MustCompile(`\[.+\]\(.+\)`), 0.15},
	{regexp.MustCompile(`(?m)^` + "```"), 0.18},
	{regexp.MustCompile(`(?m)^\s*>\s+\S`), 0.10},
	{regexp.MustCompile(`\*\*[^*]+\*\*`), 0.12},
	{regexp.MustCompile(`__[^_]+__`), 0.08},
	{regexp.MustCompile(`\*[^*]+\*`), 0.06},
	{regexp.MustCompile(`(?m)^\|.+\|$`), 0.10},
}

var jsonShapePattern = regexp.MustCompile(`^\s*[\[{]`)
var jsonKeyPattern = regexp.MustCompile(`"\w+"\s*:`)
var base64Pattern40 = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)
var base64Pattern60 = regexp.MustCompile(`[A-Za-z0-9+/]{60,}={0,2}`)
var hexEscapePattern = regexp.MustCompile(`\\x[0-9a-f]{2}`)
var scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
var styleBlockPattern = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
var dataURIPattern = regexp.MustCompile(`data:[^;]+;base64,[A-Za-z0-9+/=]+`)
var preCodeTagPattern = regexp.MustCompile(`(?i)<pre[^>]*>|<code[^>]*>`)

func compilePatterns(pats []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(pats))
	for i, p := range pats {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// TextDigest is a fixed-width summary of free-form text (spec §4.5, second
// paragraph): entropy/index-of-coincidence buckets, character-class ratios,
// line statistics, a type classification, and a verdict/action pair.
type TextDigest struct {
	Chars int
	Lines int

	Entropy        float64
	EntropyVerdict string
	IC             float64
	ICVerdict      string

	AlphaPct   float64
	DigitPct   float64
	SpacePct   float64
	SpecialPct float64

	AvgLineLen    int
	MaxLineLen    int
	UniqueLinePct float64

	PrimaryType string
	Confidence  float64
	TypeScores  string

	InfoDensity    float64
	ProseQuality   float64
	GarbagePct     float64
	BoilerplatePct float64

	Verdict string
	Action  string
	Flags   string

	BestSample string
}

// SummaryLine renders a one-line log-friendly summary.
func (d TextDigest) SummaryLine() string {
	parts := []string{
		fmt.Sprintf("type=%s", d.PrimaryType),
		fmt.Sprintf("conf=%.2f", d.Confidence),
		fmt.Sprintf("verdict=%s", d.Verdict),
		fmt.Sprintf("action=%s", d.Action),
		fmt.Sprintf("info=%.2f", d.InfoDensity),
		fmt.Sprintf("garbage=%.2f", d.GarbagePct),
		fmt.Sprintf("boiler=%.2f", d.BoilerplatePct),
	}
	if d.Flags != "" {
		parts = append(parts, fmt.Sprintf("flags=%s", d.Flags))
	}
	return strings.Join(parts, " ")
}

// ToPrompt renders the digest as the block substituted for a large text
// tool result in the assembled prompt.
func (d TextDigest) ToPrompt() string {
	var b strings.Builder
	b.WriteString("<text_digest>\n")
	fmt.Fprintf(&b, "%d chars | %d lines | avg_line: %d | max_line: %d\n",
		d.Chars, d.Lines, d.AvgLineLen, d.MaxLineLen)
	fmt.Fprintf(&b, "entropy: %.2f -> %s | ic: %.4f -> %s\n",
		d.Entropy, d.EntropyVerdict, d.IC, d.ICVerdict)
	fmt.Fprintf(&b, "chars: a:%.0f%% d:%.0f%% s:%.0f%% sp:%.0f%%\n",
		d.AlphaPct*100, d.DigitPct*100, d.SpacePct*100, d.SpecialPct*100)
	fmt.Fprintf(&b, "unique_lines: %.0f%% | boilerplate: %.0f%% | garbage: %.0f%%\n",
		d.UniqueLinePct*100, d.BoilerplatePct*100, d.GarbagePct*100)
	fmt.Fprintf(&b, "type: %s (%.0f%%) | %s\n", d.PrimaryType, d.Confidence*100, d.TypeScores)
	fmt.Fprintf(&b, "quality: info_density=%.2f prose=%.2f\n", d.InfoDensity, d.ProseQuality)
	fmt.Fprintf(&b, "VERDICT: %s -> %s\n", d.Verdict, d.Action)
	if d.Flags != "" {
		fmt.Fprintf(&b, "flags: %s\n", d.Flags)
	}
	fmt.Fprintf(&b, "sample: %q\n", d.BestSample)
	b.WriteString("</text_digest>")
	return b.String()
}

// TextDigestor computes TextDigests. The zero value is ready to use.
type TextDigestor struct{}

// Digest summarizes text: a tool result body, a fetched document, or any
// other free-form content too large to pass through verbatim.
func (TextDigestor) Digest(text string) TextDigest {
	if text == "" {
		return emptyTextDigest()
	}

	runes := []rune(text)
	n := len(runes)

	freq := make(map[rune]int)
	var alpha, digit, space int
	var htmlC, codeC, mdC, dataC int

	for _, ch := range runes {
		freq[ch]++
		switch {
		case unicode.IsLetter(ch):
			alpha++
		case unicode.IsDigit(ch):
			digit++
		case unicode.IsSpace(ch):
			space++
		}
		if strings.ContainsRune(`<>/"'=`, ch) {
			htmlC++
		}
		if strings.ContainsRune(`{}();[]=>:`, ch) {
			codeC++
		}
		if strings.ContainsRune("#*_`[]()>!", ch) {
			mdC++
		}
		if strings.ContainsRune(`{}[]":,`, ch) {
			dataC++
		}
	}
	special := n - alpha - digit - space

	entropy := shannonEntropy(freq, n)
	entropyVerdict := classifyEntropy(entropy)

	alphaFreq := make(map[rune]int)
	for _, ch := range runes {
		if unicode.IsLetter(ch) {
			alphaFreq[unicode.ToLower(ch)]++
		}
	}
	ic := indexOfCoincidence(alphaFreq)
	icVerdict := classifyIC(ic)

	lines := strings.Split(text, "\n")
	lineCount := len(lines)
	var lineLenSum, maxLine int
	lineLens := make([]int, len(lines))
	for i, l := range lines {
		lineLens[i] = len([]rune(l))
		lineLenSum += lineLens[i]
		if lineLens[i] > maxLine {
			maxLine = lineLens[i]
		}
	}
	avgLine := lineLenSum / maxInt(1, lineCount)

	sampleLines := lines
	if len(sampleLines) > 10000 {
		sampleLines = sampleLines[:10000]
	}
	seen := map[string]bool{}
	var normalizedCount int
	for _, l := range sampleLines {
		trimmed := strings.ToLower(strings.TrimSpace(l))
		if len(trimmed) > 5 {
			normalizedCount++
			seen[trimmed] = true
		}
	}
	uniquePct := 1.0
	if normalizedCount > 0 {
		uniquePct = float64(len(seen)) / float64(normalizedCount)
	}

	sample := truncateRunes(text, 50000)
	alphaR := float64(alpha) / float64(n)
	specialR := float64(special) / float64(n)

	scores := scoreTypes(sample, entropy, ic, alphaR, specialR,
		float64(htmlC)/float64(n), float64(codeC)/float64(n),
		float64(mdC)/float64(n), float64(dataC)/float64(n),
		avgLine, maxLine)

	primary, confidence := topScore(scores)
	typeScores := formatTypeScores(scores)

	garbageSample := truncateRunes(text, 30000)
	garbagePct := detectGarbage(garbageSample)

	var boilerplatePct float64
	if uniquePct < boilerplateUniqueThresh {
		boilerplatePct = math.Max(0, 1-uniquePct)
	}

	proseQuality := proseQualityScore(entropy, ic, alphaR, specialR, avgLine)
	infoDensity := infoDensityScore(proseQuality, garbagePct, boilerplatePct, scores)

	verdict, action := classifyVerdict(infoDensity, garbagePct, boilerplatePct, primary)
	flags := detectTextFlags(garbageSample, ic, entropy, maxLine, uniquePct)
	bestSample := extractBestSample(text)

	return TextDigest{
		Chars:          n,
		Lines:          lineCount,
		Entropy:        round3(entropy),
		EntropyVerdict: entropyVerdict,
		IC:             round4(ic),
		ICVerdict:      icVerdict,
		AlphaPct:       round3(alphaR),
		DigitPct:       round3(float64(digit) / float64(n)),
		SpacePct:       round3(float64(space) / float64(n)),
		SpecialPct:     round3(specialR),
		AvgLineLen:     avgLine,
		MaxLineLen:     maxLine,
		UniqueLinePct:  round3(uniquePct),
		PrimaryType:    primary,
		Confidence:     round3(confidence),
		TypeScores:     typeScores,
		InfoDensity:    round3(infoDensity),
		ProseQuality:   round3(proseQuality),
		GarbagePct:     round3(garbagePct),
		BoilerplatePct: round3(boilerplatePct),
		Verdict:        verdict,
		Action:         action,
		Flags:          flags,
		BestSample:     bestSample,
	}
}

func shannonEntropy(freq map[rune]int, n int) float64 {
	if n == 0 {
		return 0
	}
	logN := math.Log2(float64(n))
	var h float64
	for _, c := range freq {
		p := float64(c) / float64(n)
		if p > 0 {
			h -= p * (math.Log2(float64(c)) - logN)
		}
	}
	return h
}

func indexOfCoincidence(freq map[rune]int) float64 {
	var n int
	for _, c := range freq {
		n += c
	}
	if n < 2 {
		return 0
	}
	var num int
	for _, c := range freq {
		num += c * (c - 1)
	}
	return float64(num) / float64(n*(n-1))
}

func classifyEntropy(h float64) string {
	switch {
	case h < 3.8:
		return "compressed"
	case h <= 4.5:
		return "prose"
	case h <= 5.0:
		return "mixed"
	case h <= 5.4:
		return "markup"
	case h <= 5.8:
		return "minified"
	case h <= 6.1:
		return "encoded"
	default:
		return "noise"
	}
}

func classifyIC(ic float64) string {
	switch {
	case ic >= 0.062:
		return "english"
	case ic >= 0.048:
		return "code"
	case ic >= 0.040:
		return "mixed"
	default:
		return "random"
	}
}

func scoreTypes(sample string, entropy, ic, alphaR, specialR, htmlR, codeR, mdR, dataR float64, avgLine, maxLine int) map[string]float64 {
	scores := map[string]float64{"prose": 0, "code": 0, "html": 0, "markdown": 0, "data": 0, "noise": 0}

	if entropyRange["english_prose"].contains(entropy) {
		scores["prose"] += 0.35
	} else if entropyRange["informal_text"].contains(entropy) {
		scores["prose"] += 0.20
	}

	if icRange["english"].contains(ic) {
		scores["prose"] += 0.30
	} else if icRange["english_informal"].contains(ic) {
		scores["prose"] += 0.15
	}

	if alphaR >= proseAlphaMin {
		scores["prose"] += 0.20
	}
	if specialR <= proseSpecialMax {
		scores["prose"] += 0.15
	}

	if entropy >= entropyRange["code_with_comments"].lo && entropy <= entropyRange["pure_code"].hi {
		scores["code"] += 0.25
	}
	if icRange["code_english_vars"].contains(ic) {
		scores["code"] += 0.20
	} else if icRange["code_terse"].contains(ic) {
		scores["code"] += 0.15
	}
	if specialR >= codeSpecialMin && specialR <= codeSpecialMax {
		scores["code"] += 0.20
	}
	for _, p := range codePatterns {
		if p.MatchString(sample) {
			scores["code"] += 0.08
		}
	}
	indentLines := 0
	sampleLines := strings.Split(sample, "\n")
	if len(sampleLines) > 200 {
		sampleLines = sampleLines[:200]
	}
	for _, l := range sampleLines {
		if strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t") {
			indentLines++
		}
	}
	if indentLines > 10 {
		scores["code"] += 0.15
	}

	if htmlR > 0.08 {
		scores["html"] += 0.30
	} else if htmlR > 0.04 {
		scores["html"] += 0.15
	}
	tagSample := truncateRunes(sample, 10000)
	tagCount := len(htmlTagPattern.FindAllString(tagSample, -1))
	switch {
	case tagCount > 20:
		scores["html"] += 0.35
	case tagCount > 5:
		scores["html"] += 0.20
	}
	head := truncateRunes(sample, 500)
	if strings.Contains(head, "<!DOCTYPE") || strings.Contains(strings.ToLower(head), "<html") {
		scores["html"] += 0.30
	}

	for _, mp := range mdPatterns {
		if mp.re.MatchString(tagSample) {
			scores["markdown"] += mp.weight
		}
	}
	if strings.Contains(sample, "```") {
		scores["markdown"] += 0.20
		scores["code"] = math.Max(0, scores["code"]-0.15)
	}

	if dataR > dataSpecialMin {
		scores["data"] += 0.25
	}
	if jsonShapePattern.MatchString(truncateRunes(sample, 100)) && jsonKeyPattern.MatchString(truncateRunes(sample, 1000)) {
		scores["data"] += 0.40
	}
	csvLines := 0
	var commaCounts = map[int]bool{}
	csvSampleLines := strings.Split(sample, "\n")
	if len(csvSampleLines) > 20 {
		csvSampleLines = csvSampleLines[:20]
	}
	for _, l := range csvSampleLines {
		if strings.Contains(l, ",") {
			csvLines++
			commaCounts[strings.Count(l, ",")] = true
		}
	}
	if csvLines > 5 && len(commaCounts) <= 2 {
		scores["data"] += 0.35
	}

	if entropy > entropyRange["minified"].hi {
		scores["noise"] += 0.30
	}
	if entropy > entropyRange["base64"].lo {
		scores["noise"] += 0.30
	}
	if ic < icRange["random"].hi {
		scores["noise"] += 0.25
	}
	if base64Pattern60.MatchString(sample) {
		scores["noise"] += 0.25
	}

	var total float64
	for _, v := range scores {
		total += v
	}
	if total > 0 {
		for k := range scores {
			scores[k] /= total
		}
	}
	return scores
}

func topScore(scores map[string]float64) (string, float64) {
	keys := []string{"code", "data", "html", "markdown", "noise", "prose"}
	best, bestScore := "prose", -1.0
	for _, k := range keys {
		if scores[k] > bestScore {
			best, bestScore = k, scores[k]
		}
	}
	return best, bestScore
}

func formatTypeScores(scores map[string]float64) string {
	type ts struct {
		typ   string
		score float64
	}
	keys := []string{"code", "data", "html", "markdown", "noise", "prose"}
	list := make([]ts, 0, len(keys))
	for _, k := range keys {
		list = append(list, ts{k, scores[k]})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })
	if len(list) > 3 {
		list = list[:3]
	}
	var parts []string
	for _, item := range list {
		if item.score > 0.05 {
			parts = append(parts, fmt.Sprintf("%s:%d", item.typ, int(item.score*100)))
		}
	}
	return strings.Join(parts, "|")
}

func detectGarbage(sample string) float64 {
	if sample == "" {
		return 0
	}
	var garbageChars float64
	for _, p := range garbagePatterns {
		for _, m := range p.FindAllString(sample, -1) {
			garbageChars += float64(len(m))
		}
	}
	for _, m := range dataURIPattern.FindAllString(sample, -1) {
		garbageChars += float64(len(m))
	}
	for _, m := range scriptBlockPattern.FindAllString(sample, -1) {
		garbageChars += float64(len(m)) * 0.7
	}
	for _, m := range styleBlockPattern.FindAllString(sample, -1) {
		garbageChars += float64(len(m)) * 0.5
	}
	return math.Min(1.0, garbageChars/float64(len(sample)))
}

func proseQualityScore(entropy, ic, alphaR, specialR float64, avgLine int) float64 {
	var score float64
	switch {
	case entropyRange["english_prose"].contains(entropy):
		score += 0.30
	case entropyRange["informal_text"].contains(entropy):
		score += 0.20
	case entropy > 5.0:
		score -= 0.10
	}

	icDist := math.Abs(ic - 0.067)
	switch {
	case icDist < 0.005:
		score += 0.30
	case icDist < 0.010:
		score += 0.20
	case icDist < 0.020:
		score += 0.10
	}

	switch {
	case alphaR >= 0.80:
		score += 0.20
	case alphaR >= 0.70:
		score += 0.10
	}

	switch {
	case specialR <= 0.03:
		score += 0.15
	case specialR <= 0.06:
		score += 0.08
	}

	if avgLine >= 40 && avgLine <= 100 {
		score += 0.10
	}

	return math.Min(1.0, math.Max(0.0, score))
}

func infoDensityScore(proseQ, garbage, boilerplate float64, scores map[string]float64) float64 {
	density := proseQ * 0.4
	useful := scores["prose"] + scores["code"]*0.8 + scores["markdown"]*0.9 + scores["data"]*0.6
	density += useful * 0.3
	density -= garbage * 0.4
	density -= boilerplate * 0.3
	if scores["prose"] > 0.5 || scores["markdown"] > 0.5 {
		density += 0.15
	}
	return math.Min(1.0, math.Max(0.0, density))
}

func classifyVerdict(infoDensity, garbage, boilerplate float64, primary string) (string, string) {
	if primary == "noise" || garbage > 0.5 {
		return "garbage", "skip"
	}
	if infoDensity >= 0.70 && garbage < 0.1 && boilerplate < 0.1 {
		return "pristine", "process"
	}
	if infoDensity >= 0.50 && garbage < 0.2 {
		return "clean", "process"
	}
	if infoDensity >= 0.30 || ((primary == "prose" || primary == "markdown" || primary == "code") && garbage < 0.3) {
		return "usable", "clean_first"
	}
	if infoDensity >= 0.15 || primary == "prose" || primary == "markdown" {
		return "dirty", "extract_only"
	}
	return "garbage", "skip"
}

func detectTextFlags(sample string, ic, entropy float64, maxLine int, uniquePct float64) string {
	var flags []string

	if base64Pattern40.MatchString(sample) {
		flags = append(flags, "base64")
	}
	if maxLine > minifiedLineLen {
		flags = append(flags, "minified")
	}
	switch {
	case uniquePct < severeBoilerplateThresh:
		flags = append(flags, "severe_boilerplate")
	case uniquePct < boilerplateUniqueThresh:
		flags = append(flags, "boilerplate")
	}
	if strings.ContainsRune(sample, '�') || hexEscapePattern.MatchString(sample) {
		flags = append(flags, "encoding_issues")
	}
	if icRange["multilingual"].contains(ic) && entropy < 5.0 {
		flags = append(flags, "multilingual")
	}
	if strings.Contains(sample, "```") || preCodeTagPattern.MatchString(sample) {
		flags = append(flags, "has_code_blocks")
	}
	if strings.Count(sample, "<script") > 3 {
		flags = append(flags, "script_heavy")
	}
	if strings.Count(sample, "|") > 20 || strings.Contains(sample, "<table") {
		flags = append(flags, "has_tables")
	}

	return strings.Join(flags, ",")
}

func extractBestSample(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 300 {
		lines = lines[:300]
	}

	var best string
	bestScore := -1.0
	var paragraph []string

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		candidate := strings.Join(paragraph, " ")
		if score := sampleScore(candidate); score > bestScore {
			bestScore = score
			best = candidate
		}
		paragraph = nil
	}

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			flush()
			continue
		}
		if startsWithAny(stripped, "<", "{", "[", "//", "#!", "/*") {
			continue
		}
		if len(stripped) < 20 {
			continue
		}
		paragraph = append(paragraph, stripped)
	}
	flush()

	if len([]rune(best)) > 150 {
		runes := []rune(best)[:147]
		truncated := string(runes)
		if idx := strings.LastIndex(truncated, " "); idx > 0 {
			truncated = truncated[:idx]
		}
		best = truncated + "..."
	}
	return best
}

func startsWithAny(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func sampleScore(text string) float64 {
	if len(text) < 30 {
		return -1.0
	}
	var alpha, special int
	n := 0
	for _, ch := range text {
		n++
		switch {
		case unicode.IsLetter(ch):
			alpha++
		case !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && !unicode.IsSpace(ch):
			special++
		}
	}
	alphaR := float64(alpha) / float64(n)
	specialR := float64(special) / float64(n)
	score := alphaR - specialR*2
	for _, p := range qualitySignals {
		if p.MatchString(text) {
			score += 0.1
		}
	}
	score += math.Min(0.2, float64(n)/500)
	return score
}

func emptyTextDigest() TextDigest {
	return TextDigest{
		EntropyVerdict: "empty",
		ICVerdict:      "empty",
		PrimaryType:    "empty",
		Verdict:        "garbage",
		Action:         "skip",
		Flags:          "empty",
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func round4(f float64) float64 { return float64(int(f*10000+0.5)) / 10000 }
