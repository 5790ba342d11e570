package ingestion

import (
	"strings"

	"github.com/54b3r/tealab-go/internal/domain"
)

// titleWeight is how much more a keyword hit in the title counts than one in
// the body.
const titleWeight = 3

// keyword maps surface forms found in text to a canonical tag value.
type keyword struct {
	tag   string
	forms []string
}

var teaTypeKeywords = []keyword{
	{tag: string(domain.TeaGreen), forms: []string{"green tea", "matcha", "sencha", "gyokuro", "genmaicha", "hojicha"}},
	{tag: string(domain.TeaBlack), forms: []string{"black tea", "assam", "darjeeling", "ceylon", "earl grey", "keemun"}},
	{tag: string(domain.TeaOolong), forms: []string{"oolong", "tieguanyin", "da hong pao"}},
	{tag: string(domain.TeaWhite), forms: []string{"white tea", "silver needle", "bai mudan"}},
	{tag: string(domain.TeaPuErh), forms: []string{"pu-erh", "pu'er", "puerh", "pu erh"}},
	{tag: string(domain.TeaHerbal), forms: []string{"herbal", "tisane", "chamomile", "rooibos", "peppermint", "hibiscus"}},
	{tag: string(domain.TeaYellow), forms: []string{"yellow tea", "junshan yinzhen"}},
}

var effectKeywords = []keyword{
	{tag: "calm_focus", forms: []string{"calm focus", "calm alertness", "focus", "concentration"}},
	{tag: "energy", forms: []string{"energy", "energizing", "alertness", "stimulant"}},
	{tag: "relaxation", forms: []string{"relaxation", "relaxing", "stress", "anxiety"}},
	{tag: "sleep", forms: []string{"sleep", "insomnia", "melatonin"}},
	{tag: "digestion", forms: []string{"digestion", "digestive", "gut"}},
	{tag: "mood", forms: []string{"mood", "dopamine", "serotonin"}},
	{tag: "immunity", forms: []string{"immune", "immunity", "antiviral"}},
	{tag: "metabolism", forms: []string{"metabolism", "fat oxidation", "thermogenesis"}},
}

var compoundKeywords = []keyword{
	{tag: domain.CompoundLTheanine, forms: []string{"l-theanine", "theanine"}},
	{tag: domain.CompoundCaffeine, forms: []string{"caffeine"}},
	{tag: "egcg", forms: []string{"egcg", "epigallocatechin gallate"}},
	{tag: "catechin", forms: []string{"catechin"}},
	{tag: "theaflavin", forms: []string{"theaflavin"}},
	{tag: "theobromine", forms: []string{"theobromine"}},
	{tag: "apigenin", forms: []string{"apigenin"}},
	{tag: "quercetin", forms: []string{"quercetin"}},
}

// InferMetadata tags a document with the tea type, effect and compound it
// mentions most, counting title hits titleWeight times. Tags with no hits
// are left empty.
func InferMetadata(title, content string) domain.KnowledgeMetadata {
	title = strings.ToLower(title)
	content = strings.ToLower(content)
	return domain.KnowledgeMetadata{
		TeaType:  bestTag(teaTypeKeywords, title, content),
		Effect:   bestTag(effectKeywords, title, content),
		Compound: bestTag(compoundKeywords, title, content),
	}
}

// Merge fills the empty fields of explicit from inferred. Explicit values
// always win.
func Merge(explicit, inferred domain.KnowledgeMetadata) domain.KnowledgeMetadata {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&explicit.Source, inferred.Source)
	fill(&explicit.Title, inferred.Title)
	fill(&explicit.Category, inferred.Category)
	fill(&explicit.URL, inferred.URL)
	fill(&explicit.TeaType, inferred.TeaType)
	fill(&explicit.Effect, inferred.Effect)
	fill(&explicit.Compound, inferred.Compound)
	return explicit
}

// bestTag returns the tag with the highest weighted hit count. Ties go to
// the tag listed first.
func bestTag(table []keyword, title, content string) string {
	best, bestScore := "", 0
	for _, k := range table {
		score := 0
		for _, f := range k.forms {
			score += titleWeight*strings.Count(title, f) + strings.Count(content, f)
		}
		if score > bestScore {
			best, bestScore = k.tag, score
		}
	}
	return best
}
