package service

import (
	"regexp"
	"strings"
)

// QueryIntent classifies what a query is after.
type QueryIntent string

const (
	IntentFinancial  QueryIntent = "financial"
	IntentAnalytical QueryIntent = "analytical"
	IntentProcedural QueryIntent = "procedural"
	IntentCompliance QueryIntent = "compliance"
	IntentGeneral    QueryIntent = "general"
)

// QueryComplexity is a coarse size/structure classification.
type QueryComplexity string

const (
	ComplexitySimple   QueryComplexity = "simple"
	ComplexityModerate QueryComplexity = "moderate"
	ComplexityComplex  QueryComplexity = "complex"
)

// SearchStrategy selects which search channels run for a query. The pipeline
// treats this as a hint, not a contract: either channel may come back empty.
type SearchStrategy string

const (
	StrategyHybrid   SearchStrategy = "hybrid"
	StrategySemantic SearchStrategy = "semantic"
	StrategyKeyword  SearchStrategy = "keyword"
)

// QueryEntities holds pattern-extracted entities from the query text.
type QueryEntities struct {
	Amounts     []string
	Percentages []string
	Dates       []string
}

// HasAmount reports whether a monetary amount was detected.
func (e QueryEntities) HasAmount() bool {
	return len(e.Amounts) > 0
}

// ProcessedQuery is the query processor's output.
type ProcessedQuery struct {
	Raw        string
	Intent     QueryIntent
	Complexity QueryComplexity
	Entities   QueryEntities
	Strategy   SearchStrategy
}

// intentRule matches a query against one intent category. Rules are evaluated
// in order; the first rule with any keyword hit wins.
type intentRule struct {
	intent   QueryIntent
	keywords []string
}

func defaultIntentRules() []intentRule {
	return []intentRule{
		{
			intent: IntentFinancial,
			keywords: []string{
				"salary", "pay", "payroll", "pf", "provident fund", "contribution",
				"reimbursement", "allowance", "budget", "cost", "expense", "tax",
				"deduction", "invoice", "bonus", "gratuity", "rate",
			},
		},
		{
			intent: IntentAnalytical,
			keywords: []string{
				"compare", "comparison", "trend", "average", "total", "breakdown",
				"analysis", "analyse", "analyze", "summary of", "distribution",
			},
		},
		{
			intent: IntentProcedural,
			keywords: []string{
				"how to", "how do", "steps", "process", "procedure", "apply",
				"submit", "request", "register", "enroll", "workflow",
			},
		},
		{
			intent: IntentCompliance,
			keywords: []string{
				"policy", "policies", "rule", "regulation", "compliance",
				"mandatory", "allowed", "permitted", "prohibited", "eligibility",
				"entitled", "legal",
			},
		},
	}
}

var (
	amountPattern  = regexp.MustCompile(`(?i)(?:rs\.?|inr|₹|\$|usd|eur)\s*\d[\d,]*(?:\.\d+)?|\d[\d,]*(?:\.\d+)?\s*(?:rupees|dollars|lakh|lakhs|crore|crores)`)
	percentPattern = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:%|percent|per cent)`)
	datePattern    = regexp.MustCompile(`(?i)\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{4}|\b(?:19|20)\d{2}\b`)

	conceptualLeads = []string{"why", "explain", "describe", "what is the difference", "tell me about"}
)

// QueryProcessor classifies intent and complexity, extracts entities, and
// picks a search strategy. Pure function of the query string; it never fails,
// falling back to general intent and hybrid search on ambiguity.
type QueryProcessor struct {
	rules []intentRule
}

// NewQueryProcessor creates a processor with the default rule set.
func NewQueryProcessor() *QueryProcessor {
	return &QueryProcessor{rules: defaultIntentRules()}
}

// NewQueryProcessorWithRules creates a processor with an explicit, ordered
// rule list. Useful for testing individual rules in isolation.
func NewQueryProcessorWithRules(rules []intentRule) *QueryProcessor {
	return &QueryProcessor{rules: rules}
}

// Process analyzes the raw query.
func (p *QueryProcessor) Process(query string) ProcessedQuery {
	normalized := strings.ToLower(strings.TrimSpace(query))

	processed := ProcessedQuery{
		Raw:        query,
		Intent:     p.classifyIntent(normalized),
		Complexity: classifyComplexity(normalized),
		Entities:   extractEntities(query),
	}
	processed.Strategy = selectStrategy(normalized, processed.Complexity)
	return processed
}

func (p *QueryProcessor) classifyIntent(normalized string) QueryIntent {
	for _, rule := range p.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

func classifyComplexity(normalized string) QueryComplexity {
	words := len(strings.Fields(normalized))
	switch {
	case words >= 12 || strings.Contains(normalized, " and ") && words >= 8:
		return ComplexityComplex
	case words <= 4:
		return ComplexitySimple
	default:
		return ComplexityModerate
	}
}

func extractEntities(query string) QueryEntities {
	return QueryEntities{
		Amounts:     amountPattern.FindAllString(query, -1),
		Percentages: percentPattern.FindAllString(query, -1),
		Dates:       datePattern.FindAllString(query, -1),
	}
}

// selectStrategy routes short exact-looking queries to the keyword channel,
// long conceptual ones to the semantic channel, and everything else to both.
func selectStrategy(normalized string, complexity QueryComplexity) SearchStrategy {
	if strings.Contains(normalized, `"`) {
		return StrategyKeyword
	}

	words := strings.Fields(normalized)
	if len(words) > 0 && len(words) <= 3 && !isQuestion(normalized) {
		return StrategyKeyword
	}

	for _, lead := range conceptualLeads {
		if strings.HasPrefix(normalized, lead) {
			return StrategySemantic
		}
	}
	if complexity == ComplexityComplex {
		return StrategySemantic
	}

	return StrategyHybrid
}

func isQuestion(normalized string) bool {
	if strings.HasSuffix(normalized, "?") {
		return true
	}
	for _, w := range []string{"what", "who", "when", "where", "why", "how", "which", "is", "are", "can", "does", "do"} {
		if strings.HasPrefix(normalized, w+" ") {
			return true
		}
	}
	return false
}
