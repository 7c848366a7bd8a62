package mentoring

import "strings"

// Detection is the result of scanning message content for crisis language.
type Detection struct {
	IsEmergency  bool
	MatchedTerms []string
}

// Detector decides whether message content indicates a crisis. Kept as an
// interface so the keyword list can be replaced by a classifier without
// touching the escalation workflow.
type Detector interface {
	Scan(content string) Detection
}

// CrisisSupportNotice is the fixed safety text broadcast to session members
// when a crisis is detected.
const CrisisSupportNotice = "We noticed this conversation may involve a crisis. " +
	"You are not alone. If you are in immediate danger, call your local emergency number now. " +
	"You can also call or text 988 (Suicide & Crisis Lifeline) to talk to someone right away. " +
	"Your mentor has been alerted and this session has been prioritized."

// defaultCrisisTerms is the curated keyword list. Deliberately broad:
// over-triggering is the safer failure mode.
var defaultCrisisTerms = []string{
	// suicidal ideation
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"end it all",
	"want to die",
	"wish i was dead",
	"better off dead",
	"no reason to live",
	"take my own life",
	// self-harm
	"self harm",
	"self-harm",
	"hurt myself",
	"cut myself",
	"cutting myself",
	"overdose",
	// abuse / immediate danger
	"being abused",
	"abusing me",
	"hits me",
	"beats me",
	"not safe at home",
	"in danger",
	"going to hurt me",
}

// KeywordDetector is a case-insensitive substring matcher over a fixed term
// list. Intentionally simple and auditable, not probabilistic.
type KeywordDetector struct {
	terms []string
}

// NewKeywordDetector builds a detector over the given terms, or the default
// crisis list when none are supplied.
func NewKeywordDetector(terms ...string) *KeywordDetector {
	if len(terms) == 0 {
		terms = defaultCrisisTerms
	}
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}
	return &KeywordDetector{terms: lowered}
}

func (d *KeywordDetector) Scan(content string) Detection {
	lowered := strings.ToLower(content)

	var matched []string
	for _, term := range d.terms {
		if strings.Contains(lowered, term) {
			matched = append(matched, term)
		}
	}

	return Detection{
		IsEmergency:  len(matched) > 0,
		MatchedTerms: matched,
	}
}
