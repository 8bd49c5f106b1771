package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/pkg/logger"
)

// Batch-level preconditions. Per-criterion failures never surface here;
// they come back inline as outcomes.
var (
	ErrContractorNotReady = errors.New("contractor has no retrieval store")
	ErrNoCriteria         = errors.New("no evaluation criteria given")
)

// evalSuffix pins the response language and format. The model must answer
// from the indexed documents, not point the user at them.
const evalSuffix = " DO NOT ASK THE USER TO READ THE MANUAL, pinpoint the relevant sections in the response itself." +
	" ALWAYS ANSWER IN VIETNAMESE. Format your response exactly like this:\n" +
	"SCORE: <number from 0 to 10>\n" +
	"EXPLANATION: <brief explanation>"

var (
	scoreRe       = regexp.MustCompile(`(?i)SCORE:?\s*(\d+)`)
	explanationRe = regexp.MustCompile(`(?i)EXPLANATION:?`)
)

// Outcome is the result of evaluating one criterion: scored, or failed with
// a cause. Score is nil exactly when Error is meaningful or parsing missed.
type Outcome struct {
	CriteriaPrompt string `json:"criteria_prompt"`
	Score          *int   `json:"score"`
	Comment        string `json:"comment"`
	Evidence       string `json:"evidence,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Scored reports whether the outcome carries a concrete score.
func (o *Outcome) Scored() bool {
	return o.Score != nil
}

// storeQuerier is the single engine call the runner needs.
type storeQuerier interface {
	Query(ctx context.Context, storeName, prompt string) (*QueryResult, error)
}

// EvalService runs criteria against a contractor's retrieval store.
type EvalService struct {
	querier      storeQuerier
	store        *Store
	queryTimeout time.Duration
}

func NewEvalService(querier storeQuerier, store *Store, queryTimeout time.Duration) *EvalService {
	if queryTimeout <= 0 {
		queryTimeout = 2 * time.Minute
	}
	return &EvalService{querier: querier, store: store, queryTimeout: queryTimeout}
}

// ParseCriteria splits free text into criteria: one per line, trimmed,
// blanks discarded, order preserved.
func ParseCriteria(text string) []string {
	var criteria []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			criteria = append(criteria, line)
		}
	}
	return criteria
}

// Evaluate runs every criterion in input order and returns exactly one
// outcome per criterion. A failing query or an unparseable reply is
// recorded in its outcome and the batch continues. Scored outcomes are
// persisted as evaluation results; failed ones are returned only.
func (s *EvalService) Evaluate(ctx context.Context, contractor *model.Contractor, criteria []string) ([]Outcome, error) {
	if !contractor.Ready() {
		return nil, ErrContractorNotReady
	}
	if len(criteria) == 0 {
		return nil, ErrNoCriteria
	}

	outcomes := make([]Outcome, 0, len(criteria))
	for _, prompt := range criteria {
		outcomes = append(outcomes, s.evaluateOne(ctx, contractor.StoreName, prompt))
	}

	var scored []model.EvaluationResult
	for _, o := range outcomes {
		if o.Scored() {
			scored = append(scored, model.EvaluationResult{
				ContractorID:   contractor.ID,
				CriteriaPrompt: o.CriteriaPrompt,
				Score:          *o.Score,
				Comment:        o.Comment,
				Evidence:       o.Evidence,
			})
		}
	}
	if err := s.store.CreateEvaluationResults(scored); err != nil {
		return outcomes, err
	}

	logger.Info(ctx, "evaluation finished",
		"contractor_id", contractor.ID,
		"criteria", len(criteria),
		"scored", len(scored),
	)
	return outcomes, nil
}

func (s *EvalService) evaluateOne(ctx context.Context, storeName, prompt string) Outcome {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.querier.Query(queryCtx, storeName, prompt+evalSuffix)
	if err != nil {
		logger.Warn(ctx, "criterion query failed", "prompt", prompt, "error", err)
		return Outcome{
			CriteriaPrompt: prompt,
			Comment:        err.Error(),
			Error:          err.Error(),
		}
	}

	outcome := parseOutcome(prompt, result.Text)
	outcome.Evidence = formatEvidence(result.GroundingChunks)
	return outcome
}

// parseOutcome extracts the SCORE marker from model output. The marker is
// order-independent and case-insensitive; when missing, the raw text is
// preserved as the comment and the score stays nil.
func parseOutcome(prompt, text string) Outcome {
	outcome := Outcome{CriteriaPrompt: prompt}

	match := scoreRe.FindStringSubmatch(text)
	if match == nil {
		outcome.Comment = strings.TrimSpace(text)
		return outcome
	}

	score, err := strconv.Atoi(match[1])
	if err != nil {
		outcome.Comment = strings.TrimSpace(text)
		return outcome
	}
	outcome.Score = &score

	comment := scoreRe.ReplaceAllString(text, "")
	comment = explanationRe.ReplaceAllString(comment, "")
	outcome.Comment = strings.TrimSpace(comment)
	return outcome
}

// formatEvidence flattens grounding chunks into readable citation lines.
func formatEvidence(chunks []GroundingChunk) string {
	var lines []string
	for _, chunk := range chunks {
		rc := chunk.RetrievedContext
		switch {
		case rc.Title != "" && rc.Text != "":
			lines = append(lines, rc.Title+": "+rc.Text)
		case rc.Text != "":
			lines = append(lines, rc.Text)
		case rc.Title != "":
			lines = append(lines, rc.Title)
		}
	}
	return strings.Join(lines, "\n")
}
