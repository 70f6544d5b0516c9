package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "hearth-backend/errors"
	"hearth-backend/ledger"
	"hearth-backend/metrics"
	"hearth-backend/models"
	"hearth-backend/repository"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	ProviderHeuristic = "mock"
	ProviderGemini    = "gemini"
)

type SplitSuggestionRequest struct {
	HouseholdID string   `json:"household_id"`
	Description string   `json:"description"`
	AmountCents int64    `json:"amount_cents"`
	MemberIDs   []string `json:"member_ids"`
}

// SplitSuggester proposes how an expense could be split. Suggestions are
// advisory; the client still submits the final split.
type SplitSuggester interface {
	SuggestSplit(ctx context.Context, req SplitSuggestionRequest) (*models.SplitSuggestion, error)
}

type SplitSuggestionService interface {
	Suggest(ctx context.Context, userID string, req SplitSuggestionRequest) (*models.SplitSuggestion, error)
}

type splitSuggestionService struct {
	enabled       bool
	suggester     SplitSuggester
	householdRepo repository.HouseholdRepository
}

func NewSplitSuggestionService(enabled bool, suggester SplitSuggester, householdRepo repository.HouseholdRepository) SplitSuggestionService {
	if suggester == nil {
		suggester = HeuristicSuggester{}
	}
	return &splitSuggestionService{
		enabled:       enabled,
		suggester:     suggester,
		householdRepo: householdRepo,
	}
}

func (s *splitSuggestionService) Suggest(ctx context.Context, userID string, req SplitSuggestionRequest) (*models.SplitSuggestion, error) {
	if !s.enabled {
		return nil, apperrors.FeatureDisabled("Split suggestions")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, apperrors.MissingRequiredField("Description")
	}
	if req.AmountCents <= 0 {
		return nil, apperrors.InvalidAmount("Amount must be greater than zero.")
	}

	if req.HouseholdID != "" {
		if err := RequireHouseholdMembership(ctx, s.householdRepo, req.HouseholdID, userID); err != nil {
			return nil, err
		}
		ids, err := HouseholdMemberIDs(ctx, s.householdRepo, req.HouseholdID)
		if err != nil {
			return nil, err
		}
		if len(req.MemberIDs) == 0 {
			req.MemberIDs = ids
		} else if outsider := firstOutsider(req.MemberIDs, ids); outsider != "" {
			return nil, apperrors.InvalidRequestWithDetails(
				"Every suggested member must belong to this household.",
				fmt.Sprintf("%s is not a member", outsider))
		}
	}
	if len(req.MemberIDs) == 0 {
		return nil, apperrors.MissingRequiredField("member_ids")
	}

	suggestion, err := s.suggester.SuggestSplit(ctx, req)
	if err == nil {
		err = ledger.ValidateSplits(req.AmountCents, suggestion.SplitType, suggestion.Members)
	}
	if err != nil {
		zap.L().Warn("Split suggestion unusable, falling back to heuristic", zap.Error(err))
		metrics.SplitSuggestions.WithLabelValues(ProviderHeuristic, "fallback").Inc()
		return HeuristicSuggester{}.SuggestSplit(ctx, req)
	}
	metrics.SplitSuggestions.WithLabelValues(suggestion.Provider, "ok").Inc()
	return suggestion, nil
}

func firstOutsider(memberIDs, householdIDs []string) string {
	inHousehold := make(map[string]bool, len(householdIDs))
	for _, id := range householdIDs {
		inHousehold[id] = true
	}
	for _, id := range memberIDs {
		if !inHousehold[id] {
			return id
		}
	}
	return ""
}

// HeuristicSuggester picks a split from keywords in the description. It
// never fails and needs no network access.
type HeuristicSuggester struct{}

var sharedCostKeywords = []string{"rent", "utilities", "utility", "electric", "water", "internet", "wifi", "groceries", "cleaning"}

func (HeuristicSuggester) SuggestSplit(_ context.Context, req SplitSuggestionRequest) (*models.SplitSuggestion, error) {
	members := make([]ledger.SplitInput, len(req.MemberIDs))
	for i, id := range req.MemberIDs {
		members[i] = ledger.SplitInput{UserID: id}
	}

	suggestion := &models.SplitSuggestion{
		SplitType:  ledger.SplitTypeEqual,
		Members:    members,
		Reasoning:  "Equal split suggested as a starting point. Adjust if needed.",
		Confidence: 0.5,
		Provider:   ProviderHeuristic,
	}

	desc := strings.ToLower(req.Description)
	for _, kw := range sharedCostKeywords {
		if strings.Contains(desc, kw) {
			suggestion.Reasoning = "Shared household costs like rent, utilities and groceries are usually split equally among everyone."
			suggestion.Confidence = 0.8
			break
		}
	}
	return suggestion, nil
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiSuggester asks Gemini for a split and returns an error when the
// answer cannot be used; the service then falls back to the heuristic.
type GeminiSuggester struct {
	client *genai.Client
	model  contentGenerator
}

func NewGeminiSuggester(ctx context.Context, apiKey, modelName string) (*GeminiSuggester, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	return &GeminiSuggester{client: client, model: model}, nil
}

func (g *GeminiSuggester) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

type geminiSplitAnswer struct {
	SplitType         ledger.SplitType   `json:"split_type"`
	IncludedMemberIDs []string           `json:"included_member_ids"`
	Percentages       map[string]float64 `json:"percentages"`
	Shares            map[string]int64   `json:"shares"`
	Rationale         string             `json:"rationale"`
}

func (g *GeminiSuggester) SuggestSplit(ctx context.Context, req SplitSuggestionRequest) (*models.SplitSuggestion, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildSplitPrompt(req)))
	if err != nil {
		return nil, apperrors.AIServiceError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			text.WriteString(string(textPart))
		}
	}

	var answer geminiSplitAnswer
	if err := json.Unmarshal([]byte(cleanJSONResponse(text.String())), &answer); err != nil {
		return nil, fmt.Errorf("parsing gemini response: %w", err)
	}
	return answer.toSuggestion(req)
}

func (a geminiSplitAnswer) toSuggestion(req SplitSuggestionRequest) (*models.SplitSuggestion, error) {
	allowed := make(map[string]bool, len(req.MemberIDs))
	for _, id := range req.MemberIDs {
		allowed[id] = true
	}

	ids := a.IncludedMemberIDs
	if len(ids) == 0 {
		ids = req.MemberIDs
	}
	members := make([]ledger.SplitInput, 0, len(ids))
	for _, id := range ids {
		if !allowed[id] {
			return nil, fmt.Errorf("gemini suggested unknown member %q", id)
		}
		m := ledger.SplitInput{UserID: id}
		if p, ok := a.Percentages[id]; ok {
			m.Percentage = &p
		}
		if sh, ok := a.Shares[id]; ok {
			m.Shares = &sh
		}
		members = append(members, m)
	}

	splitType := a.SplitType
	if splitType == "" {
		splitType = ledger.SplitTypeEqual
	}
	if splitType == ledger.SplitTypeExact {
		return nil, fmt.Errorf("exact splits are not suggested")
	}

	return &models.SplitSuggestion{
		SplitType:  splitType,
		Members:    members,
		Reasoning:  a.Rationale,
		Confidence: 0.7,
		Provider:   ProviderGemini,
	}, nil
}

func buildSplitPrompt(req SplitSuggestionRequest) string {
	ids := append([]string(nil), req.MemberIDs...)
	sort.Strings(ids)
	idsJSON, _ := json.Marshal(ids)

	return fmt.Sprintf(`You help housemates split shared expenses. Based on the description, suggest how to split this expense.

Expense: %q
Amount: %s
Member ids: %s

Return ONLY valid JSON in this format:
{"split_type": "equal", "included_member_ids": %s, "percentages": {}, "shares": {}, "rationale": "brief explanation"}

Split types: equal, percentage, shares. Percentages must sum to 100. Shares are positive integers.
Default to equal unless the description clearly suggests otherwise.`,
		req.Description, ledger.FormatAmount(req.AmountCents), idsJSON, idsJSON)
}

func cleanJSONResponse(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx != -1 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx != -1 {
		text = text[idx+len("```"):]
	}
	if idx := strings.Index(text, "```"); idx != -1 {
		text = text[:idx]
	}
	return strings.Trim(strings.TrimSpace(text), "`")
}
