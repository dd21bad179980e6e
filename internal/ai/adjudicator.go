package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/david/relief-fund/internal/models"
	"github.com/david/relief-fund/internal/policy"
)

// Adjudicate asks the model to affirm or reduce a passing preliminary
// decision. Callers own the timeout via ctx; any failure here is expected to
// be absorbed by the refiner's fallback.
func (c *OllamaClient) Adjudicate(ctx context.Context, req policy.AdjudicationContext) (*policy.AdjudicationResult, error) {
	prompt := buildAdjudicationPrompt(req)

	// Strategy: Try with jsonMode=true first (better adherence for models
	// that support it). If that fails, fallback to text mode + robust
	// extraction.
	resp, err := c.GenerateCompletion(ctx, prompt, true)
	if err == nil {
		if result, parseErr := parseAdjudication(resp); parseErr == nil {
			return result, nil
		} else {
			log.Printf("JSON mode failed parsing: %v. Retrying with text mode...", parseErr)
		}
	} else {
		return nil, err
	}

	resp, err = c.GenerateCompletion(ctx, prompt, false)
	if err != nil {
		return nil, err
	}

	result, err := parseAdjudication(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse adjudication after retry: %w", err)
	}
	return result, nil
}

func buildAdjudicationPrompt(req policy.AdjudicationContext) string {
	prelim, _ := json.Marshal(req.Preliminary)
	return fmt.Sprintf(`You are the secondary adjudicator for an employee relief fund. A deterministic policy engine has already approved the request below. You may AFFIRM the approval, REDUCE the award, or DENY. You may never increase the award.

Preliminary decision:
%s

Remaining balances: twelve_month=%.2f lifetime=%.2f
Single request max: %.2f

Instructions:
1. final_decision must be "Approved" or "Denied".
2. final_award must not exceed the preliminary recommended_award.
3. final_reason: one sentence explaining your verdict.

JSON Schema:
{
	"final_decision": "Approved" | "Denied",
	"final_reason": "string",
	"final_award": number
}

Respond ONLY with the JSON object.`, string(prelim), req.Balance.TwelveMonthRemaining, req.Balance.LifetimeRemaining, req.Policy.SingleRequestMax)
}

func parseAdjudication(resp string) (*policy.AdjudicationResult, error) {
	// Clean markdown code blocks
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var result policy.AdjudicationResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, err
	}

	switch result.FinalDecision {
	case models.DecisionApproved, models.DecisionDenied:
	default:
		return nil, fmt.Errorf("invalid final_decision %q", result.FinalDecision)
	}

	return &result, nil
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
