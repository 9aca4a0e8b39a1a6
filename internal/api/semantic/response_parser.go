package semantic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanJSONResponse strips the markdown code fence the model wraps JSON
// payloads in despite instructions not to.
func cleanJSONResponse(txt string) string {
	cleaned := strings.TrimSpace(txt)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func parseLocationIDs(jsonStr string) ([]string, error) {
	var payload struct {
		LocationIDs []string `json:"location_ids"`
	}
	if err := json.Unmarshal([]byte(cleanJSONResponse(jsonStr)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse location id JSON: %w", err)
	}
	return payload.LocationIDs, nil
}
