package provider

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/curation-cli/internal/fault"
)

// jsonInstruction is appended to prompts for vendors without native
// structured-output support.
const jsonInstruction = "\n\nRespond with valid JSON only."

// stripFences removes a Markdown code-fence wrapper (```json ... ```) that
// models without native JSON modes like to add around their output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseObject decodes a JSON object from raw model output, stripping
// code fences first.
func parseObject(service, raw string) (map[string]any, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fault.Processing(service+": parse structured output", err)
	}
	return out, nil
}
