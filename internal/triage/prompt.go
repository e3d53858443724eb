package triage

import (
	"encoding/json"
	"fmt"

	"aimonitor/internal/model"
)

const promptTemplate = `You are an SRE assistant for a Raspberry Pi docker-compose stack. Given the JSON snapshot, produce a concise triage response. Return ONLY valid JSON that matches this schema:
{"summary": string, "severity": "low"|"medium"|"high", "suspected_causes": string[], "recommended_actions": [{"type": "restart_container"|"alert"|"none", "target": string|null, "reason": string|null}], "confidence": number }

Constraints:
- Be conservative: prefer alert/none over restarts.
- If you recommend a restart_container, set target to the exact container name.
- If everything looks fine, severity=low and action=none.

SNAPSHOT:
%s`

// BuildPrompt embeds the serialized snapshot in the fixed triage prompt.
func BuildPrompt(snap model.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return fmt.Sprintf(promptTemplate, data), nil
}
