package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

// Digest returns the SHA-256 hex digest of the RFC 8785 form of v.
func Digest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest: marshal: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("digest: jcs: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

type planStepDoc struct {
	Tool   string `json:"tool"`
	Action string `json:"action"`
	// Canonical action bytes, so plan hashing follows the same number and
	// string rules as token signing.
	Canonical string `json:"canonical"`
}

// PlanHash digests the ordered steps of a plan. The goal text is advisory
// and not part of the hash.
func PlanHash(plan models.IntentPlan) (string, error) {
	steps := make([]planStepDoc, 0, len(plan.Steps))
	for i, s := range plan.Steps {
		msg, err := Build(s.Action)
		if err != nil {
			return "", fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, planStepDoc{
			Tool:      models.NormalizeActionName(s.Tool),
			Action:    models.NormalizeActionName(s.Action.Name),
			Canonical: hex.EncodeToString(msg),
		})
	}
	return Digest(map[string]any{"steps": steps})
}
