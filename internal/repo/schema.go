package repo

const (
	tableIntents        = "intents"
	tableConsumedTokens = "consumed_tokens"
	tableAuditLog       = "audit_log"
)

const (
	colReference        = "reference"
	colGoal             = "goal"
	colPlanHash         = "plan_hash"
	colPolicyDigest     = "policy_digest"
	colUserID           = "user_id"
	colAgentID          = "agent_id"
	colContextID        = "context_id"
	colStepCount        = "step_count"
	colIssuedAt         = "issued_at"
	colExpiresAt        = "expires_at"
	colReplayKey        = "replay_key"
	colID               = "id"
	colAction           = "action"
	colParams           = "params"
	colOutcome          = "outcome"
	colState            = "state"
	colReason           = "reason"
	colTokenFingerprint = "token_fingerprint"
	colAt               = "at"
)

const intentColumns = colReference + `, ` + colGoal + `, ` + colPlanHash + `, ` + colPolicyDigest + `, ` +
	colUserID + `, ` + colAgentID + `, ` + colContextID + `, ` + colStepCount + `, ` + colIssuedAt + `, ` + colExpiresAt

const auditColumns = colID + `, ` + colAction + `, ` + colParams + `, ` + colUserID + `, ` + colAgentID + `, ` +
	colContextID + `, ` + colOutcome + `, ` + colState + `, ` + colReason + `, ` + colTokenFingerprint + `, ` + colAt

// defaultAuditLimit caps Recent when the caller passes a non-positive limit.
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultAuditLimit
	case limit > maxAuditLimit:
		return maxAuditLimit
	}
	return limit
}
