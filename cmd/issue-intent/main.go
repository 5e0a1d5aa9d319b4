// Command issue-intent mints a book_flight intent token and prints it as
// JSON, for driving the gate by hand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	icfg "github.com/vbncursed/vkr/intent-gate/internal/config"
	"github.com/vbncursed/vkr/intent-gate/internal/crypto"
	"github.com/vbncursed/vkr/intent-gate/internal/http/dto"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/policy"
	"github.com/vbncursed/vkr/intent-gate/internal/remote"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
	"github.com/vbncursed/vkr/intent-gate/internal/tools"
	"github.com/vbncursed/vkr/intent-gate/internal/util"
)

func main() {
	var (
		issuerURL, policyFile           string
		destination                     string
		price                           float64
		userID, agentID, session, runID string
		ttl                             time.Duration
	)
	flag.StringVar(&issuerURL, "issuer", os.Getenv("ISSUER_URL"), "remote issuer base url (empty signs locally)")
	flag.StringVar(&policyFile, "policy", os.Getenv("POLICY_FILE"), "policy yaml")
	flag.StringVar(&destination, "destination", "Paris", "flight destination")
	flag.Float64Var(&price, "price", 450, "ticket price")
	flag.StringVar(&userID, "user", "demo-user", "user id")
	flag.StringVar(&agentID, "agent", "travel-agent", "agent id")
	flag.StringVar(&session, "session", "demo-session", "session key")
	flag.StringVar(&runID, "run", "", "run id")
	flag.DurationVar(&ttl, "ttl", time.Hour, "token validity")
	flag.Parse()

	secret, err := crypto.ParseSecret(os.Getenv("INTENT_SECRET"))
	if err != nil {
		slog.Error("INTENT_SECRET", "err", err)
		os.Exit(1)
	}
	key, err := crypto.NewKey(secret)
	if err != nil {
		slog.Error("INTENT_SECRET", "err", err)
		os.Exit(1)
	}
	limits, err := icfg.LoadPolicy(policyFile)
	if err != nil {
		slog.Error("policy", "err", err)
		os.Exit(1)
	}
	guard, err := policy.New(limits)
	if err != nil {
		slog.Error("policy", "err", err)
		os.Exit(1)
	}

	var signer service.Signer = service.NewLocalHMACSigner(key)
	if issuerURL != "" {
		rs, err := remote.NewSigner(issuerURL, service.NewVerifier(key, service.RealClock{}))
		if err != nil {
			slog.Error("issuer", "err", err)
			os.Exit(1)
		}
		signer = rs
	}

	plan := models.IntentPlan{
		Goal: "book a flight to " + destination,
		Steps: []models.PlanStep{{
			Tool:        "travel",
			Action:      tools.BookFlightArgs{Destination: destination, Price: price}.Descriptor(),
			Description: "book the selected flight",
		}},
	}
	identity := models.IdentityContext{UserID: userID, AgentID: agentID, ContextID: util.RunKey(session, runID)}

	tok, err := service.NewIssuer(signer, guard).Issue(context.Background(), plan, identity, ttl)
	if err != nil {
		slog.Error("issue", "err", err)
		os.Exit(1)
	}
	out := struct {
		Identity models.IdentityContext `json:"identity"`
		dto.IssueResponse
	}{identity, dto.FromIntentToken(tok)}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("encode", "err", err)
		os.Exit(1)
	}
	if r := guard.Evaluate(plan.Steps[0].Action); !r.Allowed {
		slog.Warn("token issued but the gate will block it", "reason", r.Reason)
	}
}
