package pipeline

import (
	"encoding/json"

	"github.com/MikeSquared-Agency/tailored/internal/hermes"
	"github.com/MikeSquared-Agency/tailored/internal/intent"
	"github.com/MikeSquared-Agency/tailored/internal/signals"
)

// HandleDecisionRequest is the NATS handler for tailored.decision.request.
// The resulting decisions reach subscribers through tailored.decision.updated.
func (e *Engine) HandleDecisionRequest(subject string, data []byte) {
	var msg hermes.DecisionRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		e.logger.Warn("failed to parse decision request", "subject", subject, "error", err)
		return
	}

	req := Request{
		VisitorID: msg.VisitorID,
		Env: signals.Environment{
			URL:       msg.URL,
			Referrer:  msg.Referrer,
			UserAgent: msg.UserAgent,
		},
		Overrides: signals.Overrides{
			ViewportWidth: msg.ViewportWidth,
			Hour:          msg.Hour,
		},
	}

	var err error
	if msg.Intent != "" {
		forced, ok := intent.Parse(msg.Intent)
		if !ok {
			e.logger.Warn("decision request names unknown intent", "intent", msg.Intent)
			return
		}
		req.Force = &forced
		_, err = e.Simulate(req)
	} else {
		_, err = e.Run(req)
	}
	if err != nil {
		e.logger.Warn("decision request failed", "visitor_id", msg.VisitorID, "error", err)
	}
}
