package sources

import (
	"context"
	"encoding/json"

	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/logger"
)

const defaultTargetType = "EvacuationTarget"

// TargetSource reads evacuation target entities from the context broker.
// Entities without a usable location are skipped with a warning.
type TargetSource struct {
	client     *Client
	entityType string
	log        logger.Logger
}

// NewTargetSource creates a target source. An empty entityType falls back to
// the default.
func NewTargetSource(c *Client, entityType string) *TargetSource {
	if entityType == "" {
		entityType = defaultTargetType
	}
	return &TargetSource{client: c, entityType: entityType, log: logger.New("target-source")}
}

func (s *TargetSource) FetchTargets(ctx context.Context) ([]model.Target, error) {
	ents, err := s.client.entities(ctx, s.entityType)
	if err != nil {
		return nil, err
	}
	targets := make([]model.Target, 0, len(ents))
	for _, e := range ents {
		loc, err := e.point("location")
		if err != nil {
			s.log.Warnf("skipping target %s: %v", e.id(), err)
			continue
		}
		targets = append(targets, model.Target{
			ID:       e.id(),
			Name:     e.text("name"),
			Location: loc,
			Notes:    e.text("description"),
			Contact:  contactEmail(e),
		})
	}
	return targets, nil
}

// contactEmail extracts the email from a contactPoint StructuredValue.
func contactEmail(e rawEntity) string {
	a, ok := e.attr("contactPoint")
	if !ok {
		return ""
	}
	var v struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(a.Value, &v); err != nil {
		return ""
	}
	return v.Email
}
