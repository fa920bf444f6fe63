package sources

import (
	"context"

	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/logger"
)

const defaultHazardType = "HazardZone"

// HazardSource reads hazard zone entities from the context broker. Entities
// with malformed or unsupported geometry are skipped with a warning.
type HazardSource struct {
	client     *Client
	entityType string
	log        logger.Logger
}

// NewHazardSource creates a hazard source. An empty entityType falls back to
// the default.
func NewHazardSource(c *Client, entityType string) *HazardSource {
	if entityType == "" {
		entityType = defaultHazardType
	}
	return &HazardSource{client: c, entityType: entityType, log: logger.New("hazard-source")}
}

func (s *HazardSource) FetchHazards(ctx context.Context) ([]model.HazardZone, error) {
	ents, err := s.client.entities(ctx, s.entityType)
	if err != nil {
		return nil, err
	}
	zones := make([]model.HazardZone, 0, len(ents))
	for _, e := range ents {
		g, err := e.geometry("location")
		if err != nil {
			s.log.Warnf("skipping hazard %s: %v", e.id(), err)
			continue
		}
		zones = append(zones, model.HazardZone{
			ID:       e.id(),
			Name:     e.text("name"),
			Geometry: g,
			Start:    e.timestamp("validFrom"),
			End:      e.timestamp("validTo"),
		})
	}
	return zones, nil
}
