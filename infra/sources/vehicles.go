package sources

import (
	"context"

	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/logger"
)

const defaultVehicleType = "Vehicle"

// VehicleSource reads fleet entities from the context broker. Entities
// without a usable location are skipped with a warning.
type VehicleSource struct {
	client     *Client
	entityType string
	log        logger.Logger
}

// NewVehicleSource creates a vehicle source. An empty entityType falls back
// to the default.
func NewVehicleSource(c *Client, entityType string) *VehicleSource {
	if entityType == "" {
		entityType = defaultVehicleType
	}
	return &VehicleSource{client: c, entityType: entityType, log: logger.New("vehicle-source")}
}

func (s *VehicleSource) FetchVehicles(ctx context.Context) ([]model.Vehicle, error) {
	ents, err := s.client.entities(ctx, s.entityType)
	if err != nil {
		return nil, err
	}
	vehicles := make([]model.Vehicle, 0, len(ents))
	for _, e := range ents {
		loc, err := e.point("location")
		if err != nil {
			s.log.Warnf("skipping vehicle %s: %v", e.id(), err)
			continue
		}
		vehicles = append(vehicles, model.Vehicle{
			ID:            e.id(),
			Type:          e.text("vehicleType"),
			Plate:         e.text("license_plate"),
			City:          e.text("homeCity"),
			Location:      loc,
			TotalSeats:    e.integer("totalSeats"),
			OccupiedSeats: e.integer("occupiedSeats"),
		})
	}
	return vehicles, nil
}
