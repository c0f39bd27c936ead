package application

import (
	"context"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/errors"
	"github.com/wms-platform/cutoff-service/pkg/logging"
)

// DemoService lists and switches the scenarios of the demo data source
type DemoService struct {
	catalog   domain.ScenarioCatalog
	publisher EventPublisher
	logger    *logging.Logger
}

// NewDemoService creates a DemoService. publisher may be nil.
func NewDemoService(catalog domain.ScenarioCatalog, publisher EventPublisher, logger *logging.Logger) *DemoService {
	return &DemoService{catalog: catalog, publisher: publisher, logger: logger}
}

// ListScenarios returns every scenario and the active one
func (s *DemoService) ListScenarios(ctx context.Context) *ScenarioListDTO {
	scenarios := s.catalog.Scenarios()
	out := make([]ScenarioDTO, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, ToScenarioDTO(sc))
	}
	return &ScenarioListDTO{Scenarios: out, Current: s.catalog.Current()}
}

// SwitchScenario activates the named scenario
func (s *DemoService) SwitchScenario(ctx context.Context, cmd SwitchScenarioCommand) (*ScenarioSwitchDTO, error) {
	previous, current, err := s.catalog.Switch(cmd.Name)
	if err != nil {
		return nil, errors.ErrNotFoundWithID("scenario", cmd.Name).Wrap(err)
	}

	s.logger.Event(ctx, "scenario.switched", "previous", previous.Key, "current", current.Key)

	if s.publisher != nil {
		if err := s.publisher.PublishScenarioSwitched(ctx, previous.Key, current.Key); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish scenario switch")
		}
	}

	return &ScenarioSwitchDTO{Previous: previous.Key, Scenario: ToScenarioDTO(current)}, nil
}
