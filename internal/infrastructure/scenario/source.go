// Package scenario is an in-memory warehouse data source driven by fixed
// demo scenarios.
package scenario

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wms-platform/cutoff-service/internal/domain"
)

// DefaultScenario is active when none is configured
const DefaultScenario = "normal"

//go:embed scenarios.yaml
var builtinFixtures []byte

type fixtureFile struct {
	Warehouses []warehouseFixture `yaml:"warehouses"`
	Scenarios  []scenarioFixture  `yaml:"scenarios"`
}

type warehouseFixture struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Pickers int    `yaml:"pickers"`
	Packers int    `yaml:"packers"`
	Loaders int    `yaml:"loaders"`
}

type scenarioFixture struct {
	Key           string            `yaml:"key"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Utilization   string            `yaml:"utilization"`
	OrdersInQueue int               `yaml:"ordersInQueue"`
	Committed     map[string]string `yaml:"committed"`
}

type loadedScenario struct {
	domain.Scenario
	ordersInQueue int
	committed     map[string]decimal.Decimal
}

// Source serves capacity and committed workload from the active scenario.
// It is safe for concurrent use.
type Source struct {
	warehouses map[string]warehouseFixture
	scenarios  []loadedScenario

	mu      sync.RWMutex
	current int
}

// NewSource loads the built-in fixtures and activates initial
func NewSource(initial string) (*Source, error) {
	return NewSourceFromYAML(builtinFixtures, initial)
}

// NewSourceFromYAML loads fixtures from raw YAML and activates initial. An
// empty initial selects DefaultScenario.
func NewSourceFromYAML(raw []byte, initial string) (*Source, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario fixtures: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario fixtures define no scenarios")
	}

	s := &Source{warehouses: make(map[string]warehouseFixture, len(file.Warehouses))}
	for _, wh := range file.Warehouses {
		s.warehouses[wh.ID] = wh
	}

	for _, f := range file.Scenarios {
		loaded, err := loadScenario(f)
		if err != nil {
			return nil, err
		}
		s.scenarios = append(s.scenarios, loaded)
	}

	if initial == "" {
		initial = DefaultScenario
	}
	idx, ok := s.index(initial)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, initial)
	}
	s.current = idx
	return s, nil
}

func loadScenario(f scenarioFixture) (loadedScenario, error) {
	utilization, err := decimal.NewFromString(f.Utilization)
	if err != nil {
		return loadedScenario{}, fmt.Errorf("scenario %s: invalid utilization %q: %w", f.Key, f.Utilization, err)
	}

	committed := make(map[string]decimal.Decimal, len(f.Committed))
	for wh, raw := range f.Committed {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return loadedScenario{}, fmt.Errorf("scenario %s: invalid committed workload for %s: %w", f.Key, wh, err)
		}
		committed[wh] = v
	}

	return loadedScenario{
		Scenario: domain.Scenario{
			Key:         f.Key,
			Name:        f.Name,
			Description: f.Description,
			Utilization: utilization,
			Status:      domain.ClassifyStatus(utilization),
		},
		ordersInQueue: f.OrdersInQueue,
		committed:     committed,
	}, nil
}

func (s *Source) index(key string) (int, bool) {
	for i, sc := range s.scenarios {
		if sc.Key == key {
			return i, true
		}
	}
	return 0, false
}

func (s *Source) active() loadedScenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenarios[s.current]
}

// Name identifies the data source
func (s *Source) Name() string { return "scenario" }

// HealthCheck always succeeds
func (s *Source) HealthCheck(context.Context) error { return nil }

// GetCurrentCapacity returns the fixed staffing of warehouseID. Staffing
// does not vary by date or scenario.
func (s *Source) GetCurrentCapacity(_ context.Context, warehouseID string, date time.Time) (domain.ResourceCounts, error) {
	wh, ok := s.warehouses[warehouseID]
	if !ok {
		return domain.ResourceCounts{}, fmt.Errorf("%w: %s", domain.ErrWarehouseNotFound, warehouseID)
	}
	return domain.ResourceCounts{
		WarehouseID:      wh.ID,
		Date:             date,
		AvailablePickers: wh.Pickers,
		AvailablePackers: wh.Packers,
		AvailableLoaders: wh.Loaders,
	}, nil
}

// GetCommittedWorkload returns the active scenario's workload for warehouseID
func (s *Source) GetCommittedWorkload(_ context.Context, warehouseID string) (domain.CommittedWorkload, error) {
	if _, ok := s.warehouses[warehouseID]; !ok {
		return domain.CommittedWorkload{}, fmt.Errorf("%w: %s", domain.ErrWarehouseNotFound, warehouseID)
	}

	sc := s.active()
	return domain.CommittedWorkload{
		WarehouseID:            warehouseID,
		TotalRemainingWorkload: sc.committed[warehouseID],
		CurrentUtilization:     sc.Utilization,
		SystemStatus:           sc.Status,
		OrdersInQueue:          sc.ordersInQueue,
	}, nil
}

// Scenarios lists every scenario in fixture order
func (s *Source) Scenarios() []domain.Scenario {
	out := make([]domain.Scenario, len(s.scenarios))
	for i, sc := range s.scenarios {
		out[i] = sc.Scenario
	}
	return out
}

// Current is the key of the active scenario
func (s *Source) Current() string {
	return s.active().Key
}

// Switch activates the scenario called name
func (s *Source) Switch(name string) (domain.Scenario, domain.Scenario, error) {
	idx, ok := s.index(name)
	if !ok {
		return domain.Scenario{}, domain.Scenario{}, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, name)
	}

	s.mu.Lock()
	previous := s.scenarios[s.current].Scenario
	s.current = idx
	s.mu.Unlock()

	return previous, s.scenarios[idx].Scenario, nil
}
