package library

import (
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/events"
	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// Service coordinates circuit storage and publishes library events.
type Service struct {
	repo     *Repository
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewService creates a new library service
func NewService(repo *Repository, eventBus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		log:      log.With().Str("service", "library").Logger(),
	}
}

// SaveCircuit stores a circuit under the given name.
func (s *Service) SaveCircuit(name string, circuit *circuits.Circuit) (*CircuitRecord, error) {
	record, err := s.repo.Create(name, circuit)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish("library", &events.CircuitSavedData{
		CircuitID:  record.ID,
		Name:       record.Name,
		NQubits:    record.NQubits,
		Operations: record.NOperations,
	})

	return record, nil
}

// UpdateCircuit replaces the stored circuit for the given ID.
func (s *Service) UpdateCircuit(id string, circuit *circuits.Circuit) (*CircuitRecord, error) {
	record, err := s.repo.Update(id, circuit)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish("library", &events.CircuitUpdatedData{
		CircuitID: record.ID,
		Name:      record.Name,
	})

	return record, nil
}

// GetCircuit retrieves a circuit by ID.
func (s *Service) GetCircuit(id string) (*CircuitRecord, error) {
	return s.repo.GetByID(id)
}

// GetCircuitByName retrieves a circuit by name.
func (s *Service) GetCircuitByName(name string) (*CircuitRecord, error) {
	return s.repo.GetByName(name)
}

// ListCircuits returns metadata for all stored circuits.
func (s *Service) ListCircuits() ([]CircuitRecord, error) {
	return s.repo.List()
}

// DeleteCircuit removes a circuit by ID.
func (s *Service) DeleteCircuit(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.eventBus.Publish("library", &events.CircuitDeletedData{CircuitID: id})
	return nil
}

// BindCircuit binds symbol values into a stored circuit and persists
// the bound version. Symbols absent from the circuit are ignored.
func (s *Service) BindCircuit(id string, bindings sym.Bindings) (*CircuitRecord, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.UpdateCircuit(id, record.Circuit.Bind(bindings))
}

// AppendToCircuit appends operations to a stored circuit and persists
// the result.
func (s *Service) AppendToCircuit(id string, operations []circuits.Operation) (*CircuitRecord, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.UpdateCircuit(id, record.Circuit.Append(operations...))
}

// SplitCircuit partitions a stored circuit into contiguous runs of
// operations whose gate name is, or is not, in the given set. Runs
// keep the parent circuit's qubit count.
func (s *Service) SplitCircuit(id string, gateNames []string) ([]circuits.Partition, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(gateNames))
	for _, name := range gateNames {
		names[name] = struct{}{}
	}

	predicate := func(op circuits.Operation) bool {
		gateOp, ok := op.(circuits.GateOperation)
		if !ok {
			return false
		}
		_, matches := names[gateOp.Gate().Name()]
		return matches
	}

	return circuits.Split(record.Circuit, predicate), nil
}
