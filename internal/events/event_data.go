package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// CircuitSavedData contains data for CircuitSaved events
type CircuitSavedData struct {
	CircuitID  string `json:"circuit_id"`
	Name       string `json:"name"`
	NQubits    int    `json:"n_qubits"`
	Operations int    `json:"operations"`
}

// EventType returns the event type for CircuitSavedData
func (d *CircuitSavedData) EventType() EventType {
	return CircuitSaved
}

// CircuitUpdatedData contains data for CircuitUpdated events
type CircuitUpdatedData struct {
	CircuitID string `json:"circuit_id"`
	Name      string `json:"name"`
}

// EventType returns the event type for CircuitUpdatedData
func (d *CircuitUpdatedData) EventType() EventType {
	return CircuitUpdated
}

// CircuitDeletedData contains data for CircuitDeleted events
type CircuitDeletedData struct {
	CircuitID string `json:"circuit_id"`
}

// EventType returns the event type for CircuitDeletedData
func (d *CircuitDeletedData) EventType() EventType {
	return CircuitDeleted
}

// BackupData contains data for BackupCompleted and BackupFailed events
type BackupData struct {
	Key      string  `json:"key,omitempty"`
	Bucket   string  `json:"bucket,omitempty"`
	Bytes    int64   `json:"bytes,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// EventType returns the event type for BackupData
// Note: The actual event type is determined by the Error field
func (d *BackupData) EventType() EventType {
	if d.Error != "" {
		return BackupFailed
	}
	return BackupCompleted
}

// MaintenanceCompletedData contains data for MaintenanceCompleted events
type MaintenanceCompletedData struct {
	Job      string  `json:"job"`
	Duration float64 `json:"duration"`
	Pruned   int     `json:"pruned,omitempty"`
}

// EventType returns the event type for MaintenanceCompletedData
func (d *MaintenanceCompletedData) EventType() EventType {
	return MaintenanceCompleted
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// JobProgressInfo contains progress information for a simulation job.
type JobProgressInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	JobID       string                 `json:"job_id"`
	JobType     string                 `json:"job_type"`
	Status      string                 `json:"status"` // "started", "progress", "completed", "failed"
	Description string                 `json:"description"`
	Progress    *JobProgressInfo       `json:"progress,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    float64                `json:"duration,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// EventType returns the event type for JobStatusData
// Note: The actual event type is determined by the Status field
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "started":
		return JobStarted
	case "progress":
		return JobProgress
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// MarshalJSON customizes JSON serialization for Event
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Unmarshal data based on event type
	if len(aux.Data) > 0 {
		var eventData EventData
		switch aux.Type {
		case CircuitSaved:
			eventData = &CircuitSavedData{}
		case CircuitUpdated:
			eventData = &CircuitUpdatedData{}
		case CircuitDeleted:
			eventData = &CircuitDeletedData{}
		case BackupCompleted, BackupFailed:
			eventData = &BackupData{}
		case MaintenanceCompleted:
			eventData = &MaintenanceCompletedData{}
		case SystemStatusChanged:
			eventData = &SystemStatusChangedData{}
		case ErrorOccurred:
			eventData = &ErrorEventData{}
		case JobStarted, JobProgress, JobCompleted, JobFailed:
			eventData = &JobStatusData{}
		default:
			// For unknown types, use raw map
			var rawData map[string]interface{}
			if err := json.Unmarshal(aux.Data, &rawData); err != nil {
				return err
			}
			eventData = &GenericEventData{Type: aux.Type, Data: rawData}
		}

		if err := json.Unmarshal(aux.Data, eventData); err != nil {
			return err
		}
		e.Data = eventData
	}

	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
