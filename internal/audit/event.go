package audit

import (
	"encoding/json"
	"time"
)

// ISO8601Format is the time format used for audit event timestamps.
const ISO8601Format = time.RFC3339

// eventJSON is the wire form of Event. Optional strings are pointers so that
// empty values are omitted.
type eventJSON struct {
	Timestamp       string            `json:"timestamp"`
	RunID           RunID             `json:"runId"`
	EventType       EventType         `json:"eventType"`
	Status          OperationStatus   `json:"status"`
	SourcePath      *string           `json:"sourcePath,omitempty"`
	DestinationPath *string           `json:"destinationPath,omitempty"`
	SourceIdentity  *FileIdentity     `json:"sourceIdentity,omitempty"`
	OutputIdentity  *FileIdentity     `json:"outputIdentity,omitempty"`
	Column          *ColumnDetails    `json:"column,omitempty"`
	ErrorDetails    *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler for Event.
func (e Event) MarshalJSON() ([]byte, error) {
	ej := eventJSON{
		Timestamp:      e.Timestamp.Format(ISO8601Format),
		RunID:          e.RunID,
		EventType:      e.EventType,
		Status:         e.Status,
		SourceIdentity: e.SourceIdentity,
		OutputIdentity: e.OutputIdentity,
		Column:         e.Column,
		ErrorDetails:   e.ErrorDetails,
		Metadata:       e.Metadata,
	}
	if e.SourcePath != "" {
		ej.SourcePath = &e.SourcePath
	}
	if e.DestinationPath != "" {
		ej.DestinationPath = &e.DestinationPath
	}
	return json.Marshal(ej)
}

// UnmarshalJSON implements json.Unmarshaler for Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(ISO8601Format, ej.Timestamp)
	if err != nil {
		return err
	}

	*e = Event{
		Timestamp:      t,
		RunID:          ej.RunID,
		EventType:      ej.EventType,
		Status:         ej.Status,
		SourceIdentity: ej.SourceIdentity,
		OutputIdentity: ej.OutputIdentity,
		Column:         ej.Column,
		ErrorDetails:   ej.ErrorDetails,
		Metadata:       ej.Metadata,
	}
	if ej.SourcePath != nil {
		e.SourcePath = *ej.SourcePath
	}
	if ej.DestinationPath != nil {
		e.DestinationPath = *ej.DestinationPath
	}
	return nil
}
