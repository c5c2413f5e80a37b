package models

// CreationState is the read model of a wizard session in progress.
// Data holds every field collected so far; InitialData is the part the
// current step's form starts from.
type CreationState struct {
	SessionID   string         `json:"session_id"`
	Kind        string         `json:"kind"`
	Step        int            `json:"step"`
	TotalSteps  int            `json:"total_steps"`
	StepName    string         `json:"step_name"`
	Data        map[string]any `json:"data"`
	InitialData map[string]any `json:"initial_data"`
}

// Created is returned when a wizard session finishes and its record is stored.
type Created struct {
	Kind     string    `json:"kind"`
	Pool     *Pool     `json:"pool,omitempty"`
	Giveaway *Giveaway `json:"giveaway,omitempty"`
}

// ID returns the id of whichever record was created.
func (c Created) ID() int64 {
	if c.Pool != nil {
		return c.Pool.ID
	}
	if c.Giveaway != nil {
		return c.Giveaway.ID
	}
	return 0
}

// ErrorResponse is the JSON error body of the HTTP API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
