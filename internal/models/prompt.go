package models

import "time"

// AgentPrompt is the interviewer prompt for one step of an agent's script. Step "0"
// holds the case background.
type AgentPrompt struct {
	AgentID   string    `json:"agent_id" db:"agent_id"`
	Step      string    `json:"step" db:"step"`
	Prompt    string    `json:"prompt" db:"prompt"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Feedback is reviewer feedback stored per thread and step.
type Feedback struct {
	ThreadID  string    `json:"thread_id" db:"thread_id"`
	StepID    int       `json:"step_id" db:"step_id"`
	AgentID   string    `json:"agent_id" db:"agent_id"`
	Feedback  string    `json:"feedback" db:"feedback"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
