package models

import "time"

type Persona string

const (
	PersonaHighUtilization   Persona = "high_utilization"
	PersonaVariableIncome    Persona = "variable_income"
	PersonaSubscriptionHeavy Persona = "subscription_heavy"
	PersonaSavingsBuilder    Persona = "savings_builder"
	PersonaGeneralWellness   Persona = "general_wellness"
)

type PersonaAssignment struct {
	UserID      string    `json:"user_id"`
	Window      Window    `json:"time_window"`
	Persona     Persona   `json:"persona"`
	CriteriaMet []string  `json:"criteria_met"`
	AssignedAt  time.Time `json:"assigned_at"`
}
