package models

import "errors"

// EventType is the closed enumeration of trigger event types. The engine
// never invents new types at runtime; unknown strings are rejected at save
// time and ignored at dispatch time.
type EventType string

const (
	TriggerSaleCreated      EventType = "sale.created"
	TriggerSaleCompleted    EventType = "sale.completed"
	TriggerSaleVoided       EventType = "sale.voided"
	TriggerProductCreated   EventType = "product.created"
	TriggerProductUpdated   EventType = "product.updated"
	TriggerProductLowStock  EventType = "product.low_stock"
	TriggerCustomerCreated  EventType = "customer.created"
	TriggerCustomerVIP      EventType = "customer.vip"
	TriggerEmployeeClockIn  EventType = "employee.clock_in"
	TriggerEmployeeClockOut EventType = "employee.clock_out"
	TriggerInventoryLow     EventType = "inventory.low"
	TriggerCreditOverdue    EventType = "credit.overdue"
	TriggerManual           EventType = "manual"
	TriggerSchedule         EventType = "schedule"
)

var triggerTypes = map[EventType]struct{}{
	TriggerSaleCreated:      {},
	TriggerSaleCompleted:    {},
	TriggerSaleVoided:       {},
	TriggerProductCreated:   {},
	TriggerProductUpdated:   {},
	TriggerProductLowStock:  {},
	TriggerCustomerCreated:  {},
	TriggerCustomerVIP:      {},
	TriggerEmployeeClockIn:  {},
	TriggerEmployeeClockOut: {},
	TriggerInventoryLow:     {},
	TriggerCreditOverdue:    {},
	TriggerManual:           {},
	TriggerSchedule:         {},
}

// Valid reports whether t is one of the enumerated trigger event types.
func (t EventType) Valid() bool {
	_, ok := triggerTypes[t]

	return ok
}

var (
	ErrInvalidTriggerType = errors.New("invalid trigger type")
	ErrInvalidOperator    = errors.New("invalid condition operator")
	ErrEmptyConditionPath = errors.New("condition field path is required")
)

// Trigger describes what fires a workflow: the event type, the AND-combined
// payload conditions, and, for schedule triggers only, the schedule record.
type Trigger struct {
	Type       EventType   `json:"type"`
	Conditions []Condition `json:"conditions,omitempty"`
	Schedule   *Schedule   `json:"schedule,omitempty"`
}

// Operator is the closed ten-operator comparison algebra. No aliases.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpGreaterThan    Operator = "greater_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessThan       Operator = "less_than"
	OpLessOrEqual    Operator = "less_or_equal"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
)

var operators = map[Operator]struct{}{
	OpEquals:         {},
	OpNotEquals:      {},
	OpGreaterThan:    {},
	OpGreaterOrEqual: {},
	OpLessThan:       {},
	OpLessOrEqual:    {},
	OpContains:       {},
	OpNotContains:    {},
	OpIn:             {},
	OpNotIn:          {},
}

// Valid reports whether o is one of the enumerated operators.
func (o Operator) Valid() bool {
	_, ok := operators[o]

	return ok
}

// Condition compares the value at a dotted path of the trigger payload
// against a constant. Conditions on a trigger are AND-combined.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

func (c Condition) Validate() error {
	if c.Field == "" {
		return ErrEmptyConditionPath
	}

	if !c.Operator.Valid() {
		return ErrInvalidOperator
	}

	return nil
}
