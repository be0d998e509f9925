package models

import "time"

// Evaluation is the parent resource tags are attached to. Only the fields the
// tag lifecycle depends on are modelled here.
type Evaluation struct {
	ID        uint
	Version   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvaluationTag is a key/value annotation owned by an Evaluation.
type EvaluationTag struct {
	ID           uint
	Key          string
	Value        string
	EvaluationID uint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
