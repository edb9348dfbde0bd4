package models

import (
	"encoding/json"
	"errors"
)

type BudgetStatus string

const (
	BudgetStatusDraft    BudgetStatus = "draft"
	BudgetStatusActive   BudgetStatus = "active"
	BudgetStatusArchived BudgetStatus = "archived"
)

func (s BudgetStatus) IsValid() bool {
	switch s {
	case BudgetStatusDraft, BudgetStatusActive, BudgetStatusArchived:
		return true
	}
	return false
}

// convert input to enum type
func (s *BudgetStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("budget status must be string")
	}
	v := BudgetStatus(str)
	if !v.IsValid() {
		return errors.New("invalid budget status")
	}
	*s = v
	return nil
}

type AssignmentStatus string

const (
	AssignmentStatusActive   AssignmentStatus = "active"
	AssignmentStatusInactive AssignmentStatus = "inactive"
)

func (s AssignmentStatus) IsValid() bool {
	return s == AssignmentStatusActive || s == AssignmentStatusInactive
}

func (s *AssignmentStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("assignment status must be string")
	}
	v := AssignmentStatus(str)
	if !v.IsValid() {
		return errors.New("invalid assignment status")
	}
	*s = v
	return nil
}
