package models

import "github.com/mmdatafocus/shopify_budget/utils"

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

func (c BudgetCategoryMaster) GetId() int {
	return c.ID
}

// a deleted category still resolves, with an empty name
func (c BudgetCategoryMaster) GetDefault(id int) Data {
	return BudgetCategoryMaster{
		ID:       id,
		IsActive: utils.NewFalse(),
	}
}
