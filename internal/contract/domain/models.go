// Package domain defines contract classification for billing purposes.
package domain

import (
	psadomain "github.com/brightops/usagesync/internal/psa/domain"
)

// BillingModel is how a contract is billed (and displayed).
type BillingModel string

const (
	BillingModelBlockHours BillingModel = "block_hours"
	BillingModelUnlimited  BillingModel = "unlimited"
	BillingModelUnknown    BillingModel = "unknown"
)

// Display returns the model's reporting label.
func (m BillingModel) Display() string {
	switch m {
	case BillingModelBlockHours:
		return "Block Hours"
	case BillingModelUnlimited:
		return "Unlimited"
	default:
		return "Unknown"
	}
}

// Classification is the outcome of the type/category decision table.
// Model drives billing math; Display drives reporting. They differ only
// for the managed-service block-hours hybrid.
type Classification struct {
	Model         BillingModel
	Display       BillingModel
	UsesBlockData bool
}

const anyCode = -1

type classificationRule struct {
	category int
	typ      int
	out      Classification
}

// The decision table, applied in order. The managed-service hybrid
// (category 12, type 4: shown as Unlimited, billed as Block Hours) is a
// single visible row here, not a branch special case.
var classificationTable = []classificationRule{
	{category: psadomain.ContractCategoryManagedService, typ: psadomain.ContractTypeRecurringService,
		out: Classification{Model: BillingModelUnlimited, Display: BillingModelUnlimited}},
	{category: psadomain.ContractCategoryManagedService, typ: psadomain.ContractTypeBlockHours,
		out: Classification{Model: BillingModelBlockHours, Display: BillingModelUnlimited, UsesBlockData: true}},
	{category: psadomain.ContractCategoryBlockHours, typ: psadomain.ContractTypeBlockHours,
		out: Classification{Model: BillingModelBlockHours, Display: BillingModelBlockHours, UsesBlockData: true}},
	{category: anyCode, typ: psadomain.ContractTypeRecurringService,
		out: Classification{Model: BillingModelUnlimited, Display: BillingModelUnlimited}},
}

// Classify resolves a contract's billing model from its type and category
// codes. Combinations outside the table come back Unknown.
func Classify(category, typ int) Classification {
	for _, rule := range classificationTable {
		if rule.category != anyCode && rule.category != category {
			continue
		}
		if rule.typ != anyCode && rule.typ != typ {
			continue
		}
		return rule.out
	}
	return Classification{Model: BillingModelUnknown, Display: BillingModelUnknown}
}

// ClassifiedContract is the resolver's output: the governing contract,
// its classification, and the block-derived allocation when the model
// calls for one.
type ClassifiedContract struct {
	Contract       psadomain.Contract
	Classification Classification

	// MonthlyAllocation is nil when the contract is billed Unlimited.
	MonthlyAllocation *float64
	BlockHourlyRate   *float64
}
