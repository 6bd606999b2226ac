// Package domain holds the record types returned by the upstream PSA.
package domain

import "time"

// Contract type and category codes as defined by the PSA.
const (
	ContractStatusActive = 1

	ContractTypeBlockHours       = 4
	ContractTypeRecurringService = 7

	ContractCategoryManagedService = 12
	ContractCategoryBlockHours     = 13
)

// Contract is a billing contract as the PSA reports it.
type Contract struct {
	ID               int64      `json:"id"`
	ClientID         int64      `json:"clientId"`
	Name             string     `json:"name"`
	Type             int        `json:"type"`
	Category         int        `json:"category"`
	Status           int        `json:"status"`
	StartDate        *time.Time `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	EstimatedHours   *float64   `json:"estimatedHours"`
	EstimatedRevenue *float64   `json:"estimatedRevenue"`
}

// Active reports whether the PSA considers the contract in force.
func (c Contract) Active() bool { return c.Status == ContractStatusActive }

// ContractBlock is a purchased, date-bounded pool of hours on one contract.
type ContractBlock struct {
	ID             int64     `json:"id"`
	ContractID     int64     `json:"contractId"`
	Hours          *float64  `json:"hours"`
	PurchasedHours *float64  `json:"purchasedHours"`
	ApprovedHours  *float64  `json:"approvedHours"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	HourlyRate     *float64  `json:"hourlyRate"`
	UnitPrice      *float64  `json:"unitPrice"`
	Status         int       `json:"status"`
}

// ContractServiceItem is a recurring billable service line on a contract.
// Every price field may be independently null upstream.
type ContractServiceItem struct {
	ID                int64    `json:"id"`
	ContractID        int64    `json:"contractId"`
	UnitPrice         *float64 `json:"unitPrice"`
	AdjustedPrice     *float64 `json:"adjustedPrice"`
	AdjustedUnitPrice *float64 `json:"adjustedUnitPrice"`
	Units             *float64 `json:"units"`
	ExtendedPrice     *float64 `json:"extendedPrice"`
}

// ContractServiceUnit is a period-bounded service unit with a price,
// used for discount-contract lookups.
type ContractServiceUnit struct {
	ID         int64     `json:"id"`
	ContractID int64     `json:"contractId"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Price      *float64  `json:"price"`
	Units      *float64  `json:"units"`
}

// TimeEntry is one unit of recorded labor against a contract.
type TimeEntry struct {
	ID          int64     `json:"id"`
	ContractID  int64     `json:"contractId"`
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	HourlyRate  float64   `json:"hourlyRate"`
	Billable    *bool     `json:"billable"`
	BillingCode *string   `json:"billingCode"`
}

// CountsAsBillable applies the client-side billability heuristic: an
// explicit flag wins, then a non-null billing code, then include.
func (e TimeEntry) CountsAsBillable() bool {
	if e.Billable != nil {
		return *e.Billable
	}
	if e.BillingCode != nil {
		return true
	}
	return true
}
