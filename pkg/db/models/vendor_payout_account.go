package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VendorPayoutAccount is the vendor's registered bank account for settlements.
type VendorPayoutAccount struct {
	VendorID      uuid.UUID `gorm:"column:vendor_id;type:uuid;primaryKey"`
	AccountHolder string    `gorm:"column:account_holder;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	IFSC          string    `gorm:"column:ifsc;not null"`
	BankName      string    `gorm:"column:bank_name;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Snapshot masks the account number for storage on a settlement.
func (a VendorPayoutAccount) Snapshot() *BankDetails {
	masked := a.AccountNumber
	if len(masked) > 4 {
		masked = strings.Repeat("X", len(masked)-4) + masked[len(masked)-4:]
	}
	return &BankDetails{
		AccountHolder:       a.AccountHolder,
		AccountNumberMasked: masked,
		IFSC:                a.IFSC,
		BankName:            a.BankName,
	}
}
