package models

import "time"

// TransactionType tags what caused a ledger row.
type TransactionType string

const (
	TxContribution      TransactionType = "contribution"
	TxPayout            TransactionType = "payout"
	TxPenalty           TransactionType = "penalty"
	TxGuaranteeSeizure  TransactionType = "guarantee_seizure"
	TxSavingsDeposit    TransactionType = "savings_deposit"
	TxServiceFee        TransactionType = "service_fee"
	TxOverpaymentCredit TransactionType = "overpayment_credit"
	TxLoanDisbursement  TransactionType = "loan_disbursement"
	TxLoanRepayment     TransactionType = "loan_repayment"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxContribution, TxPayout, TxPenalty, TxGuaranteeSeizure, TxSavingsDeposit,
		TxServiceFee, TxOverpaymentCredit, TxLoanDisbursement, TxLoanRepayment:
		return true
	}
	return false
}

// AccountKind distinguishes the balances a ledger row can move.
type AccountKind string

const (
	// AccountWallet is a user's spendable balance.
	AccountWallet AccountKind = "wallet"
	// AccountSavings is a user's savings account.
	AccountSavings AccountKind = "savings"
	// AccountPool is a cycle's payout pool. Owner is the pool account name.
	AccountPool AccountKind = "pool"
	// AccountTreasury is a chama's own money: service fees and penalties in,
	// loans out, repayments and seizures back in. Owner is the chama ID.
	AccountTreasury AccountKind = "treasury"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountWallet, AccountSavings, AccountPool, AccountTreasury:
		return true
	}
	return false
}

// WalletTransaction is one append-only ledger row. Amount is signed:
// positive credits the account, negative debits it.
//
// A row may name a counter account. The counter account moves by the
// opposite amount, so a transfer between two accounts is a single row.
// Rows without a counter account record money entering or leaving the
// system (an external payment arriving, for example).
type WalletTransaction struct {
	ID string

	// Owner is the user ID for wallet and savings accounts, the pool name for
	// pools and the chama ID for treasuries.
	Owner   string
	Account AccountKind

	CounterOwner   string
	CounterAccount AccountKind

	Type   TransactionType
	Amount int64

	// ReferenceID is the ID of the entity that caused the posting.
	ReferenceID string

	Description string
	CreatedAt   time.Time
}

// HasCounter reports whether the row is a transfer between two accounts.
func (t *WalletTransaction) HasCounter() bool {
	return t.CounterOwner != ""
}

// Reversed returns the row as seen from its counter account.
func (t *WalletTransaction) Reversed() *WalletTransaction {
	r := *t
	r.Owner, r.CounterOwner = t.CounterOwner, t.Owner
	r.Account, r.CounterAccount = t.CounterAccount, t.Account
	r.Amount = -t.Amount
	return &r
}
