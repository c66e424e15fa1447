package api

// Timestamps are Unix seconds; zero means unset. Amounts are integer minor
// currency units.

type Chama struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Private   bool   `json:"private"`
	OwnerId   string `json:"owner_id"`
	CreatedAt int64  `json:"created_at"`
}

type Member struct {
	ChamaId       string `json:"chama_id"`
	UserId        string `json:"user_id"`
	Role          string `json:"role"`
	PenaltyPoints int    `json:"penalty_points"`
	JoinedAt      int64  `json:"joined_at"`
}

type Cycle struct {
	Id                 string `json:"id"`
	ChamaId            string `json:"chama_id"`
	ContributionAmount int64  `json:"contribution_amount"`
	PayoutAmount       int64  `json:"payout_amount"`
	SavingsAmount      int64  `json:"savings_amount"`
	ServiceFee         int64  `json:"service_fee"`
	Frequency          string `json:"frequency"`
	StartDate          int64  `json:"start_date"`
	PeriodNumber       int    `json:"period_number"`
	Status             string `json:"status"`
	CreatedAt          int64  `json:"created_at"`
	StartedAt          int64  `json:"started_at,omitempty"`
	CompletedAt        int64  `json:"completed_at,omitempty"`
}

type CycleMember struct {
	Id      string `json:"id"`
	UserId  string `json:"user_id"`
	Ordinal int    `json:"ordinal"`
}

type Contribution struct {
	Id           string `json:"id"`
	CycleId      string `json:"cycle_id"`
	UserId       string `json:"user_id"`
	PeriodNumber int    `json:"period_number"`
	AmountDue    int64  `json:"amount_due"`
	AmountPaid   int64  `json:"amount_paid"`
	DueDate      int64  `json:"due_date"`
	PaidAt       int64  `json:"paid_at,omitempty"`
	ConfirmedBy  string `json:"confirmed_by,omitempty"`
	ConfirmedAt  int64  `json:"confirmed_at,omitempty"`
	Status       string `json:"status"`
}

type Payout struct {
	Id                string `json:"id"`
	CycleId           string `json:"cycle_id"`
	UserId            string `json:"user_id"`
	PeriodNumber      int    `json:"period_number"`
	Amount            int64  `json:"amount"`
	ScheduledDate     int64  `json:"scheduled_date"`
	PaidAt            int64  `json:"paid_at,omitempty"`
	ConfirmedByMember bool   `json:"confirmed_by_member"`
	Status            string `json:"status"`
}

type ScheduleSlot struct {
	Period  int     `json:"period"`
	UserId  string  `json:"user_id"`
	DueDate int64   `json:"due_date"`
	Payout  *Payout `json:"payout,omitempty"`
}

type Default struct {
	Id             string `json:"id"`
	CycleId        string `json:"cycle_id"`
	UserId         string `json:"user_id"`
	ContributionId string `json:"contribution_id"`
	PeriodNumber   int    `json:"period_number"`
	Shortfall      int64  `json:"shortfall"`
	PenaltyAmount  int64  `json:"penalty_amount"`
	PenaltyPoints  int    `json:"penalty_points"`
	Resolved       bool   `json:"resolved"`
	ResolvedBy     string `json:"resolved_by,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

type Loan struct {
	Id              string       `json:"id"`
	ChamaId         string       `json:"chama_id"`
	BorrowerId      string       `json:"borrower_id"`
	Amount          int64        `json:"amount"`
	AmountPaid      int64        `json:"amount_paid"`
	AmountRecovered int64        `json:"amount_recovered"`
	Remaining       int64        `json:"remaining"`
	Status          string       `json:"status"`
	ApprovedBy      string       `json:"approved_by,omitempty"`
	CreatedAt       int64        `json:"created_at"`
	Guarantees      []*Guarantee `json:"guarantees,omitempty"`
}

type Guarantee struct {
	Id          string `json:"id"`
	GuarantorId string `json:"guarantor_id"`
	Amount      int64  `json:"amount"`
	Seized      int64  `json:"seized"`
}

type Transaction struct {
	Id           string `json:"id"`
	Account      string `json:"account"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	Counterparty string `json:"counterparty,omitempty"`
	ReferenceId  string `json:"reference_id"`
	Description  string `json:"description,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// Chama service.

type CreateChamaRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Private bool   `json:"private"`
}

type CreateChamaResponse struct {
	Chama *Chama `json:"chama"`
}

type AddMemberRequest struct {
	ChamaId string `json:"chama_id"`
	UserId  string `json:"user_id"`
	Role    string `json:"role,omitempty"`
}

type AddMemberResponse struct {
	Member *Member `json:"member"`
}

type GetChamaRequest struct {
	ChamaId string `json:"chama_id"`
}

type GetChamaResponse struct {
	Chama   *Chama    `json:"chama"`
	Members []*Member `json:"members"`
}

// Cycle service.

type CreateCycleRequest struct {
	ChamaId            string   `json:"chama_id"`
	ContributionAmount int64    `json:"contribution_amount"`
	Frequency          string   `json:"frequency"`
	StartDate          int64    `json:"start_date"`
	Rotation           []string `json:"rotation,omitempty"`
	PayoutAmount       int64    `json:"payout_amount,omitempty"`
	SavingsAmount      int64    `json:"savings_amount,omitempty"`
	ServiceFee         int64    `json:"service_fee,omitempty"`

	// Rates are decimal strings such as "0.03".
	ServiceFeeRate string `json:"service_fee_rate,omitempty"`
	SavingsRate    string `json:"savings_rate,omitempty"`
}

type CycleRequest struct {
	CycleId string `json:"cycle_id"`
}

type CycleResponse struct {
	Cycle *Cycle `json:"cycle"`
}

type GetCycleResponse struct {
	Cycle    *Cycle          `json:"cycle"`
	Schedule []*ScheduleSlot `json:"schedule"`
}

type RecordPaymentRequest struct {
	ContributionId string `json:"contribution_id"`
	Amount         int64  `json:"amount"`
	PaidAt         int64  `json:"paid_at,omitempty"`
}

type ContributionRequest struct {
	ContributionId string `json:"contribution_id"`
}

type ContributionResponse struct {
	Contribution *Contribution `json:"contribution"`
}

type ListContributionsRequest struct {
	CycleId string `json:"cycle_id"`

	// PeriodNumber zero means the current period.
	PeriodNumber int `json:"period_number,omitempty"`
}

type ListContributionsResponse struct {
	Contributions []*Contribution `json:"contributions"`
}

type PayoutRequest struct {
	PayoutId string `json:"payout_id"`
}

type PayoutResponse struct {
	Payout *Payout `json:"payout"`
}

type ListPayoutsResponse struct {
	Payouts []*Payout `json:"payouts"`
}

type SweepDefaultsRequest struct {
	CycleId string `json:"cycle_id"`

	// AsOf zero means now.
	AsOf int64 `json:"as_of,omitempty"`
}

type DefaultsResponse struct {
	Defaults []*Default `json:"defaults"`
}

type ResolveDefaultRequest struct {
	DefaultId string `json:"default_id"`
}

type ResolveDefaultResponse struct {
	Default *Default `json:"default"`
}

// Loan service.

type Pledge struct {
	GuarantorId string `json:"guarantor_id"`
	Amount      int64  `json:"amount,omitempty"`
}

type RequestLoanRequest struct {
	ChamaId    string    `json:"chama_id"`
	Amount     int64     `json:"amount"`
	Guarantors []*Pledge `json:"guarantors"`
}

type LoanRequest struct {
	LoanId string `json:"loan_id"`
}

type LoanResponse struct {
	Loan *Loan `json:"loan"`
}

type GuarantorRequest struct {
	LoanId      string `json:"loan_id"`
	GuarantorId string `json:"guarantor_id"`
	Amount      int64  `json:"amount,omitempty"`
}

type RepaymentRequest struct {
	LoanId string `json:"loan_id"`
	Amount int64  `json:"amount"`
}

type CheckCapacityRequest struct {
	// UserId empty means the caller.
	UserId string `json:"user_id,omitempty"`
}

type CheckCapacityResponse struct {
	Savings   int64 `json:"savings"`
	Exposure  int64 `json:"exposure"`
	Available int64 `json:"available"`
}

// Wallet service.

type BalanceRequest struct {
	// UserId empty means the caller.
	UserId string `json:"user_id,omitempty"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

type PoolBalanceRequest struct {
	CycleId string `json:"cycle_id"`
}

type ListTransactionsRequest struct {
	UserId  string `json:"user_id,omitempty"`
	Account string `json:"account,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
	Balance      int64          `json:"balance"`
}
