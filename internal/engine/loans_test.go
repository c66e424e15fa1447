package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/models"
)

func TestRequestLoanCapacity(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	chama := f.chama("alice", "bob", "carol", "dan")
	f.seedSavings("carol", 4000)

	_, err := f.engine.Loans.RequestLoan(f.ctx, "bob", chama.ID, 5000, []Pledge{{GuarantorID: "carol"}})
	require.ErrorIs(t, err, ErrCapacity)

	f.seedSavings("carol", 1500)
	rec, err := f.engine.Loans.RequestLoan(f.ctx, "bob", chama.ID, 5000, []Pledge{{GuarantorID: "carol"}})
	require.NoError(t, err)
	require.Equal(t, models.LoanPending, rec.Loan.Status)
	require.Len(t, rec.Guarantees, 1)
	require.Equal(t, int64(5000), rec.Guarantees[0].Amount)

	capacity, err := f.engine.Loans.CheckCapacity(f.ctx, "carol", "carol")
	require.NoError(t, err)
	require.Equal(t, Capacity{Savings: 5500, Exposure: 5000, Available: 500}, capacity)

	_, err = f.engine.Loans.RequestLoan(f.ctx, "dan", chama.ID, 1000, []Pledge{{GuarantorID: "carol"}})
	require.ErrorIs(t, err, ErrCapacity)
	_, err = f.engine.Loans.RequestLoan(f.ctx, "dan", chama.ID, 500, []Pledge{{GuarantorID: "carol"}})
	require.NoError(t, err)

	// Rejecting a loan frees its guarantors.
	_, err = f.engine.Loans.RejectLoan(f.ctx, "alice", rec.Loan.ID)
	require.NoError(t, err)
	capacity, err = f.engine.Loans.CheckCapacity(f.ctx, "alice", "carol")
	require.NoError(t, err)
	require.Equal(t, int64(5000), capacity.Available)
}

func TestJointGuarantorsEachCoverWholeLoan(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	chama := f.chama("alice", "bob", "carol", "dan")
	f.seedSavings("carol", 3000)
	f.seedSavings("dan", 3000)

	_, err := f.engine.Loans.RequestLoan(f.ctx, "bob", chama.ID, 5000,
		[]Pledge{{GuarantorID: "carol"}, {GuarantorID: "dan"}})
	require.ErrorIs(t, err, ErrCapacity)

	rec, err := f.engine.Loans.RequestLoan(f.ctx, "bob", chama.ID, 3000,
		[]Pledge{{GuarantorID: "carol"}, {GuarantorID: "dan"}})
	require.NoError(t, err)
	require.Equal(t, int64(1500), rec.Guarantees[0].Amount)
	f.seedTreasury(chama.ID, 3000)

	for _, user := range []string{"carol", "dan"} {
		capacity, err := f.engine.Loans.CheckCapacity(f.ctx, user, user)
		require.NoError(t, err)
		require.Equal(t, Capacity{Savings: 3000, Exposure: 3000, Available: 0}, capacity)
	}

	// Neither guarantor can back anything else until the loan is paid down.
	_, err = f.engine.Loans.RequestLoan(f.ctx, "alice", chama.ID, 1, []Pledge{{GuarantorID: "carol"}})
	require.ErrorIs(t, err, ErrCapacity)

	_, err = f.engine.Loans.ApproveLoan(f.ctx, "alice", rec.Loan.ID)
	require.NoError(t, err)
	_, err = f.engine.Loans.RecordRepayment(f.ctx, "bob", rec.Loan.ID, 1000)
	require.NoError(t, err)

	capacity, err := f.engine.Loans.CheckCapacity(f.ctx, "dan", "dan")
	require.NoError(t, err)
	require.Equal(t, int64(2000), capacity.Exposure)
	_, err = f.engine.Loans.RequestLoan(f.ctx, "alice", chama.ID, 1000, []Pledge{{GuarantorID: "dan"}})
	require.NoError(t, err)
}

func TestRequestLoanValidation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	chama := f.chama("alice", "bob", "carol")
	f.seedSavings("carol", 10000)

	tests := []struct {
		name    string
		actor   string
		amount  int64
		pledges []Pledge
		wantErr error
	}{
		{name: "no guarantors", actor: "bob", amount: 100, wantErr: ErrValidation},
		{name: "zero amount", actor: "bob", amount: 0, pledges: []Pledge{{GuarantorID: "carol"}}, wantErr: ErrValidation},
		{name: "self guarantee", actor: "bob", amount: 100, pledges: []Pledge{{GuarantorID: "bob"}}, wantErr: ErrValidation},
		{name: "stranger guarantor", actor: "bob", amount: 100, pledges: []Pledge{{GuarantorID: "zed"}}, wantErr: ErrValidation},
		{name: "pledges short", actor: "bob", amount: 100, pledges: []Pledge{{GuarantorID: "carol", Amount: 60}}, wantErr: ErrValidation},
		{name: "duplicate guarantor", actor: "bob", amount: 100,
			pledges: []Pledge{{GuarantorID: "carol", Amount: 50}, {GuarantorID: "carol", Amount: 50}}, wantErr: ErrValidation},
		{name: "borrower outside chama", actor: "zed", amount: 100, pledges: []Pledge{{GuarantorID: "carol"}}, wantErr: ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Loans.RequestLoan(f.ctx, tt.actor, chama.ID, tt.amount, tt.pledges)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoanLifecycle(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	chama := f.chama("alice", "bob", "carol", "dan", "erin")
	f.seedSavings("carol", 1500)
	f.seedSavings("dan", 1500)
	f.seedSavings("erin", 1500)
	f.seedTreasury(chama.ID, 1000)

	rec, err := f.engine.Loans.RequestLoan(f.ctx, "bob", chama.ID, 1001,
		[]Pledge{{GuarantorID: "carol"}, {GuarantorID: "dan"}})
	require.NoError(t, err)
	require.Equal(t, int64(501), rec.Guarantees[0].Amount)
	require.Equal(t, int64(500), rec.Guarantees[1].Amount)
	loanID := rec.Loan.ID

	require.NoError(t, f.engine.Loans.RemoveGuarantor(f.ctx, "bob", loanID, "dan"))
	_, err = f.engine.Loans.ApproveLoan(f.ctx, "alice", loanID)
	require.ErrorIs(t, err, ErrCapacity)

	_, err = f.engine.Loans.AddGuarantor(f.ctx, "bob", loanID, Pledge{GuarantorID: "erin", Amount: 500})
	require.NoError(t, err)

	_, err = f.engine.Loans.ApproveLoan(f.ctx, "bob", loanID)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.engine.Loans.ApproveLoan(f.ctx, "alice", loanID)
	require.ErrorIs(t, err, ErrTreasuryShort)
	got, err := f.engine.Loans.GetLoan(f.ctx, "bob", loanID)
	require.NoError(t, err)
	require.Equal(t, models.LoanPending, got.Loan.Status)
	require.Equal(t, int64(0), f.wallet("bob"))

	f.seedTreasury(chama.ID, 1)
	loan, err := f.engine.Loans.ApproveLoan(f.ctx, "alice", loanID)
	require.NoError(t, err)
	require.Equal(t, models.LoanApproved, loan.Status)
	require.Equal(t, int64(1001), f.wallet("bob"))

	_, err = f.engine.Loans.AddGuarantor(f.ctx, "bob", loanID, Pledge{GuarantorID: "dan", Amount: 100})
	require.ErrorIs(t, err, ErrStateConflict)
	require.ErrorIs(t, f.engine.Loans.RemoveGuarantor(f.ctx, "bob", loanID, "erin"), ErrStateConflict)

	loan, err = f.engine.Loans.RecordRepayment(f.ctx, "bob", loanID, 600)
	require.NoError(t, err)
	require.Equal(t, int64(401), loan.Remaining())

	capacity, err := f.engine.Loans.CheckCapacity(f.ctx, "erin", "erin")
	require.NoError(t, err)
	require.Equal(t, Capacity{Savings: 1500, Exposure: 401, Available: 1099}, capacity)

	_, err = f.engine.Loans.RecordRepayment(f.ctx, "bob", loanID, 402)
	require.ErrorIs(t, err, ErrValidation)

	loan, err = f.engine.Loans.RecordRepayment(f.ctx, "bob", loanID, 401)
	require.NoError(t, err)
	require.Equal(t, models.LoanRepaid, loan.Status)
	require.Equal(t, int64(0), f.wallet("bob"))

	treasury, err := f.engine.TreasuryBalance(f.ctx, "alice", chama.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1001), treasury)

	capacity, err = f.engine.Loans.CheckCapacity(f.ctx, "erin", "erin")
	require.NoError(t, err)
	require.Equal(t, int64(0), capacity.Exposure)

	f.events.Wait()
	require.Equal(t, 1, f.recorder.Count(events.LoanApproved))
}

func TestMarkDefaultedSeizesProRata(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	chama := f.chama("alice", "bob", "carol", "dan")
	f.seedSavings("carol", 5000)
	f.seedSavings("dan", 3000)
	f.seedTreasury(chama.ID, 3000)

	rec, err := f.engine.Loans.RequestLoan(f.ctx, "bob", chama.ID, 3000, []Pledge{
		{GuarantorID: "carol", Amount: 2000},
		{GuarantorID: "dan", Amount: 1000},
	})
	require.NoError(t, err)
	loanID := rec.Loan.ID
	_, err = f.engine.Loans.ApproveLoan(f.ctx, "alice", loanID)
	require.NoError(t, err)
	_, err = f.engine.Loans.RecordRepayment(f.ctx, "bob", loanID, 600)
	require.NoError(t, err)

	// Dan's savings drop below his share before the default.
	require.NoError(t, f.engine.ledger.Savings("dan").Seize(f.ctx, ledgerTreasury(chama.ID), 2500, "other-loan"))

	_, err = f.engine.Loans.MarkDefaulted(f.ctx, "bob", loanID)
	require.ErrorIs(t, err, ErrUnauthorized)

	rec, err = f.engine.Loans.MarkDefaulted(f.ctx, "alice", loanID)
	require.NoError(t, err)
	require.Equal(t, models.LoanDefaulted, rec.Loan.Status)
	require.Equal(t, int64(2400), rec.Loan.AmountRecovered)
	require.Equal(t, int64(0), rec.Loan.Remaining())

	seized := map[string]int64{}
	for _, g := range rec.Guarantees {
		seized[g.GuarantorID] = g.Seized
	}
	require.Equal(t, int64(1900), seized["carol"])
	require.Equal(t, int64(500), seized["dan"])
	require.Equal(t, int64(3100), f.savings("carol"))
	require.Equal(t, int64(0), f.savings("dan"))

	n, err := f.store.CountTransactionsByReference(f.ctx, loanID, models.TxGuaranteeSeizure)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = f.engine.Loans.MarkDefaulted(f.ctx, "alice", loanID)
	require.ErrorIs(t, err, ErrStateConflict)

	got, err := f.engine.Loans.GetLoan(f.ctx, "carol", loanID)
	require.NoError(t, err)
	require.Equal(t, int64(2400), got.Guarantees[0].Seized+got.Guarantees[1].Seized)

	f.events.Wait()
	require.Equal(t, 1, f.recorder.Count(events.LoanDefaulted))
}

func TestMarkDefaultedLeavesShortfallOutstanding(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	chama := f.chama("alice", "bob", "carol")
	f.seedSavings("carol", 1000)
	f.seedTreasury(chama.ID, 1000)

	rec, err := f.engine.Loans.RequestLoan(f.ctx, "bob", chama.ID, 1000, []Pledge{{GuarantorID: "carol"}})
	require.NoError(t, err)
	_, err = f.engine.Loans.ApproveLoan(f.ctx, "alice", rec.Loan.ID)
	require.NoError(t, err)
	require.NoError(t, f.engine.ledger.Savings("carol").Seize(f.ctx, ledgerTreasury(chama.ID), 700, "other-loan"))

	rec, err = f.engine.Loans.MarkDefaulted(f.ctx, "alice", rec.Loan.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), rec.Loan.AmountRecovered)
	require.Equal(t, int64(700), rec.Loan.Remaining())
	require.Equal(t, int64(0), f.savings("carol"))
}
