package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/ledger"
	"github.com/aminofabian/ichama-sub002/internal/metrics"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage/sqlite"
)

var (
	cycleStart = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	testNow    = time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *sqlite.SQLiteStore
	engine   *Engine
	recorder *events.Recorder
	events   *events.Dispatcher
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "ichama-engine-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rec := &events.Recorder{}
	m := metrics.New(nil)
	d := events.NewDispatcher(rec, time.Second, m.ObserveEvent)
	e, err := New(store, policy,
		WithClock(func() time.Time { return testNow }),
		WithEvents(d),
		WithMetrics(m),
	)
	require.NoError(t, err)

	return &fixture{t: t, ctx: context.Background(), store: store, engine: e, recorder: rec, events: d, metrics: m}
}

// chama creates a chama administered by the first user, with the rest as
// members.
func (f *fixture) chama(users ...string) *models.Chama {
	f.t.Helper()
	chama, err := f.engine.CreateChama(f.ctx, users[0], "Wednesday Circle", "merry-go-round", false)
	require.NoError(f.t, err)
	for _, u := range users[1:] {
		_, err := f.engine.AddMember(f.ctx, users[0], chama.ID, u, models.RoleMember)
		require.NoError(f.t, err)
	}
	return chama
}

// activeCycle creates and starts a weekly 1000 cycle split 873/97/30.
func (f *fixture) activeCycle(users ...string) *models.Cycle {
	f.t.Helper()
	chama := f.chama(users...)
	cycle, err := f.engine.Cycles.CreateCycle(f.ctx, users[0], chama.ID, Terms{
		ContributionAmount: 1000,
		Frequency:          models.FrequencyWeekly,
		StartDate:          cycleStart,
		ServiceFeeRate:     decimal.RequireFromString("0.03"),
		SavingsRate:        decimal.RequireFromString("0.10"),
	})
	require.NoError(f.t, err)
	cycle, err = f.engine.Cycles.StartCycle(f.ctx, users[0], cycle.ID)
	require.NoError(f.t, err)
	return cycle
}

func (f *fixture) contributions(cycle *models.Cycle, period int) map[string]*models.Contribution {
	f.t.Helper()
	list, err := f.engine.Contributions.ListContributions(f.ctx, SchedulerActor, cycle.ID, period)
	require.NoError(f.t, err)
	byUser := make(map[string]*models.Contribution, len(list))
	for _, c := range list {
		byUser[c.UserID] = c
	}
	return byUser
}

func (f *fixture) payout(cycle *models.Cycle, period int) *models.Payout {
	f.t.Helper()
	p, err := f.store.GetPayoutByPeriod(f.ctx, cycle.ID, period)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) payAndConfirm(admin string, c *models.Contribution, amount int64) {
	f.t.Helper()
	_, err := f.engine.Contributions.RecordPayment(f.ctx, c.UserID, c.ID, amount, time.Time{})
	require.NoError(f.t, err)
	_, err = f.engine.Contributions.ConfirmContribution(f.ctx, admin, c.ID)
	require.NoError(f.t, err)
}

func (f *fixture) wallet(userID string) int64 {
	f.t.Helper()
	b, err := f.engine.WalletBalance(f.ctx, userID, userID)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) savings(userID string) int64 {
	f.t.Helper()
	b, err := f.engine.SavingsBalance(f.ctx, userID, userID)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) seedSavings(userID string, amount int64) {
	f.t.Helper()
	require.NoError(f.t, ledger.New(f.store, nil).Savings(userID).Deposit(f.ctx, amount, "seed"))
}

func (f *fixture) seedTreasury(chamaID string, amount int64) {
	f.t.Helper()
	require.NoError(f.t, ledger.New(f.store, nil).Credit(f.ctx, ledger.Treasury(chamaID), models.TxServiceFee, amount, "seed", "seed"))
}

func TestNewRejectsWeakQuorum(t *testing.T) {
	policy := DefaultPolicy()
	policy.Quorum = decimal.RequireFromString("0.5")
	_, err := New(nil, policy)
	require.ErrorIs(t, err, ErrValidation)
}

func TestFullPeriod(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob", "carol")

	require.Equal(t, int64(873), cycle.PayoutAmount)
	require.Equal(t, int64(97), cycle.SavingsAmount)
	require.Equal(t, int64(30), cycle.ServiceFee)
	require.Equal(t, 1, cycle.PeriodNumber)

	period := f.contributions(cycle, 1)
	require.Len(t, period, 3)
	for _, u := range []string{"alice", "bob", "carol"} {
		f.payAndConfirm("alice", period[u], 1000)
	}

	pool, err := f.engine.PoolBalance(f.ctx, "alice", cycle.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3*873), pool)

	p := f.payout(cycle, 1)
	require.Equal(t, "alice", p.UserID)
	released, err := f.engine.Payouts.ReleasePayout(f.ctx, "alice", p.ID)
	require.NoError(t, err)
	require.Equal(t, models.PayoutPaid, released.Status)

	require.Equal(t, int64(873), f.wallet("alice"))
	require.Equal(t, int64(0), f.wallet("bob"))
	for _, u := range []string{"alice", "bob", "carol"} {
		require.Equal(t, int64(97), f.savings(u))
	}
	pool, err = f.engine.PoolBalance(f.ctx, "alice", cycle.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2*873), pool)
	treasury, err := f.engine.TreasuryBalance(f.ctx, "bob", cycle.ChamaID)
	require.NoError(t, err)
	require.Equal(t, int64(90), treasury)

	_, err = f.engine.Payouts.ReleasePayout(f.ctx, "alice", p.ID)
	require.ErrorIs(t, err, ErrAlreadyPaid)
	require.Equal(t, int64(873), f.wallet("alice"))

	advanced, err := f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
	require.NoError(t, err)
	require.Equal(t, 2, advanced.PeriodNumber)
	require.Equal(t, "bob", f.payout(cycle, 2).UserID)
	require.Len(t, f.contributions(cycle, 2), 3)

	f.events.Wait()
	require.Equal(t, 3, f.recorder.Count(events.ContributionConfirmed))
	require.Equal(t, 1, f.recorder.Count(events.PayoutReleased))
}

func TestReleaseRequiresQuorum(t *testing.T) {
	tests := []struct {
		name      string
		quorum    string
		confirmed int
		wantErr   error
	}{
		{name: "all required, two of three", quorum: "1", confirmed: 2, wantErr: ErrQuorumNotMet},
		{name: "all required, three of three", quorum: "1", confirmed: 3},
		{name: "two thirds, two of three", quorum: "0.66", confirmed: 2},
		{name: "two thirds, one of three", quorum: "0.66", confirmed: 1, wantErr: ErrQuorumNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.Quorum = decimal.RequireFromString(tt.quorum)
			f := newFixture(t, policy)
			cycle := f.activeCycle("alice", "bob", "carol")

			period := f.contributions(cycle, 1)
			for _, u := range []string{"alice", "bob", "carol"}[:tt.confirmed] {
				f.payAndConfirm("alice", period[u], 1000)
			}

			_, err := f.engine.Payouts.ReleasePayout(f.ctx, SchedulerActor, f.payout(cycle, 1).ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, ErrStateConflict)
				require.Equal(t, int64(0), f.wallet("alice"))
				return
			}
			require.NoError(t, err)
			require.Equal(t, int64(873), f.wallet("alice"))
		})
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	c := f.contributions(cycle, 1)["bob"]

	f.payAndConfirm("alice", c, 1000)
	_, err := f.engine.Contributions.ConfirmContribution(f.ctx, "alice", c.ID)
	require.ErrorIs(t, err, ErrAlreadyConfirmed)

	n, err := f.store.CountTransactionsByReference(f.ctx, c.ID, models.TxContribution)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, int64(97), f.savings("bob"))

	_, err = f.engine.Contributions.RecordPayment(f.ctx, "bob", c.ID, 10, time.Time{})
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConcurrentConfirm(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	c := f.contributions(cycle, 1)["bob"]
	_, err := f.engine.Contributions.RecordPayment(f.ctx, "bob", c.ID, 1000, time.Time{})
	require.NoError(t, err)

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := f.engine.Contributions.ConfirmContribution(f.ctx, "alice", c.ID)
			errs <- err
		}()
	}
	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyConfirmed)
	}
	require.Equal(t, 1, succeeded)

	n, err := f.store.CountTransactionsByReference(f.ctx, c.ID, models.TxSavingsDeposit)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestAdvanceSerializesWithConfirmations(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob", "carol")
	period := f.contributions(cycle, 1)
	f.payAndConfirm("alice", period["alice"], 1000)
	f.payAndConfirm("alice", period["bob"], 1000)
	last := period["carol"]

	const advancers = 6
	confirmed := make(chan error, 1)
	advanced := make(chan error, advancers)
	go func() {
		if _, err := f.engine.Contributions.RecordPayment(f.ctx, "carol", last.ID, 1000, time.Time{}); err != nil {
			confirmed <- err
			return
		}
		_, err := f.engine.Contributions.ConfirmContribution(f.ctx, "alice", last.ID)
		confirmed <- err
	}()
	for i := 0; i < advancers; i++ {
		go func() {
			_, err := f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
			advanced <- err
		}()
	}

	require.NoError(t, <-confirmed)
	succeeded := 0
	for i := 0; i < advancers; i++ {
		err := <-advanced
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrPeriodNotClosed)
	}
	require.LessOrEqual(t, succeeded, 1)

	current, err := f.store.GetCycle(f.ctx, cycle.ID)
	require.NoError(t, err)
	if succeeded == 0 {
		require.Equal(t, 1, current.PeriodNumber)
		require.Empty(t, f.contributions(cycle, 2))
		current, err = f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
		require.NoError(t, err)
	}
	require.Equal(t, 2, current.PeriodNumber)

	// The closed period is fully confirmed and only one period is open.
	for _, c := range f.contributions(cycle, 1) {
		require.Equal(t, models.ContributionConfirmed, c.Status)
	}
	require.Len(t, f.contributions(cycle, 2), 3)
	require.Empty(t, f.contributions(cycle, 3))
}

func TestConfirmPostsOneRowPerType(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	c := f.contributions(cycle, 1)["bob"]
	f.payAndConfirm("alice", c, 1200)

	for txType, want := range map[models.TransactionType]int{
		models.TxContribution:      1,
		models.TxSavingsDeposit:    1,
		models.TxServiceFee:        1,
		models.TxOverpaymentCredit: 1,
		models.TxPayout:            0,
	} {
		n, err := f.store.CountTransactionsByReference(f.ctx, c.ID, txType)
		require.NoError(t, err)
		require.Equal(t, want, n, "rows of type %s", txType)
	}
	require.Equal(t, int64(200), f.wallet("bob"))
}

func TestConcurrentRelease(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	for _, c := range f.contributions(cycle, 1) {
		f.payAndConfirm("alice", c, 1000)
	}
	p := f.payout(cycle, 1)

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := f.engine.Payouts.ReleasePayout(f.ctx, "alice", p.ID)
			errs <- err
		}()
	}
	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyPaid)
	}
	require.Equal(t, 1, succeeded)

	n, err := f.store.CountTransactionsByReference(f.ctx, p.ID, models.TxPayout)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, int64(873), f.wallet(p.UserID))
}

func TestConfirmRequiresAdminAndPayment(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	c := f.contributions(cycle, 1)["bob"]

	_, err := f.engine.Contributions.ConfirmContribution(f.ctx, "alice", c.ID)
	require.ErrorIs(t, err, ErrStateConflict)

	_, err = f.engine.Contributions.RecordPayment(f.ctx, "bob", c.ID, 1000, time.Time{})
	require.NoError(t, err)
	_, err = f.engine.Contributions.ConfirmContribution(f.ctx, "bob", c.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.engine.Contributions.RecordPayment(f.ctx, "mallory", c.ID, 1000, time.Time{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestOverpaymentCreditedToWallet(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	c := f.contributions(cycle, 1)["bob"]

	_, err := f.engine.Contributions.RecordPayment(f.ctx, "bob", c.ID, 700, time.Time{})
	require.NoError(t, err)
	got, err := f.engine.Contributions.RecordPayment(f.ctx, "bob", c.ID, 500, time.Time{})
	require.NoError(t, err)
	require.Equal(t, models.ContributionPaid, got.Status)
	require.Equal(t, int64(1200), got.AmountPaid)

	_, err = f.engine.Contributions.ConfirmContribution(f.ctx, "alice", c.ID)
	require.NoError(t, err)
	require.Equal(t, int64(200), f.wallet("bob"))
}

func TestAdvanceRequiresClosedPeriod(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	period := f.contributions(cycle, 1)

	f.payAndConfirm("alice", period["alice"], 1000)
	_, err := f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
	require.ErrorIs(t, err, ErrPeriodNotClosed)

	_, err = f.engine.Cycles.AdvancePeriod(f.ctx, "bob", cycle.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	f.payAndConfirm("alice", period["bob"], 1000)
	advanced, err := f.engine.Cycles.AdvancePeriod(f.ctx, SchedulerActor, cycle.ID)
	require.NoError(t, err)
	require.Equal(t, 2, advanced.PeriodNumber)
	require.Equal(t, models.PayoutPending, f.payout(cycle, 1).Status)
}

func TestCycleCompletes(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")

	for _, period := range []int{1, 2} {
		for _, c := range f.contributions(cycle, period) {
			f.payAndConfirm("alice", c, 1000)
		}
		_, err := f.engine.Payouts.ReleasePayout(f.ctx, "alice", f.payout(cycle, period).ID)
		require.NoError(t, err)
		cycle, err = f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
		require.NoError(t, err)
	}

	require.Equal(t, models.CycleCompleted, cycle.Status)
	require.NotNil(t, cycle.CompletedAt)
	require.Equal(t, int64(873), f.wallet("alice"))
	require.Equal(t, int64(873), f.wallet("bob"))
	require.Equal(t, int64(2*97), f.savings("bob"))

	// Each period pays out one member's share and the rest stays pooled.
	pool, err := f.engine.PoolBalance(f.ctx, "alice", cycle.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2*2*873-2*873), pool)

	_, err = f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
	require.ErrorIs(t, err, ErrCycleNotActive)

	f.events.Wait()
	require.Equal(t, 1, f.recorder.Count(events.CycleCompleted))
}

func TestCreateCycleValidation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	solo := f.chama("alice")
	pair := f.chama("dana", "erin")

	tests := []struct {
		name    string
		actor   string
		chamaID string
		terms   Terms
		wantErr error
	}{
		{
			name:    "single member",
			actor:   "alice",
			chamaID: solo.ID,
			terms:   Terms{ContributionAmount: 1000, Frequency: models.FrequencyWeekly, StartDate: cycleStart},
			wantErr: ErrValidation,
		},
		{
			name:    "split does not add up",
			actor:   "dana",
			chamaID: pair.ID,
			terms: Terms{ContributionAmount: 1000, Frequency: models.FrequencyWeekly, StartDate: cycleStart,
				PayoutAmount: 900, SavingsAmount: 97, ServiceFee: 30},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown frequency",
			actor:   "dana",
			chamaID: pair.ID,
			terms:   Terms{ContributionAmount: 1000, Frequency: "daily", StartDate: cycleStart},
			wantErr: ErrValidation,
		},
		{
			name:    "rotation names a stranger",
			actor:   "dana",
			chamaID: pair.ID,
			terms: Terms{ContributionAmount: 1000, Frequency: models.FrequencyWeekly, StartDate: cycleStart,
				Rotation: []string{"dana", "zed"}},
			wantErr: ErrValidation,
		},
		{
			name:    "rotation repeats a member",
			actor:   "dana",
			chamaID: pair.ID,
			terms: Terms{ContributionAmount: 1000, Frequency: models.FrequencyWeekly, StartDate: cycleStart,
				Rotation: []string{"dana", "dana"}},
			wantErr: ErrValidation,
		},
		{
			name:    "member is not admin",
			actor:   "erin",
			chamaID: pair.ID,
			terms:   Terms{ContributionAmount: 1000, Frequency: models.FrequencyWeekly, StartDate: cycleStart},
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Cycles.CreateCycle(f.ctx, tt.actor, tt.chamaID, tt.terms)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("second open cycle conflicts", func(t *testing.T) {
		terms := Terms{ContributionAmount: 1000, Frequency: models.FrequencyWeekly, StartDate: cycleStart,
			Rotation: []string{"erin", "dana"}}
		_, err := f.engine.Cycles.CreateCycle(f.ctx, "dana", pair.ID, terms)
		require.NoError(t, err)
		_, err = f.engine.Cycles.CreateCycle(f.ctx, "dana", pair.ID, terms)
		require.ErrorIs(t, err, ErrStateConflict)
	})
}

func TestCustomRotation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	chama := f.chama("alice", "bob", "carol")
	cycle, err := f.engine.Cycles.CreateCycle(f.ctx, "alice", chama.ID, Terms{
		ContributionAmount: 500,
		PayoutAmount:       450,
		SavingsAmount:      50,
		Frequency:          models.FrequencyMonthly,
		StartDate:          cycleStart,
		Rotation:           []string{"carol", "alice", "bob"},
	})
	require.NoError(t, err)

	slots, err := f.engine.Payouts.Schedule(f.ctx, "bob", cycle.ID)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	require.Equal(t, "carol", slots[0].UserID)
	require.Equal(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), slots[0].DueDate)
	require.Nil(t, slots[0].Payout)

	_, err = f.engine.Cycles.StartCycle(f.ctx, "alice", cycle.ID)
	require.NoError(t, err)
	require.Equal(t, "carol", f.payout(cycle, 1).UserID)
	require.Equal(t, int64(450), f.payout(cycle, 1).Amount)
}

func TestSweepDefaults(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob", "carol")
	period := f.contributions(cycle, 1)
	dueDate := period["bob"].DueDate

	f.payAndConfirm("alice", period["alice"], 1000)
	_, err := f.engine.Contributions.RecordPayment(f.ctx, "bob", period["bob"].ID, 600, time.Time{})
	require.NoError(t, err)

	created, err := f.engine.Defaults.SweepDefaults(f.ctx, SchedulerActor, cycle.ID, dueDate.Add(-time.Hour))
	require.NoError(t, err)
	require.Empty(t, created)

	asOf := dueDate.Add(time.Hour)
	created, err = f.engine.Defaults.SweepDefaults(f.ctx, SchedulerActor, cycle.ID, asOf)
	require.NoError(t, err)
	require.Len(t, created, 2)

	byUser := map[string]*models.Default{}
	for _, d := range created {
		byUser[d.UserID] = d
	}
	require.Equal(t, int64(400), byUser["bob"].Shortfall)
	require.Equal(t, int64(100), byUser["bob"].PenaltyAmount)
	require.Equal(t, 1, byUser["bob"].PenaltyPoints)
	require.Equal(t, int64(1000), byUser["carol"].Shortfall)

	period = f.contributions(cycle, 1)
	require.Equal(t, models.ContributionLate, period["bob"].Status)
	require.Equal(t, models.ContributionMissed, period["carol"].Status)
	require.Equal(t, models.ContributionConfirmed, period["alice"].Status)
	require.Equal(t, int64(-100), f.wallet("bob"))

	again, err := f.engine.Defaults.SweepDefaults(f.ctx, SchedulerActor, cycle.ID, asOf.Add(24*time.Hour))
	require.NoError(t, err)
	require.Empty(t, again)
	require.Equal(t, int64(-100), f.wallet("bob"))

	members, err := f.engine.ListMembers(f.ctx, "alice", cycle.ChamaID)
	require.NoError(t, err)
	for _, m := range members {
		if m.UserID == "bob" || m.UserID == "carol" {
			require.Equal(t, 1, m.PenaltyPoints, m.UserID)
		}
	}

	treasury, err := f.engine.TreasuryBalance(f.ctx, "alice", cycle.ChamaID)
	require.NoError(t, err)
	require.Equal(t, int64(30+100+100), treasury)

	// Defaults close the period.
	_, err = f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
	require.NoError(t, err)

	_, err = f.engine.Defaults.ResolveDefault(f.ctx, "alice", byUser["bob"].ID)
	require.ErrorIs(t, err, ErrStateConflict)

	f.payAndConfirm("alice", period["bob"], 400)
	resolved, err := f.engine.Defaults.ResolveDefault(f.ctx, "alice", byUser["bob"].ID)
	require.NoError(t, err)
	require.True(t, resolved.Resolved)
	require.Equal(t, "alice", resolved.ResolvedBy)
	require.Equal(t, int64(-100), f.wallet("bob"))

	_, err = f.engine.Defaults.ResolveDefault(f.ctx, "alice", byUser["bob"].ID)
	require.ErrorIs(t, err, ErrStateConflict)

	f.events.Wait()
	require.Equal(t, 2, f.recorder.Count(events.DefaultCreated))
}

func TestCancelCycleSkipsPayouts(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")

	cancelled, err := f.engine.Cycles.CancelCycle(f.ctx, "alice", cycle.ID)
	require.NoError(t, err)
	require.Equal(t, models.CycleCancelled, cancelled.Status)
	require.Equal(t, models.PayoutSkipped, f.payout(cycle, 1).Status)

	_, err = f.engine.Payouts.ReleasePayout(f.ctx, "alice", f.payout(cycle, 1).ID)
	require.ErrorIs(t, err, ErrStateConflict)

	_, err = f.engine.Cycles.CancelCycle(f.ctx, "alice", cycle.ID)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestPayoutReceipt(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	for _, c := range f.contributions(cycle, 1) {
		f.payAndConfirm("alice", c, 1000)
	}
	p := f.payout(cycle, 1)

	_, err := f.engine.Payouts.ConfirmPayoutReceipt(f.ctx, "alice", p.ID)
	require.ErrorIs(t, err, ErrStateConflict)

	_, err = f.engine.Payouts.ReleasePayout(f.ctx, "alice", p.ID)
	require.NoError(t, err)

	_, err = f.engine.Payouts.ConfirmPayoutReceipt(f.ctx, "bob", p.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	got, err := f.engine.Payouts.ConfirmPayoutReceipt(f.ctx, "alice", p.ID)
	require.NoError(t, err)
	require.True(t, got.ConfirmedByMember)
	require.Equal(t, models.PayoutConfirmed, got.Status)
}

func TestBalanceEqualsStatement(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob", "carol")
	period := f.contributions(cycle, 1)
	for _, u := range []string{"alice", "bob", "carol"} {
		f.payAndConfirm("alice", period[u], 1050)
	}
	_, err := f.engine.Payouts.ReleasePayout(f.ctx, "alice", f.payout(cycle, 1).ID)
	require.NoError(t, err)

	for _, u := range []string{"alice", "bob", "carol"} {
		for _, account := range []models.AccountKind{models.AccountWallet, models.AccountSavings} {
			rows, err := f.engine.ListTransactions(f.ctx, u, u, account)
			require.NoError(t, err)
			var sum int64
			for _, r := range rows {
				require.Equal(t, u, r.Owner)
				sum += r.Amount
			}
			balance := f.wallet(u)
			if account == models.AccountSavings {
				balance = f.savings(u)
			}
			require.Equal(t, balance, sum, "%s %s", u, account)
		}
	}
	require.Equal(t, int64(873+50), f.wallet("alice"))
}

func TestBalanceAuthorization(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.chama("alice", "bob")
	f.chama("zed")

	_, err := f.engine.WalletBalance(f.ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = f.engine.WalletBalance(f.ctx, "bob", "alice")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.engine.SavingsBalance(f.ctx, "zed", "bob")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestOperationMetrics(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	cycle := f.activeCycle("alice", "bob")
	_, err := f.engine.Cycles.AdvancePeriod(f.ctx, "alice", cycle.ID)
	require.ErrorIs(t, err, ErrPeriodNotClosed)

	require.Equal(t, 1.0, counterValue(t, f.metrics, "advance_period", outcomeConflict))
	require.Equal(t, 1.0, counterValue(t, f.metrics, "start_cycle", outcomeOK))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, outcomeOK},
		{ErrQuorumNotMet, outcomeConflict},
		{invalid("x"), outcomeValidation},
		{ErrUnauthorized, outcomeUnauthorized},
		{ErrCapacity, outcomeCapacity},
		{ErrNotFound, outcomeNotFound},
		{classify(models.ErrInvalidTransition), outcomeConflict},
		{context.Canceled, outcomeError},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func counterValue(t *testing.T, m *metrics.Metrics, operation, outcome string) float64 {
	t.Helper()
	return testutil.ToFloat64(m.OperationCounter(operation, outcome))
}

func ledgerTreasury(chamaID string) ledger.Account {
	return ledger.Treasury(chamaID)
}
