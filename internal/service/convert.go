package service

import (
	"time"

	"github.com/aminofabian/ichama-sub002/internal/engine"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/pkg/api"
)

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixPtr(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func toChama(c *models.Chama) *api.Chama {
	return &api.Chama{
		Id:        c.ID,
		Name:      c.Name,
		Type:      c.Type,
		Private:   c.Private,
		OwnerId:   c.OwnerID,
		CreatedAt: unix(c.CreatedAt),
	}
}

func toMember(m *models.ChamaMember) *api.Member {
	return &api.Member{
		ChamaId:       m.ChamaID,
		UserId:        m.UserID,
		Role:          string(m.Role),
		PenaltyPoints: m.PenaltyPoints,
		JoinedAt:      unix(m.JoinedAt),
	}
}

func toCycle(c *models.Cycle) *api.Cycle {
	return &api.Cycle{
		Id:                 c.ID,
		ChamaId:            c.ChamaID,
		ContributionAmount: c.ContributionAmount,
		PayoutAmount:       c.PayoutAmount,
		SavingsAmount:      c.SavingsAmount,
		ServiceFee:         c.ServiceFee,
		Frequency:          string(c.Frequency),
		StartDate:          unix(c.StartDate),
		PeriodNumber:       c.PeriodNumber,
		Status:             string(c.Status),
		CreatedAt:          unix(c.CreatedAt),
		StartedAt:          unixPtr(c.StartedAt),
		CompletedAt:        unixPtr(c.CompletedAt),
	}
}

func toContribution(c *models.Contribution) *api.Contribution {
	return &api.Contribution{
		Id:           c.ID,
		CycleId:      c.CycleID,
		UserId:       c.UserID,
		PeriodNumber: c.PeriodNumber,
		AmountDue:    c.AmountDue,
		AmountPaid:   c.AmountPaid,
		DueDate:      unix(c.DueDate),
		PaidAt:       unixPtr(c.PaidAt),
		ConfirmedBy:  c.ConfirmedBy,
		ConfirmedAt:  unixPtr(c.ConfirmedAt),
		Status:       string(c.Status),
	}
}

func toContributions(list []*models.Contribution) []*api.Contribution {
	out := make([]*api.Contribution, len(list))
	for i, c := range list {
		out[i] = toContribution(c)
	}
	return out
}

func toPayout(p *models.Payout) *api.Payout {
	if p == nil {
		return nil
	}
	return &api.Payout{
		Id:                p.ID,
		CycleId:           p.CycleID,
		UserId:            p.UserID,
		PeriodNumber:      p.PeriodNumber,
		Amount:            p.Amount,
		ScheduledDate:     unix(p.ScheduledDate),
		PaidAt:            unixPtr(p.PaidAt),
		ConfirmedByMember: p.ConfirmedByMember,
		Status:            string(p.Status),
	}
}

func toSchedule(slots []engine.Slot) []*api.ScheduleSlot {
	out := make([]*api.ScheduleSlot, len(slots))
	for i, s := range slots {
		out[i] = &api.ScheduleSlot{
			Period:  s.Period,
			UserId:  s.UserID,
			DueDate: unix(s.DueDate),
			Payout:  toPayout(s.Payout),
		}
	}
	return out
}

func toDefault(d *models.Default) *api.Default {
	return &api.Default{
		Id:             d.ID,
		CycleId:        d.CycleID,
		UserId:         d.UserID,
		ContributionId: d.ContributionID,
		PeriodNumber:   d.PeriodNumber,
		Shortfall:      d.Shortfall,
		PenaltyAmount:  d.PenaltyAmount,
		PenaltyPoints:  d.PenaltyPoints,
		Resolved:       d.Resolved,
		ResolvedBy:     d.ResolvedBy,
		CreatedAt:      unix(d.CreatedAt),
	}
}

func toDefaults(list []*models.Default) []*api.Default {
	out := make([]*api.Default, len(list))
	for i, d := range list {
		out[i] = toDefault(d)
	}
	return out
}

func toLoan(l *models.Loan, guarantees []*models.Guarantee) *api.Loan {
	out := &api.Loan{
		Id:              l.ID,
		ChamaId:         l.ChamaID,
		BorrowerId:      l.BorrowerID,
		Amount:          l.Amount,
		AmountPaid:      l.AmountPaid,
		AmountRecovered: l.AmountRecovered,
		Remaining:       l.Remaining(),
		Status:          string(l.Status),
		ApprovedBy:      l.ApprovedBy,
		CreatedAt:       unix(l.CreatedAt),
	}
	for _, g := range guarantees {
		out.Guarantees = append(out.Guarantees, &api.Guarantee{
			Id:          g.ID,
			GuarantorId: g.GuarantorID,
			Amount:      g.Amount,
			Seized:      g.Seized,
		})
	}
	return out
}

func toTransaction(tx *models.WalletTransaction) *api.Transaction {
	out := &api.Transaction{
		Id:          tx.ID,
		Account:     string(tx.Account),
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		ReferenceId: tx.ReferenceID,
		Description: tx.Description,
		CreatedAt:   unix(tx.CreatedAt),
	}
	if tx.HasCounter() {
		out.Counterparty = string(tx.CounterAccount) + ":" + tx.CounterOwner
	}
	return out
}
