package service

import (
	"context"
	"sync"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/shared/whatsapp"
	"go.uber.org/zap"
)

// Sender delivers a text message to a phone through the messaging gateway
type Sender interface {
	Send(ctx context.Context, phone, message, reference string) error
}

// DispatchReport outcome of one all-settled dispatch
type DispatchReport struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Dispatcher sends manager notifications. Every recipient is attempted; one
// failure never blocks or fails the others.
type Dispatcher struct {
	sender Sender
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil sender makes every send a logged no-op failure.
func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

type outbound struct {
	managerID string
	name      string
	phone     string
	message   string
}

// NotifyChecklistSubmission asks each manager to approve or reject the checklist
func (d *Dispatcher) NotifyChecklistSubmission(ctx context.Context, managers []entity.Manager, summary whatsapp.ChecklistSummary) DispatchReport {
	msg := whatsapp.SubmissionMessage(summary)
	return d.sendAll(ctx, "submission", summary.Code, toOutbound(managers, msg))
}

// NotifyApprovalResponse tells managers who decided the checklist
func (d *Dispatcher) NotifyApprovalResponse(ctx context.Context, managers []entity.Manager, resolverName string, summary whatsapp.ChecklistSummary, approved bool) DispatchReport {
	msg := whatsapp.ResolutionMessage(summary, resolverName, approved)
	return d.sendAll(ctx, "resolution", summary.Code, toOutbound(managers, msg))
}

// NotifyLateResponse tells a manager their answer arrived after the decision
func (d *Dispatcher) NotifyLateResponse(ctx context.Context, phone, checklistCode, resolverName string, wasApproved bool, source string) DispatchReport {
	msg := whatsapp.LateResponseMessage(checklistCode, resolverName, wasApproved, source)
	return d.sendAll(ctx, "late_response", checklistCode, []outbound{{phone: phone, message: msg}})
}

func toOutbound(managers []entity.Manager, msg string) []outbound {
	out := make([]outbound, 0, len(managers))
	for _, m := range managers {
		out = append(out, outbound{managerID: m.ID, name: m.Name, phone: m.Phone, message: msg})
	}
	return out
}

func (d *Dispatcher) sendAll(ctx context.Context, kind, code string, messages []outbound) DispatchReport {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report DispatchReport
	)

	for _, m := range messages {
		if m.phone == "" || d.sender == nil {
			d.logger.Warn("Notification skipped",
				zap.String("kind", kind), zap.String("checklist", code),
				zap.String("manager_id", m.managerID), zap.Bool("no_sender", d.sender == nil))
			report.Failed++
			continue
		}

		wg.Add(1)
		go func(m outbound) {
			defer wg.Done()
			err := d.sender.Send(ctx, m.phone, m.message, code)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				d.logger.Warn("Notification dispatch failed",
					zap.String("kind", kind), zap.String("checklist", code),
					zap.String("manager_id", m.managerID), zap.String("phone", m.phone), zap.Error(err))
				return
			}
			report.Sent++
			d.logger.Debug("Notification sent",
				zap.String("kind", kind), zap.String("checklist", code), zap.String("manager", m.name))
		}(m)
	}

	wg.Wait()
	return report
}

// summaryOf builds the message summary from a checklist with employee and equipment loaded
func summaryOf(c *entity.Checklist) whatsapp.ChecklistSummary {
	s := whatsapp.ChecklistSummary{
		Code:         c.Code,
		Action:       c.Action,
		HasIssues:    c.HasIssues,
		Observations: c.Observations,
	}
	if c.Employee != nil {
		s.EmployeeName = c.Employee.Name
	}
	if c.Equipment != nil {
		s.EquipmentName = c.Equipment.Name
	}
	return s
}
