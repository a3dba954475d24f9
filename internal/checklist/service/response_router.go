package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"github.com/bitfantasy/equipcheck/internal/shared/whatsapp"
	"go.uber.org/zap"
)

// ErrDuplicateDelivery the gateway redelivered a webhook already processed
var ErrDuplicateDelivery = errors.New("duplicate webhook delivery")

// ResponderIdentity how a response names its manager and checklist
type ResponderIdentity interface {
	Source() string
	resolve(ctx context.Context, r *ResponseRouter) (*entity.Manager, string, error)
}

// WebIdentity an authenticated dashboard session answering a known checklist
type WebIdentity struct {
	ManagerID   string
	ChecklistID string
}

func (WebIdentity) Source() string { return entity.ResponseSourceWeb }

func (w WebIdentity) resolve(ctx context.Context, r *ResponseRouter) (*entity.Manager, string, error) {
	m, err := r.managers.FindByID(ctx, w.ManagerID)
	if err != nil {
		return nil, "", err
	}
	return m, w.ChecklistID, nil
}

// WhatsAppIdentity a gateway reply carrying only the sender phone. The target is
// the manager's most recent pending approval.
type WhatsAppIdentity struct {
	PhoneNumber string
}

func (WhatsAppIdentity) Source() string { return entity.ResponseSourceWhatsApp }

func (w WhatsAppIdentity) resolve(ctx context.Context, r *ResponseRouter) (*entity.Manager, string, error) {
	m, err := r.managers.FindByPhone(ctx, w.PhoneNumber)
	if err != nil {
		return nil, "", err
	}

	rec, err := r.approvals.FindLatestPendingForManager(ctx, m.ID)
	if err == nil {
		return m, rec.ChecklistID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", persistenceError("find pending approval", err)
	}

	// nothing open: a reply to a checklist someone else decided recently still
	// reaches the engine so the manager learns who decided it
	since := r.now().Add(-r.lateWindow)
	rec, err = r.approvals.FindLatestSupersededForManager(ctx, m.ID, since)
	if err == nil {
		return m, rec.ChecklistID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", persistenceError("find superseded approval", err)
	}
	return m, "", ErrNoPendingApproval
}

// WebResponse dashboard approval payload
type WebResponse struct {
	ChecklistID     string `json:"checklistId" binding:"required"`
	ManagerID       string `json:"managerId"`
	Approved        *bool  `json:"approved" binding:"required"`
	ResponseMessage string `json:"responseMessage"`
}

// WhatsAppResponse normalised gateway reply
type WhatsAppResponse struct {
	PhoneNumber string
	Approved    bool
	Timestamp   *time.Time
}

// ResponseRouter turns channel-specific responses into engine decisions
type ResponseRouter struct {
	managers   *ManagerDirectory
	approvals  *repository.ApprovalRepository
	engine     *ApprovalService
	dispatcher *Dispatcher
	guard      DeliveryGuard
	lateWindow time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewResponseRouter creates the router. guard may be nil.
func NewResponseRouter(managers *ManagerDirectory, approvals *repository.ApprovalRepository, engine *ApprovalService,
	dispatcher *Dispatcher, guard DeliveryGuard, lateWindow time.Duration, logger *zap.Logger) *ResponseRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lateWindow <= 0 {
		lateWindow = 24 * time.Hour
	}
	return &ResponseRouter{
		managers:   managers,
		approvals:  approvals,
		engine:     engine,
		dispatcher: dispatcher,
		guard:      guard,
		lateWindow: lateWindow,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessWebResponse handles a dashboard decision
func (r *ResponseRouter) ProcessWebResponse(ctx context.Context, req WebResponse) (*Resolution, error) {
	if req.Approved == nil {
		return nil, fmt.Errorf("%w: approved is required", ErrInvalidInput)
	}
	id := WebIdentity{ManagerID: req.ManagerID, ChecklistID: req.ChecklistID}
	return r.Route(ctx, id, *req.Approved, req.ResponseMessage, time.Time{})
}

// ProcessWhatsAppResponse handles a gateway reply. Redeliveries of the same
// reply are dropped with ErrDuplicateDelivery. A delivery that fails with
// ErrPersistence is forgotten so the gateway retry is processed again.
func (r *ResponseRouter) ProcessWhatsAppResponse(ctx context.Context, req WhatsAppResponse) (*Resolution, error) {
	key, dup := r.claimDelivery(ctx, req)
	if dup {
		return nil, ErrDuplicateDelivery
	}

	var at time.Time
	if req.Timestamp != nil && !req.Timestamp.After(r.now()) {
		at = *req.Timestamp
	}
	res, err := r.Route(ctx, WhatsAppIdentity{PhoneNumber: req.PhoneNumber}, req.Approved, "", at)
	if err != nil && key != "" && errors.Is(err, ErrPersistence) {
		if ferr := r.guard.Forget(ctx, key); ferr != nil {
			r.logger.Warn("Webhook dedupe key not released", zap.String("key", key), zap.Error(ferr))
		}
	}
	return res, err
}

// Route resolves the identity and submits the decision. A response that lost
// the race triggers a late-response notice to its manager.
func (r *ResponseRouter) Route(ctx context.Context, id ResponderIdentity, approved bool, message string, at time.Time) (*Resolution, error) {
	manager, checklistID, err := id.resolve(ctx, r)
	if err != nil {
		r.logger.Info("Response not routed", zap.String("source", id.Source()), zap.Error(err))
		return nil, err
	}

	res, err := r.engine.Resolve(ctx, Decision{
		ChecklistID:     checklistID,
		Manager:         manager,
		Approved:        approved,
		ResponseMessage: message,
		Source:          id.Source(),
		RespondedAt:     at,
	})
	if err != nil {
		var are *AlreadyResolvedError
		if errors.As(err, &are) {
			r.notifyLate(ctx, manager, are)
		}
		return nil, err
	}
	return res, nil
}

func (r *ResponseRouter) notifyLate(ctx context.Context, manager *entity.Manager, are *AlreadyResolvedError) {
	if are.ResolverID == manager.ID {
		// repeat answer from the resolver itself
		return
	}
	report := r.dispatcher.NotifyLateResponse(ctx, manager.Phone, are.ChecklistCode, are.ResolverName, are.Approved, are.Source)
	if report.Failed > 0 {
		r.logger.Warn("Late-response notice not delivered",
			zap.String("checklist", are.ChecklistCode), zap.String("manager_id", manager.ID))
	}
}

// claimDelivery records the reply in the guard. key is empty when nothing was
// claimed; dup reports a redelivery.
func (r *ResponseRouter) claimDelivery(ctx context.Context, req WhatsAppResponse) (key string, dup bool) {
	if r.guard == nil || req.Timestamp == nil {
		return "", false
	}
	key = whatsapp.NormalizePhone(req.PhoneNumber) + ":" +
		strconv.FormatInt(req.Timestamp.UnixMilli(), 10) + ":" + strconv.FormatBool(req.Approved)
	first, err := r.guard.FirstDelivery(ctx, key)
	if err != nil {
		// guard unavailable: process and let the engine reject true duplicates
		r.logger.Warn("Webhook dedupe unavailable", zap.Error(err))
		return "", false
	}
	if !first {
		return "", true
	}
	return key, false
}
