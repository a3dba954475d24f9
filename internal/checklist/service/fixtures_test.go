package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"github.com/bitfantasy/equipcheck/internal/checklist/service"
	"github.com/bitfantasy/equipcheck/internal/checklist/sse"
	"github.com/bitfantasy/equipcheck/internal/checklist/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMessage struct {
	Phone     string
	Message   string
	Reference string
}

// fakeSender records every send; phones listed in failFor return an error
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]bool{}}
}

func (f *fakeSender) Send(_ context.Context, phone, message, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[phone] {
		return errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, sentMessage{Phone: phone, Message: message, Reference: reference})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) phones() []string {
	var phones []string
	for _, m := range f.messages() {
		phones = append(phones, m.Phone)
	}
	return phones
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// memoryGuard DeliveryGuard backed by a map
type memoryGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (g *memoryGuard) FirstDelivery(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *memoryGuard) Forget(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}

type testEnv struct {
	db     *gorm.DB
	repos  *repository.Repositories
	sender *fakeSender
	hub    *sse.Hub
	svc    *service.Services
}

func newTestEnv(t *testing.T, guard service.DeliveryGuard) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	sender := newFakeSender()
	hub := sse.NewHub(zap.NewNop())
	svc := service.NewServices(db, repos, sender, service.Options{Guard: guard, Hub: hub}, zap.NewNop())
	return &testEnv{db: db, repos: repos, sender: sender, hub: hub, svc: svc}
}

const (
	anaPhone   = "11912345678"
	brunoPhone = "11987654321"
	caioPhone  = "11911112222"
)

// seedScenario two active managers, one employee, one available piece of equipment
// and checklist CHK_1001 for the given action
func (e *testEnv) seedScenario(t *testing.T, action string, hasIssues bool) *entity.Checklist {
	t.Helper()
	testutil.SeedManager(t, e.db, "mgr-ana", "Ana", anaPhone)
	testutil.SeedManager(t, e.db, "mgr-bruno", "Bruno", brunoPhone)
	testutil.SeedEmployee(t, e.db, "emp-1", "Carla")
	status := entity.EquipmentStatusAvailable
	if action == entity.ActionReturning {
		status = entity.EquipmentStatusInUse
	}
	testutil.SeedEquipment(t, e.db, "eq-1", "Furadeira", status)
	return testutil.SeedChecklist(t, e.db, "chk-1001", 1001, "emp-1", "eq-1", action, hasIssues)
}

func (e *testEnv) records(t *testing.T, checklistID string) map[string]entity.ApprovalRecord {
	t.Helper()
	list, err := e.repos.Approval.ListByChecklist(context.Background(), checklistID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	out := make(map[string]entity.ApprovalRecord, len(list))
	for _, r := range list {
		out[r.ManagerID] = r
	}
	return out
}

func (e *testEnv) checklist(t *testing.T, id string) *entity.Checklist {
	t.Helper()
	c, err := e.repos.Checklist.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load checklist: %v", err)
	}
	return c
}

func (e *testEnv) equipment(t *testing.T, id string) *entity.Equipment {
	t.Helper()
	eq, err := e.repos.Equipment.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load equipment: %v", err)
	}
	return eq
}

func boolPtr(b bool) *bool { return &b }
