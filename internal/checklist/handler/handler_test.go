package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/checklist/repository"
	"github.com/bitfantasy/equipcheck/internal/checklist/service"
	"github.com/bitfantasy/equipcheck/internal/checklist/sse"
	"github.com/bitfantasy/equipcheck/internal/checklist/testutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingSender struct {
	mu     sync.Mutex
	phones []string
}

func (s *recordingSender) Send(_ context.Context, phone, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones = append(s.phones, phone)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.phones)
}

type handlerEnv struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *service.Services
	sender *recordingSender
}

func setupChecklistTest(t *testing.T) *handlerEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	sender := &recordingSender{}
	hub := sse.NewHub(zap.NewNop())
	svc := service.NewServices(db, repos, sender, service.Options{Hub: hub}, zap.NewNop())

	r := testutil.SetupRouter()
	RegisterRoutes(r.Group("/api/v1"), NewHandlers(svc, hub), testutil.JWTSecret, testutil.WebhookSecret)

	testutil.SeedManager(t, db, "mgr-ana", "Ana", "11912345678")
	testutil.SeedManager(t, db, "mgr-bruno", "Bruno", "11987654321")
	testutil.SeedEmployee(t, db, "emp-1", "Carla")
	testutil.SeedEquipment(t, db, "eq-1", "Furadeira", entity.EquipmentStatusAvailable)

	return &handlerEnv{router: r, db: db, svc: svc, sender: sender}
}

func managerToken(managerID, name string) string {
	return testutil.GenerateTestToken("user-"+managerID, name, managerID, []string{"manager"})
}

func (e *handlerEnv) submit(t *testing.T) string {
	t.Helper()
	w := testutil.DoRequest(e.router, "POST", "/api/v1/checklists", map[string]interface{}{
		"employee_id":  "emp-1",
		"equipment_id": "eq-1",
		"action":       "taking",
		"responses":    map[string]string{"bateria": "ok"},
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	return data["checklist"].(map[string]interface{})["id"].(string)
}

func webhookRequest(r *gin.Engine, body string, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/v1/webhooks/whatsapp/approval", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitChecklist(t *testing.T) {
	env := setupChecklistTest(t)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/checklists", map[string]interface{}{
		"employee_id":  "emp-1",
		"equipment_id": "eq-1",
		"action":       "returning",
		"has_issues":   true,
		"observations": "cabo desgastado",
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	checklist := data["checklist"].(map[string]interface{})
	if checklist["code"] != "CHK_1001" {
		t.Errorf("Expected code CHK_1001, got %v", checklist["code"])
	}
	if checklist["status"] != "pending" {
		t.Errorf("Expected status pending, got %v", checklist["status"])
	}
	fanOut := data["fan_out"].(map[string]interface{})
	if fanOut["records"].(float64) != 2 {
		t.Errorf("Expected 2 approval records, got %v", fanOut["records"])
	}
	if env.sender.count() != 2 {
		t.Errorf("Expected 2 notifications, got %d", env.sender.count())
	}
}

func TestSubmitChecklistInvalidAction(t *testing.T) {
	env := setupChecklistTest(t)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/checklists", map[string]interface{}{
		"employee_id":  "emp-1",
		"equipment_id": "eq-1",
		"action":       "borrowing",
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitChecklistRequiresAuth(t *testing.T) {
	env := setupChecklistTest(t)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/checklists", map[string]interface{}{}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}

func TestGetChecklist(t *testing.T) {
	env := setupChecklistTest(t)
	id := env.submit(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/checklists/"+id, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	records := data["approval_records"].([]interface{})
	if len(records) != 2 {
		t.Errorf("Expected 2 approval records, got %d", len(records))
	}

	w = testutil.DoRequest(env.router, "GET", "/api/v1/checklists/missing", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}

func TestRespondApproval(t *testing.T) {
	env := setupChecklistTest(t)
	id := env.submit(t)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/approvals/respond", map[string]interface{}{
		"checklistId":     id,
		"approved":        true,
		"responseMessage": "pode levar",
	}, managerToken("mgr-ana", "Ana"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["approved_by"] != "Ana" {
		t.Errorf("Expected approved_by Ana, got %v", data["approved_by"])
	}
	if data["approval_status"] != "approved" {
		t.Errorf("Expected approval_status approved, got %v", data["approval_status"])
	}

	var eq entity.Equipment
	env.db.First(&eq, "id = ?", "eq-1")
	if eq.Status != entity.EquipmentStatusInUse {
		t.Errorf("Expected equipment in_use, got %s", eq.Status)
	}
}

func TestRespondApprovalConflict(t *testing.T) {
	env := setupChecklistTest(t)
	id := env.submit(t)

	body := map[string]interface{}{"checklistId": id, "approved": false}
	w := testutil.DoRequest(env.router, "POST", "/api/v1/approvals/respond", body, managerToken("mgr-ana", "Ana"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/approvals/respond", body, managerToken("mgr-bruno", "Bruno"))
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40900 {
		t.Errorf("Expected code 40900, got %v", resp["code"])
	}
	data := resp["data"].(map[string]interface{})
	if data["resolver_name"] != "Ana" {
		t.Errorf("Expected resolver Ana, got %v", data["resolver_name"])
	}
	if data["source"] != "web" {
		t.Errorf("Expected source web, got %v", data["source"])
	}
}

func TestRespondApprovalForOtherManagerForbidden(t *testing.T) {
	env := setupChecklistTest(t)
	id := env.submit(t)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/approvals/respond", map[string]interface{}{
		"checklistId": id,
		"managerId":   "mgr-bruno",
		"approved":    true,
	}, managerToken("mgr-ana", "Ana"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRespondApprovalValidation(t *testing.T) {
	env := setupChecklistTest(t)
	id := env.submit(t)

	// approved missing
	w := testutil.DoRequest(env.router, "POST", "/api/v1/approvals/respond", map[string]interface{}{
		"checklistId": id,
	}, managerToken("mgr-ana", "Ana"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	// admin without manager binding must name the manager
	w = testutil.DoRequest(env.router, "POST", "/api/v1/approvals/respond", map[string]interface{}{
		"checklistId": id,
		"approved":    true,
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/approvals/respond", map[string]interface{}{
		"checklistId": id,
		"managerId":   "ghost",
		"approved":    true,
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}

func TestListPendingApprovals(t *testing.T) {
	env := setupChecklistTest(t)
	env.submit(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/approvals/pending", nil, managerToken("mgr-bruno", "Bruno"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total"].(float64) != 1 {
		t.Errorf("Expected 1 pending approval, got %v", data["total"])
	}

	w = testutil.DoRequest(env.router, "GET", "/api/v1/approvals/pending?manager_id=mgr-ana", nil, managerToken("mgr-bruno", "Bruno"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", w.Code)
	}

	w = testutil.DoRequest(env.router, "GET", "/api/v1/approvals/pending?manager_id=mgr-ana", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for admin, got %d", w.Code)
	}
}

func TestListManagers(t *testing.T) {
	env := setupChecklistTest(t)
	testutil.SeedInactiveManager(t, env.db, "mgr-old", "Olga", "11933334444")

	w := testutil.DoRequest(env.router, "GET", "/api/v1/managers", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("Expected 2 active managers, got %d", len(items))
	}
}

func TestRetryApprovalRequest(t *testing.T) {
	env := setupChecklistTest(t)
	id := env.submit(t)
	testutil.SeedManager(t, env.db, "mgr-caio", "Caio", "11911112222")

	w := testutil.DoRequest(env.router, "POST", "/api/v1/checklists/"+id+"/approval-requests", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["records"].(float64) != 1 {
		t.Errorf("Expected 1 new record, got %v", data["records"])
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/checklists/"+id+"/approval-requests", nil, managerToken("mgr-ana", "Ana"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-admin, got %d", w.Code)
	}
}

func TestWhatsAppWebhook(t *testing.T) {
	env := setupChecklistTest(t)
	id := env.submit(t)

	w := webhookRequest(env.router, `{"phoneNumber":"+55 11 91234-5678","approved":true,"timestamp":1760600000}`, testutil.WebhookSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["success"] != true {
		t.Fatalf("Expected success, got %v", resp)
	}
	if resp["checklist_code"] != "CHK_1001" {
		t.Errorf("Expected CHK_1001, got %v", resp["checklist_code"])
	}

	var c entity.Checklist
	env.db.First(&c, "id = ?", id)
	if c.ApprovedBy != "Ana" {
		t.Errorf("Expected approved_by Ana, got %s", c.ApprovedBy)
	}

	// Bruno replies after Ana decided
	w = webhookRequest(env.router, `{"phoneNumber":"5511987654321","message":"sim"}`, testutil.WebhookSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	if resp["success"] != false {
		t.Errorf("Expected success=false, got %v", resp["success"])
	}
	if resp["resolver_name"] != "Ana" {
		t.Errorf("Expected resolver_name Ana, got %v", resp["resolver_name"])
	}
}

func TestWhatsAppWebhookIdentityFailure(t *testing.T) {
	env := setupChecklistTest(t)
	env.submit(t)

	w := webhookRequest(env.router, `{"phoneNumber":"11955556666","approved":true}`, testutil.WebhookSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["success"] != false {
		t.Errorf("Expected success=false, got %v", resp["success"])
	}
	if _, ok := resp["checklist_code"]; ok {
		t.Errorf("Identity failure must not leak checklist details: %v", resp)
	}
}

func TestWhatsAppWebhookAuthAndValidation(t *testing.T) {
	env := setupChecklistTest(t)

	w := webhookRequest(env.router, `{"phoneNumber":"11912345678","approved":true}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", w.Code)
	}
	w = webhookRequest(env.router, `{"phoneNumber":"11912345678","approved":true}`, "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 with wrong token, got %d", w.Code)
	}
	w = webhookRequest(env.router, `{"approved":true}`, testutil.WebhookSecret)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without phone, got %d", w.Code)
	}
	w = webhookRequest(env.router, `not json`, testutil.WebhookSecret)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for malformed body, got %d", w.Code)
	}
}
