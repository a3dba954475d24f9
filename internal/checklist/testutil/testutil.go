package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/equipcheck/internal/checklist/entity"
	"github.com/bitfantasy/equipcheck/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret     = "equipcheck-jwt-test-secret"
	WebhookSecret = "equipcheck-webhook-test-secret"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB opens an isolated in-memory sqlite database with every table migrated.
// A single connection serialises transactions the way row locks do on postgres.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(entity.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT for testing
func GenerateTestToken(userID, name, managerID string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        userID,
		"uid":        userID,
		"name":       name,
		"manager_id": managerID,
		"roles":      roles,
		"iss":        "equipcheck",
		"iat":        now.Unix(),
		"exp":        now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken token for an admin test user
func DefaultTestToken() string {
	return GenerateTestToken("test-admin-001", "Test Admin", "", []string{"admin"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedManager creates an active manager
func SeedManager(t *testing.T, db *gorm.DB, id, name, phone string) *entity.Manager {
	t.Helper()
	m := &entity.Manager{
		ID:        id,
		Name:      name,
		Phone:     phone,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("Failed to seed manager: %v", err)
	}
	return m
}

// SeedInactiveManager creates a manager with active=false
func SeedInactiveManager(t *testing.T, db *gorm.DB, id, name, phone string) *entity.Manager {
	t.Helper()
	m := SeedManager(t, db, id, name, phone)
	if err := db.Model(m).Update("active", false).Error; err != nil {
		t.Fatalf("Failed to deactivate manager: %v", err)
	}
	m.Active = false
	return m
}

// SeedEmployee creates an employee
func SeedEmployee(t *testing.T, db *gorm.DB, id, name string) *entity.Employee {
	t.Helper()
	e := &entity.Employee{ID: id, Name: name, Active: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("Failed to seed employee: %v", err)
	}
	return e
}

// SeedEquipment creates equipment with the given status
func SeedEquipment(t *testing.T, db *gorm.DB, id, name, status string) *entity.Equipment {
	t.Helper()
	eq := &entity.Equipment{ID: id, Code: "EQ-" + id, Name: name, Status: status, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.Create(eq).Error; err != nil {
		t.Fatalf("Failed to seed equipment: %v", err)
	}
	return eq
}

// SeedChecklist creates a pending checklist numbered number (code CHK_<number>)
func SeedChecklist(t *testing.T, db *gorm.DB, id string, number int, employeeID, equipmentID, action string, hasIssues bool) *entity.Checklist {
	t.Helper()
	c := &entity.Checklist{
		ID:          id,
		Number:      number,
		Code:        fmt.Sprintf("CHK_%d", number),
		EmployeeID:  employeeID,
		EquipmentID: equipmentID,
		Action:      action,
		HasIssues:   hasIssues,
		Status:      entity.ChecklistStatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to seed checklist: %v", err)
	}
	return c
}
