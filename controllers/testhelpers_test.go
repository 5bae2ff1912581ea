package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/tests/testutil"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := testutil.OpenTestDB(t)
	config.SetDB(db)
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing.
// It sets up the context exactly as the real EnsureValidToken middleware
// does; LoadCurrentUser then resolves the local user from the database.
func mockAuthMiddleware(auth0ID, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)

		mockClaims := &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{
				Subject: auth0ID,
			},
			CustomClaims: &middleware.CustomClaims{},
		}
		c.Set("validated_claims", mockClaims)

		c.Next()
	}
}

// authChain is the standard middleware stack in front of a handler under test
func authChain(auth0ID string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mockAuthMiddleware(auth0ID, "mock-token"),
		middleware.LoadCurrentUser(),
	}
}

// doJSON performs a JSON request against the router and decodes the
// envelope response
func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Response is not valid JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, response
}

// errorCode extracts the machine code from an error envelope
func errorCode(response map[string]interface{}) string {
	errData, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errData["code"].(string)
	return code
}

// seedUsers creates the three standard actors used by controller tests
func seedUsers(t *testing.T, db *gorm.DB) (client, manager, admin *models.User) {
	t.Helper()

	client = testutil.CreateTestUser(t, db, "auth0|client1", "Alice Martin", "alice@example.com", models.RoleClient)
	manager = testutil.CreateTestUser(t, db, "auth0|manager1", "Bob Garage", "bob@example.com", models.RoleManager)
	admin = testutil.CreateTestUser(t, db, "auth0|admin1", "Ada Admin", "ada@example.com", models.RoleAdmin)
	return client, manager, admin
}
