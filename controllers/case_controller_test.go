package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/tests/testutil"
)

func TestCreateCase(t *testing.T) {
	db := setupTestDB(t)
	client, manager, _ := seedUsers(t, db)
	vehicle := testutil.CreateTestVehicle(t, db, client.ID)

	otherClient := testutil.CreateTestUser(t, db, "auth0|client2", "Chloe Petit", "chloe@example.com", models.RoleClient)

	tests := []struct {
		name           string
		auth0ID        string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
	}{
		{
			name:    "client declares a problem on their vehicle",
			auth0ID: client.Auth0ID,
			requestBody: map[string]interface{}{
				"vehicle_id":  vehicle.ID,
				"description": "Strange noise at low speed",
				"urgency":     "high",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:    "manager cannot declare a case",
			auth0ID: manager.Auth0ID,
			requestBody: map[string]interface{}{
				"vehicle_id":  vehicle.ID,
				"description": "Strange noise",
			},
			expectedStatus: http.StatusForbidden,
			expectedError:  "PERMISSION_DENIED",
		},
		{
			name:    "another client cannot use someone else's vehicle",
			auth0ID: otherClient.Auth0ID,
			requestBody: map[string]interface{}{
				"vehicle_id":  vehicle.ID,
				"description": "Strange noise",
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "NOT_FOUND",
		},
		{
			name:    "missing description",
			auth0ID: client.Auth0ID,
			requestBody: map[string]interface{}{
				"vehicle_id": vehicle.ID,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:    "invalid urgency value",
			auth0ID: client.Auth0ID,
			requestBody: map[string]interface{}{
				"vehicle_id":  vehicle.ID,
				"description": "Strange noise",
				"urgency":     "immediately",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			handlers := append(authChain(tt.auth0ID), CreateCase)
			router.POST("/cases", handlers...)

			w, response := doJSON(t, router, http.MethodPost, "/cases", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedError, errorCode(response))
				return
			}

			assert.True(t, response["success"].(bool))
			data := response["data"].(map[string]interface{})
			assert.Equal(t, "new", data["status"])
			assert.Equal(t, "high", data["urgency"])
			assert.Equal(t, float64(client.ID), data["client_id"])
		})
	}
}

func TestCreateCase_DefaultUrgency(t *testing.T) {
	db := setupTestDB(t)
	client, _, _ := seedUsers(t, db)
	vehicle := testutil.CreateTestVehicle(t, db, client.ID)

	router := setupTestRouter()
	handlers := append(authChain(client.Auth0ID), CreateCase)
	router.POST("/cases", handlers...)

	w, response := doJSON(t, router, http.MethodPost, "/cases", map[string]interface{}{
		"vehicle_id":  vehicle.ID,
		"description": "Routine checkup",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "normal", data["urgency"])
}

func TestListCases_RoleScoping(t *testing.T) {
	db := setupTestDB(t)
	client, manager, _ := seedUsers(t, db)
	otherClient := testutil.CreateTestUser(t, db, "auth0|client2", "Chloe Petit", "chloe@example.com", models.RoleClient)

	vehicle1 := testutil.CreateTestVehicle(t, db, client.ID)
	plate := "EF-456-GH"
	vehicle2 := models.Vehicle{OwnerID: otherClient.ID, Brand: "Peugeot", Model: "208", Year: 2020, PlateNumber: &plate}
	assert.NoError(t, db.Create(&vehicle2).Error)

	cases := []models.Case{
		{ClientID: client.ID, VehicleID: vehicle1.ID, Description: "Case A", Urgency: "normal", Status: models.StatusNew},
		{ClientID: client.ID, VehicleID: vehicle1.ID, Description: "Case B", Urgency: "normal", Status: models.StatusInProgress},
		{ClientID: otherClient.ID, VehicleID: vehicle2.ID, Description: "Case C", Urgency: "normal", Status: models.StatusNew},
	}
	for i := range cases {
		assert.NoError(t, db.Create(&cases[i]).Error)
	}

	t.Run("client sees only their cases", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(client.Auth0ID), ListCases)
		router.GET("/cases", handlers...)

		w, response := doJSON(t, router, http.MethodGet, "/cases", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, response["data"].([]interface{}), 2)
	})

	t.Run("manager sees all cases", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(manager.Auth0ID), ListCases)
		router.GET("/cases", handlers...)

		w, response := doJSON(t, router, http.MethodGet, "/cases", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, response["data"].([]interface{}), 3)
	})

	t.Run("status filter applies", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(manager.Auth0ID), ListCases)
		router.GET("/cases", handlers...)

		w, response := doJSON(t, router, http.MethodGet, "/cases?status=in_progress", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		data := response["data"].([]interface{})
		assert.Len(t, data, 1)
		assert.Equal(t, "Case B", data[0].(map[string]interface{})["description"])
	})
}

func TestGetCase_OwnershipAndTimeline(t *testing.T) {
	db := setupTestDB(t)
	client, _, _ := seedUsers(t, db)
	otherClient := testutil.CreateTestUser(t, db, "auth0|client2", "Chloe Petit", "chloe@example.com", models.RoleClient)
	vehicle := testutil.CreateTestVehicle(t, db, client.ID)

	repair := models.Case{ClientID: client.ID, VehicleID: vehicle.ID, Description: "Case A", Urgency: "normal", Status: models.StatusNew}
	assert.NoError(t, db.Create(&repair).Error)

	t.Run("owner gets case with timeline", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(client.Auth0ID), GetCase)
		router.GET("/cases/:id", handlers...)

		w, response := doJSON(t, router, http.MethodGet, fmt.Sprintf("/cases/%d", repair.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		data := response["data"].(map[string]interface{})
		assert.NotNil(t, data["case"])
		assert.NotNil(t, data["timeline"])
	})

	t.Run("another client is refused", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(otherClient.Auth0ID), GetCase)
		router.GET("/cases/:id", handlers...)

		w, response := doJSON(t, router, http.MethodGet, fmt.Sprintf("/cases/%d", repair.ID), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "PERMISSION_DENIED", errorCode(response))
	})

	t.Run("unknown case is 404", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(client.Auth0ID), GetCase)
		router.GET("/cases/:id", handlers...)

		w, _ := doJSON(t, router, http.MethodGet, "/cases/9999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSelectFaults(t *testing.T) {
	db := setupTestDB(t)
	client, _, _ := seedUsers(t, db)
	vehicle := testutil.CreateTestVehicle(t, db, client.ID)
	fault := testutil.CreateTestFault(t, db, "Brake pads replacement", 2, 30)

	inactive := models.Fault{GroupID: fault.GroupID, Name: "Retired repair", LaborHours: 1, IsActive: false}
	assert.NoError(t, db.Create(&inactive).Error)

	repair := models.Case{ClientID: client.ID, VehicleID: vehicle.ID, Description: "Squealing", Urgency: "normal", Status: models.StatusNew}
	assert.NoError(t, db.Create(&repair).Error)

	router := setupTestRouter()
	handlers := append(authChain(client.Auth0ID), SelectFaults)
	router.PUT("/cases/:id/faults", handlers...)

	t.Run("valid selection", func(t *testing.T) {
		w, response := doJSON(t, router, http.MethodPut, fmt.Sprintf("/cases/%d/faults", repair.ID),
			map[string]interface{}{"fault_ids": []uint{fault.ID}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, response["data"].([]interface{}), 1)
	})

	t.Run("inactive fault rejected", func(t *testing.T) {
		w, response := doJSON(t, router, http.MethodPut, fmt.Sprintf("/cases/%d/faults", repair.ID),
			map[string]interface{}{"fault_ids": []uint{inactive.ID}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_SELECTION", errorCode(response))
	})

	t.Run("empty selection rejected", func(t *testing.T) {
		w, response := doJSON(t, router, http.MethodPut, fmt.Sprintf("/cases/%d/faults", repair.ID),
			map[string]interface{}{"fault_ids": []uint{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
	})

	t.Run("locked once the case left new", func(t *testing.T) {
		assert.NoError(t, db.Model(&repair).Update("status", models.StatusQuoteIssued).Error)

		w, response := doJSON(t, router, http.MethodPut, fmt.Sprintf("/cases/%d/faults", repair.ID),
			map[string]interface{}{"fault_ids": []uint{fault.ID}})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "PRECONDITION_NOT_MET", errorCode(response))
	})
}

func TestAdvanceStatus_StaffOnly(t *testing.T) {
	db := setupTestDB(t)
	client, manager, _ := seedUsers(t, db)
	vehicle := testutil.CreateTestVehicle(t, db, client.ID)

	repair := models.Case{ClientID: client.ID, VehicleID: vehicle.ID, Description: "Case A", Urgency: "normal", Status: models.StatusInProgress}
	assert.NoError(t, db.Create(&repair).Error)

	t.Run("client cannot drive the workflow", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(client.Auth0ID), AdvanceStatus)
		router.POST("/cases/:id/status", handlers...)

		w, response := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%d/status", repair.ID),
			map[string]interface{}{"status": "ready"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "PERMISSION_DENIED", errorCode(response))
	})

	t.Run("manager advances a legal edge", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(manager.Auth0ID), AdvanceStatus)
		router.POST("/cases/:id/status", handlers...)

		w, response := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%d/status", repair.ID),
			map[string]interface{}{"status": "ready", "comment": "repairs done"})
		assert.Equal(t, http.StatusOK, w.Code)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "ready", data["status"])
	})

	t.Run("illegal edge is a conflict", func(t *testing.T) {
		router := setupTestRouter()
		handlers := append(authChain(manager.Auth0ID), AdvanceStatus)
		router.POST("/cases/:id/status", handlers...)

		w, response := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%d/status", repair.ID),
			map[string]interface{}{"status": "new"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(response))
	})
}
