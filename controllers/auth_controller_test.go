package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Kevin69007/appli-interne-cuspide-sub007/middleware"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/models"
	"github.com/Kevin69007/appli-interne-cuspide-sub007/utils"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	controller := NewAuthController(db)

	router := gin.New()
	group := router.Group("/api/v1/auth")
	group.POST("/login", controller.Login)
	group.GET("/me", middleware.AuthRequired(), controller.Me)
	return router, db
}

func seedCredentials(t *testing.T, db *gorm.DB, username, password string, active bool) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Username:       username,
		PasswordHash:   hash,
		MembershipTier: models.TierStandard,
		Active:         active,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestLoginIssuesUsableToken(t *testing.T) {
	router, db := newAuthRouter(t)
	user := seedCredentials(t, db, "alice", "correct horse", true)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"username": "alice", "password": "correct horse"})
	if rec.Code != http.StatusOK || resp.Code != 0 {
		t.Fatalf("login status = %d code = %d body = %s", rec.Code, resp.Code, rec.Body.String())
	}

	var payload struct {
		Token    string `json:"token"`
		UserID   uint   `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if payload.Token == "" || payload.UserID != user.ID {
		t.Fatalf("login payload = %+v", payload)
	}

	rec, resp = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", payload.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d body = %s", rec.Code, rec.Body.String())
	}
	var me models.User
	if err := json.Unmarshal(resp.Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Username != "alice" {
		t.Errorf("me username = %q", me.Username)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, db := newAuthRouter(t)
	seedCredentials(t, db, "bob", "hunter2", true)

	tests := []struct {
		name     string
		body     gin.H
		status   int
		respCode int
	}{
		{"wrong password", gin.H{"username": "bob", "password": "hunter3"}, http.StatusUnauthorized, 40106},
		{"unknown user", gin.H{"username": "nobody", "password": "hunter2"}, http.StatusUnauthorized, 40106},
		{"missing fields", gin.H{"username": "bob"}, http.StatusBadRequest, 40001},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", tc.body)
			if rec.Code != tc.status || resp.Code != tc.respCode {
				t.Errorf("status = %d code = %d, want %d/%d", rec.Code, resp.Code, tc.status, tc.respCode)
			}
		})
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	router, db := newAuthRouter(t)
	seedCredentials(t, db, "ghost", "boo", false)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"username": "ghost", "password": "boo"})
	if rec.Code != http.StatusForbidden || resp.Code != 40302 {
		t.Errorf("status = %d code = %d, want 403/40302", rec.Code, resp.Code)
	}
}

func TestMeRejectsGarbageToken(t *testing.T) {
	router, _ := newAuthRouter(t)
	rec, resp := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized || resp.Code != 40105 {
		t.Errorf("status = %d code = %d, want 401/40105", rec.Code, resp.Code)
	}
}
