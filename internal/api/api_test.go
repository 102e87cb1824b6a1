package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/reclaim-app/reclaim/internal/claim"
	"github.com/reclaim-app/reclaim/internal/db"
	"github.com/reclaim-app/reclaim/internal/model"
	"github.com/reclaim-app/reclaim/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	engine := claim.NewEngine(database)
	router := NewRouter(database, testJWTSecret, engine)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", "", string(hash), model.RoleAdmin)

	return server, loginAs(t, server, "admin", "password")
}

func loginAs(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

func registerUser(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password1",
	})
	resp, err := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d", resp.StatusCode)
	}
	return loginAs(t, server, username, "password1")
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, target any) int {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if target != nil {
		json.NewDecoder(resp.Body).Decode(target)
	}
	return resp.StatusCode
}

func TestRegisterAndLogin(t *testing.T) {
	server, _ := setupTestServer(t)

	registerUser(t, server, "ana")

	// Duplicate username.
	body, _ := json.Marshal(map[string]string{"username": "ana", "password": "password1"})
	resp, _ := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Too short password.
	body, _ = json.Marshal(map[string]string{"username": "bob", "password": "short"})
	resp, _ = http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Wrong password on login.
	body, _ = json.Marshal(map[string]string{"username": "ana", "password": "wrong-pass"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestClaimFlow(t *testing.T) {
	server, adminToken := setupTestServer(t)
	finderToken := registerUser(t, server, "finder")
	claimantToken := registerUser(t, server, "claimant")

	// Finder reports a found item with questions.
	req, _ := authRequest("POST", server.URL+"/api/items", finderToken, map[string]any{
		"report_type": "found",
		"name":        "Backpack",
		"category":    "bags",
		"location":    "library",
		"occurred_on": "2026-08-01",
		"questions": []map[string]string{
			{"question": "What color is it?", "answer": "Red"},
			{"question": "What is inside?", "answer": "A physics textbook"},
		},
	})
	var item model.Item
	if status := doJSON(t, req, &item); status != http.StatusCreated {
		t.Fatalf("expected 201 creating item, got %d", status)
	}
	if item.Status != model.StatusPending {
		t.Fatalf("expected pending item, got %s", item.Status)
	}

	// Pending items are not publicly listed.
	req, _ = authRequest("GET", server.URL+"/api/items", claimantToken, nil)
	var listed []model.Item
	doJSON(t, req, &listed)
	if len(listed) != 0 {
		t.Errorf("expected empty public listing, got %d items", len(listed))
	}

	// Admin approves.
	req, _ = authRequest("PUT", server.URL+"/api/admin/items/1/status", adminToken, map[string]string{
		"status": "approved",
	})
	if status := doJSON(t, req, nil); status != http.StatusOK {
		t.Fatalf("expected 200 approving item, got %d", status)
	}

	// Claimant sees the item and its question texts.
	req, _ = authRequest("GET", server.URL+"/api/items/1/questions", claimantToken, nil)
	var questions []model.SecurityQuestion
	doJSON(t, req, &questions)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	// Wrong answers are rejected without detail.
	req, _ = authRequest("POST", server.URL+"/api/items/1/claim", claimantToken, map[string]any{
		"answers": []map[string]any{
			{"question_id": questions[0].ID, "answer": "Blue"},
			{"question_id": questions[1].ID, "answer": "A physics textbook"},
		},
	})
	var errResp map[string]string
	if status := doJSON(t, req, &errResp); status != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong answers, got %d", status)
	}

	// Correct answers claim the item.
	req, _ = authRequest("POST", server.URL+"/api/items/1/claim", claimantToken, map[string]any{
		"answers": []map[string]any{
			{"question_id": questions[0].ID, "answer": "Red"},
			{"question_id": questions[1].ID, "answer": "A physics textbook"},
		},
	})
	var claimResp struct {
		Claimed   bool   `json:"claimed"`
		Reference string `json:"reference"`
	}
	if status := doJSON(t, req, &claimResp); status != http.StatusOK {
		t.Fatalf("expected 200 for correct answers, got %d", status)
	}
	if !claimResp.Claimed || claimResp.Reference == "" {
		t.Fatalf("expected claimed receipt, got %+v", claimResp)
	}

	// A second claim hits the claimed status.
	req, _ = authRequest("POST", server.URL+"/api/items/1/claim", finderToken, map[string]any{
		"answers": []map[string]any{
			{"question_id": questions[0].ID, "answer": "Red"},
			{"question_id": questions[1].ID, "answer": "A physics textbook"},
		},
	})
	if status := doJSON(t, req, nil); status != http.StatusConflict {
		t.Errorf("expected 409 for second claim, got %d", status)
	}

	// Claimant sees the item in their claim history.
	req, _ = authRequest("GET", server.URL+"/api/claims/mine", claimantToken, nil)
	var mine []model.Item
	doJSON(t, req, &mine)
	if len(mine) != 1 || mine[0].ID != 1 {
		t.Errorf("expected claimed item in history, got %+v", mine)
	}

	// Admin sees the full attempt trail.
	req, _ = authRequest("GET", server.URL+"/api/admin/claims?item=1", adminToken, nil)
	var trail []model.ClaimRecord
	doJSON(t, req, &trail)
	if len(trail) != 2 {
		t.Errorf("expected 2 audit rows, got %d", len(trail))
	}
}

func TestFoundReportNeedsQuestions(t *testing.T) {
	server, _ := setupTestServer(t)
	token := registerUser(t, server, "finder")

	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"report_type": "found",
		"name":        "Umbrella",
		"occurred_on": "2026-08-01",
	})
	if status := doJSON(t, req, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for found report without questions, got %d", status)
	}

	// Lost reports need no questions.
	req, _ = authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"report_type": "lost",
		"name":        "Umbrella",
		"occurred_on": "2026-08-01",
	})
	if status := doJSON(t, req, nil); status != http.StatusCreated {
		t.Errorf("expected 201 for lost report, got %d", status)
	}
}

func TestItemEditOnlyWhilePending(t *testing.T) {
	server, adminToken := setupTestServer(t)
	token := registerUser(t, server, "reporter")

	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"report_type": "lost",
		"name":        "Wallet",
		"occurred_on": "2026-08-01",
	})
	var item model.Item
	if status := doJSON(t, req, &item); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	// Editable while pending.
	req, _ = authRequest("PUT", server.URL+"/api/items/1", token, map[string]any{
		"report_type": "lost",
		"name":        "Brown wallet",
		"occurred_on": "2026-08-01",
	})
	if status := doJSON(t, req, nil); status != http.StatusOK {
		t.Fatalf("expected 200 editing pending item, got %d", status)
	}

	req, _ = authRequest("PUT", server.URL+"/api/admin/items/1/status", adminToken, map[string]string{
		"status": "approved",
	})
	if status := doJSON(t, req, nil); status != http.StatusOK {
		t.Fatalf("expected 200 approving item, got %d", status)
	}

	// Frozen after moderation.
	req, _ = authRequest("PUT", server.URL+"/api/items/1", token, map[string]any{
		"report_type": "lost",
		"name":        "Black wallet",
		"occurred_on": "2026-08-01",
	})
	if status := doJSON(t, req, nil); status != http.StatusConflict {
		t.Errorf("expected 409 editing approved item, got %d", status)
	}
}

func TestModerationRules(t *testing.T) {
	server, adminToken := setupTestServer(t)
	token := registerUser(t, server, "finder")

	// A found item stripped of its questions cannot be approved.
	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"report_type": "found",
		"name":        "Keys",
		"occurred_on": "2026-08-01",
		"questions": []map[string]string{
			{"question": "How many keys?", "answer": "Three"},
		},
	})
	if status := doJSON(t, req, nil); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	req, _ = authRequest("GET", server.URL+"/api/items/1/questions", token, nil)
	var questions []model.SecurityQuestion
	doJSON(t, req, &questions)

	req, _ = authRequest("DELETE", server.URL+"/api/items/1/questions/"+strconv.FormatInt(questions[0].ID, 10), token, nil)
	if status := doJSON(t, req, nil); status != http.StatusOK {
		t.Fatalf("expected 200 removing question, got %d", status)
	}

	req, _ = authRequest("PUT", server.URL+"/api/admin/items/1/status", adminToken, map[string]string{
		"status": "approved",
	})
	if status := doJSON(t, req, nil); status != http.StatusConflict {
		t.Errorf("expected 409 approving found item without questions, got %d", status)
	}

	// Invalid transition.
	req, _ = authRequest("PUT", server.URL+"/api/admin/items/1/status", adminToken, map[string]string{
		"status": "resolved",
	})
	if status := doJSON(t, req, nil); status != http.StatusConflict {
		t.Errorf("expected 409 for pending to resolved, got %d", status)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, _ := setupTestServer(t)
	userToken := registerUser(t, server, "user1")

	// Regular user should not access user management.
	req, _ := authRequest("GET", server.URL+"/api/users", userToken, nil)
	if status := doJSON(t, req, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", status)
	}

	// Or the moderation queue.
	req, _ = authRequest("GET", server.URL+"/api/admin/items", userToken, nil)
	if status := doJSON(t, req, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing moderation queue, got %d", status)
	}
}

func TestRevokedToken(t *testing.T) {
	server, _ := setupTestServer(t)
	token := registerUser(t, server, "ana")

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	if status := doJSON(t, req, nil); status != http.StatusOK {
		t.Fatalf("expected 200 for logout, got %d", status)
	}

	// The token no longer works.
	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	if status := doJSON(t, req, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", status)
	}
}

func TestDisabledUserRejected(t *testing.T) {
	server, adminToken := setupTestServer(t)
	token := registerUser(t, server, "ana")

	// Admin disables the account (registered user got id 2).
	req, _ := authRequest("PUT", server.URL+"/api/users/2/active", adminToken, map[string]bool{
		"active": false,
	})
	if status := doJSON(t, req, nil); status != http.StatusOK {
		t.Fatalf("expected 200 disabling user, got %d", status)
	}

	// Existing token stops working.
	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	if status := doJSON(t, req, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for disabled user, got %d", status)
	}

	// Fresh login is refused too.
	body, _ := json.Marshal(map[string]string{"username": "ana", "password": "password1"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 login for disabled user, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
