package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/student"
	"github.com/trezcool/hafla/core/user"
	dummydb "github.com/trezcool/hafla/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                         {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}

type captureEmailService struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

func (svc *captureEmailService) SendMessage(msg *core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = append(svc.sent, *msg)
	return nil
}

type testServer struct {
	*Server
	usrSvc *user.Service
	stdSvc *student.Service
	evtSvc *event.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	mailSvc := new(captureEmailService)
	dispatcher := event.NewDispatcher(mailSvc, nopLogger{})
	t.Cleanup(dispatcher.Close)

	usrSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc, nopLogger{})
	stdSvc := student.NewService(dummydb.NewStudentRepository(db))
	evtSvc := event.NewService(dummydb.NewEventRepository(db), dispatcher, nopLogger{})

	srv := NewServer(&Options{
		Addr:           ":0",
		DisableReqLogs: true,
		Logger:         nopLogger{},
		UserSvc:        usrSvc,
		StudentSvc:     stdSvc,
		EventSvc:       evtSvc,
	})
	return &testServer{Server: srv, usrSvc: usrSvc, stdSvc: stdSvc, evtSvc: evtSvc}
}

func (srv *testServer) addUser(t *testing.T, uname string, role user.Role) (user.User, string) {
	t.Helper()
	usr, err := srv.usrSvc.Create(context.Background(), user.NewUser{
		Name:     "Test " + uname,
		Username: uname,
		Email:    uname + "@test.test",
		Role:     role,
		Password: "Str0ngPassw0rd",
	})
	require.NoError(t, err)

	token, err := GenerateToken(GetUserClaims(usr))
	require.NoError(t, err)
	return usr, token
}

func (srv *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echoHeaderContentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	srv.addUser(t, "alice", user.RoleAdmin)

	t.Run("ok", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "alice", Password: "Str0ngPassw0rd"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "alice", Password: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "alice"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSelfRegister(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, http.MethodPost, "/v1/users/register", "", map[string]string{
		"name":             "Vol Unteer",
		"username":         "volly",
		"email":            "volly@test.test",
		"role":             "admin", // ignored; self-registration always yields a volunteer
		"password":         "Str0ngPassw0rd",
		"password_confirm": "Str0ngPassw0rd",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var usr user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
	assert.Equal(t, user.RoleVolunteer, usr.Role)
}

func TestStudentAPIRoleGating(t *testing.T) {
	srv := newTestServer(t)
	_, adminToken := srv.addUser(t, "admin", user.RoleAdmin)
	_, volToken := srv.addUser(t, "vol", user.RoleVolunteer)

	body := student.NewStudent{ID: "s001", Name: "Alice A", Email: "alice@test.test"}

	t.Run("anonymous", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, "/v1/students", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("volunteer forbidden", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, "/v1/students", volToken, body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin creates", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, "/v1/students", adminToken, body)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("duplicate id is a field error", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, "/v1/students", adminToken, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEventAPI(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	_, adminToken := srv.addUser(t, "admin", user.RoleAdmin)
	_, volToken := srv.addUser(t, "vol", user.RoleVolunteer)

	for i, id := range []string{"s001", "s002", "s003"} {
		_, err := srv.stdSvc.Create(ctx, student.NewStudent{
			ID:    id,
			Name:  fmt.Sprintf("Student %d", i+1),
			Email: id + "@test.test",
		})
		require.NoError(t, err)
	}

	var evt event.Event
	t.Run("create event", func(t *testing.T) {
		body := map[string]interface{}{
			"name":      "Open Day",
			"starts_at": time.Now().Add(-24 * time.Hour).Format(time.RFC3339),
			"venue":     "Main Hall",
			"capacity":  2,
		}

		rec := srv.request(t, http.MethodPost, "/v1/events", volToken, body)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = srv.request(t, http.MethodPost, "/v1/events", adminToken, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evt))
	})

	regURL := fmt.Sprintf("/v1/events/%d/registrations", evt.ID)

	t.Run("registration capacity and duplicates", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, regURL, adminToken, RegistrationRequest{StudentID: "s001"})
		require.Equal(t, http.StatusCreated, rec.Code)

		// volunteers may not register students
		rec = srv.request(t, http.MethodPost, regURL, volToken, RegistrationRequest{StudentID: "s002"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = srv.request(t, http.MethodPost, regURL, adminToken, RegistrationRequest{StudentID: "s002"})
		require.Equal(t, http.StatusCreated, rec.Code)

		// duplicate
		rec = srv.request(t, http.MethodPost, regURL, adminToken, RegistrationRequest{StudentID: "s001"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		// full
		rec = srv.request(t, http.MethodPost, regURL, adminToken, RegistrationRequest{StudentID: "s003"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		// unknown student
		rec = srv.request(t, http.MethodPost, regURL, adminToken, RegistrationRequest{StudentID: "s999"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("attendance", func(t *testing.T) {
		rec := srv.request(t, http.MethodPost, regURL+"/s001/attendance", volToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		// idempotent
		rec = srv.request(t, http.MethodPost, regURL+"/s001/attendance", volToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = srv.request(t, http.MethodPost, regURL+"/s003/attendance", volToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("stats", func(t *testing.T) {
		rec := srv.request(t, http.MethodGet, fmt.Sprintf("/v1/events/%d/stats", evt.ID), volToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats event.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.Registered)
		assert.Equal(t, 1, stats.Attended)
		assert.Equal(t, 50.0, stats.Rate)
	})

	t.Run("csv export", func(t *testing.T) {
		url := fmt.Sprintf("/v1/events/%d/export.csv", evt.ID)

		rec := srv.request(t, http.MethodGet, url, volToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = srv.request(t, http.MethodGet, url, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "student_id,name,email,attended", lines[0])
		assert.True(t, strings.HasSuffix(lines[1], ",Y"))
		assert.True(t, strings.HasSuffix(lines[2], ",N"))

		// a failing export must not commit a 200 with a partial body
		rec = srv.request(t, http.MethodGet, "/v1/events/999999/export.csv", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), "student_id")
	})

	t.Run("notify", func(t *testing.T) {
		url := fmt.Sprintf("/v1/events/%d/notify", evt.ID)
		body := NotifyRequest{Subject: "Reminder: {{.EventName}}", Body: "Hi {{.Name}}"}

		rec := srv.request(t, http.MethodPost, url, volToken, body)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = srv.request(t, http.MethodPost, url, adminToken, body)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var ack event.BatchStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
		assert.Equal(t, 2, ack.Total)

		require.Eventually(t, func() bool {
			rec = srv.request(t, http.MethodGet, "/v1/events/notifications/"+ack.ID.String(), adminToken, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var status event.BatchStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			return status.Done && status.Delivered == 2
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("cancel registration", func(t *testing.T) {
		rec := srv.request(t, http.MethodDelete, regURL+"/s002", volToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = srv.request(t, http.MethodDelete, regURL+"/s002", adminToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = srv.request(t, http.MethodDelete, regURL+"/s002", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
