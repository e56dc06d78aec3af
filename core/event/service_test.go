package event_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/student"
	"github.com/trezcool/hafla/core/user"
	dummydb "github.com/trezcool/hafla/storage/database/dummy"
)

type fakeEmailService struct {
	mu       sync.Mutex
	sent     []core.EmailMessage
	failAddr string // deliveries to this address fail
}

func (svc *fakeEmailService) SendMessage(msg *core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.failAddr != "" && msg.To[0].Address == svc.failAddr {
		return assert.AnError
	}
	svc.sent = append(svc.sent, *msg)
	return nil
}

type captureLogger struct {
	mu   sync.Mutex
	errs []string
}

func (l *captureLogger) Enable(bool)                 {}
func (l *captureLogger) Info(string, ...interface{}) {}
func (l *captureLogger) Error(msg string, err error, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func (l *captureLogger) errored(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.errs {
		if e == msg {
			return true
		}
	}
	return false
}

type testEnv struct {
	svc    *event.Service
	stdSvc *student.Service
	mail   *fakeEmailService
	disp   *event.Dispatcher
	log    *captureLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	mail := new(fakeEmailService)
	logger := new(captureLogger)
	disp := event.NewDispatcher(mail, logger)
	t.Cleanup(disp.Close)

	return &testEnv{
		svc:    event.NewService(dummydb.NewEventRepository(db), disp, logger),
		stdSvc: student.NewService(dummydb.NewStudentRepository(db)),
		mail:   mail,
		disp:   disp,
		log:    logger,
	}
}

func (env *testEnv) registrationID(t *testing.T, eventID int, studentID string) int {
	t.Helper()
	registrants, err := env.svc.Registrants(context.Background(), eventID)
	require.NoError(t, err)
	for _, r := range registrants {
		if r.StudentID == studentID {
			return r.RegistrationID
		}
	}
	t.Fatalf("student %q not registered for event %d", studentID, eventID)
	return 0
}

func (env *testEnv) addStudent(t *testing.T, id, name, email string) student.Student {
	t.Helper()
	std, err := env.stdSvc.Create(context.Background(), student.NewStudent{ID: id, Name: name, Email: email})
	require.NoError(t, err)
	return std
}

func (env *testEnv) addEvent(t *testing.T, name string, startsAt time.Time, capacity int) event.Event {
	t.Helper()
	evt, err := env.svc.Create(context.Background(), event.NewEvent{
		Name:     name,
		StartsAt: startsAt,
		Capacity: capacity,
	}, user.RoleAdmin)
	require.NoError(t, err)
	return evt
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("volunteer cannot create", func(t *testing.T) {
		_, err := env.svc.Create(ctx, event.NewEvent{
			Name:     "Open Day",
			StartsAt: time.Now().Add(24 * time.Hour),
			Capacity: 10,
		}, user.RoleVolunteer)
		assert.Equal(t, event.ErrPermissionDenied, err)
	})

	t.Run("capacity must be positive", func(t *testing.T) {
		_, err := env.svc.Create(ctx, event.NewEvent{
			Name:     "Open Day",
			StartsAt: time.Now().Add(24 * time.Hour),
			Capacity: 0,
		}, user.RoleAdmin)
		assert.Error(t, err)
	})

	t.Run("admin creates", func(t *testing.T) {
		evt, err := env.svc.Create(ctx, event.NewEvent{
			Name:     "  Open Day ",
			StartsAt: time.Now().Add(24 * time.Hour),
			Venue:    "Main Hall",
			Capacity: 10,
		}, user.RoleAdmin)
		require.NoError(t, err)
		assert.NotZero(t, evt.ID)
		assert.Equal(t, "Open Day", evt.Name)
	})
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addStudent(t, "s001", "Alice A", "alice@test.test")
	env.addStudent(t, "s002", "Bob B", "bob@test.test")
	env.addStudent(t, "s003", "Carol C", "carol@test.test")
	evt := env.addEvent(t, "Science Fair", time.Now().Add(48*time.Hour), 2)

	t.Run("volunteer cannot register", func(t *testing.T) {
		_, err := env.svc.Register(ctx, evt.ID, "s001", user.RoleVolunteer)
		assert.Equal(t, event.ErrPermissionDenied, err)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := env.svc.Register(ctx, 999, "s001", user.RoleAdmin)
		assert.Equal(t, event.ErrNotFound, err)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := env.svc.Register(ctx, evt.ID, "s999", user.RoleAdmin)
		assert.Equal(t, event.ErrStudentNotFound, err)
	})

	t.Run("registers up to capacity", func(t *testing.T) {
		regA, err := env.svc.Register(ctx, evt.ID, "S001", user.RoleAdmin) // id gets normalized
		require.NoError(t, err)
		assert.Equal(t, "s001", regA.StudentID)

		_, err = env.svc.Register(ctx, evt.ID, "s002", user.RoleAdmin)
		require.NoError(t, err)

		// third one is over capacity
		_, err = env.svc.Register(ctx, evt.ID, "s003", user.RoleAdmin)
		assert.Equal(t, event.ErrEventFull, err)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		_, err := env.svc.Register(ctx, evt.ID, "s001", user.RoleAdmin)
		assert.Equal(t, event.ErrAlreadyRegistered, err)
	})

	t.Run("cancellation frees a slot", func(t *testing.T) {
		require.NoError(t, env.svc.CancelRegistration(ctx, evt.ID, "s001", user.RoleAdmin))

		_, err := env.svc.Register(ctx, evt.ID, "s003", user.RoleAdmin)
		assert.NoError(t, err)
	})

	t.Run("cancel unknown registration", func(t *testing.T) {
		err := env.svc.CancelRegistration(ctx, evt.ID, "s001", user.RoleAdmin)
		assert.Equal(t, event.ErrNotRegistered, err)
	})
}

func TestMarkAttendance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addStudent(t, "s001", "Alice A", "alice@test.test")
	evt := env.addEvent(t, "Career Day", time.Now().Add(72*time.Hour), 5)
	reg, err := env.svc.Register(ctx, evt.ID, "s001", user.RoleAdmin)
	require.NoError(t, err)

	t.Run("too early", func(t *testing.T) {
		err := env.svc.MarkAttendance(ctx, reg.ID, user.RoleVolunteer)
		assert.Equal(t, event.ErrTooEarly, err)
	})

	t.Run("unknown registration", func(t *testing.T) {
		err := env.svc.MarkAttendance(ctx, 999, user.RoleAdmin)
		assert.Equal(t, event.ErrNotRegistered, err)
	})

	t.Run("on the day and idempotent", func(t *testing.T) {
		event.NowFunc = func() time.Time { return evt.StartsAt }
		defer func() { event.NowFunc = time.Now }()

		require.NoError(t, env.svc.MarkAttendance(ctx, reg.ID, user.RoleVolunteer))
		// marking twice leaves a single record
		require.NoError(t, env.svc.MarkAttendance(ctx, reg.ID, user.RoleVolunteer))

		stats, err := env.svc.Stats(ctx, evt.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Attended)
	})

	t.Run("cancelling removes attendance", func(t *testing.T) {
		require.NoError(t, env.svc.CancelRegistration(ctx, evt.ID, "s001", user.RoleAdmin))

		stats, err := env.svc.Stats(ctx, evt.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Registered)
		assert.Equal(t, 0, stats.Attended)
	})
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addStudent(t, "s001", "Alice A", "alice@test.test")
	env.addStudent(t, "s002", "Bob B", "bob@test.test")
	env.addStudent(t, "s003", "Carol C", "carol@test.test")
	evt := env.addEvent(t, "Sports Gala", time.Now().Add(-48*time.Hour), 10)

	t.Run("zero registrations", func(t *testing.T) {
		stats, err := env.svc.Stats(ctx, evt.ID)
		require.NoError(t, err)
		assert.Equal(t, event.Stats{EventName: "Sports Gala"}, stats)
	})

	for _, id := range []string{"s001", "s002", "s003"} {
		_, err := env.svc.Register(ctx, evt.ID, id, user.RoleAdmin)
		require.NoError(t, err)
	}
	regID := env.registrationID(t, evt.ID, "s001")
	require.NoError(t, env.svc.MarkAttendance(ctx, regID, user.RoleAdmin))

	t.Run("rate rounded to 2dp", func(t *testing.T) {
		stats, err := env.svc.Stats(ctx, evt.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Registered)
		assert.Equal(t, 1, stats.Attended)
		assert.Equal(t, 33.33, stats.Rate)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := env.svc.Stats(ctx, 999)
		assert.Equal(t, event.ErrNotFound, err)
	})
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addStudent(t, "s001", "Alice A", "alice@test.test")
	env.addStudent(t, "s002", "=cmd|'/C calc'!A0", "bob@test.test") // hostile display name
	evt := env.addEvent(t, "Prize Giving", time.Now().Add(-48*time.Hour), 10)

	_, err := env.svc.Register(ctx, evt.ID, "s001", user.RoleAdmin)
	require.NoError(t, err)
	_, err = env.svc.Register(ctx, evt.ID, "s002", user.RoleAdmin)
	require.NoError(t, err)

	regID := env.registrationID(t, evt.ID, "s001")
	require.NoError(t, env.svc.MarkAttendance(ctx, regID, user.RoleAdmin))

	var buf bytes.Buffer
	require.NoError(t, env.svc.ExportCSV(ctx, evt.ID, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "student_id,name,email,attended", lines[0])
	assert.Equal(t, "s001,Alice A,alice@test.test,Y", lines[1])
	// formula-looking cells get an apostrophe prefix
	assert.Contains(t, lines[2], `'=cmd`)
	assert.True(t, strings.HasSuffix(lines[2], ",N"))

	t.Run("unknown event", func(t *testing.T) {
		assert.Equal(t, event.ErrNotFound, env.svc.ExportCSV(ctx, 999, &buf))
	})
}

func TestNotifyAttendees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addStudent(t, "s001", "Alice A", "alice@test.test")
	env.addStudent(t, "s002", "Bob B", "not-an-address")
	evt := env.addEvent(t, "Open Day", time.Now().Add(24*time.Hour), 10)

	_, err := env.svc.Register(ctx, evt.ID, "s001", user.RoleAdmin)
	require.NoError(t, err)
	_, err = env.svc.Register(ctx, evt.ID, "s002", user.RoleAdmin)
	require.NoError(t, err)

	t.Run("volunteer cannot notify", func(t *testing.T) {
		_, err := env.svc.NotifyAttendees(ctx, evt.ID, "Hi", "See you there", user.RoleVolunteer)
		assert.Equal(t, event.ErrPermissionDenied, err)
	})

	t.Run("invalid subject template", func(t *testing.T) {
		_, err := env.svc.NotifyAttendees(ctx, evt.ID, "{{.Name", "body", user.RoleAdmin)
		assert.Error(t, err)
	})

	t.Run("queues per registrant, bad addresses fail", func(t *testing.T) {
		ack, err := env.svc.NotifyAttendees(ctx, evt.ID, "Reminder: {{.EventName}}", "Hello {{.Name}}", user.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, 2, ack.Total)

		// wait for the batch to drain
		var status event.BatchStatus
		require.Eventually(t, func() bool {
			status, err = env.disp.Status(ack.ID)
			require.NoError(t, err)
			return status.Done
		}, 2*time.Second, 10*time.Millisecond)

		assert.Equal(t, 1, status.Delivered)
		assert.Equal(t, 1, status.Failed)
		assert.True(t, env.log.errored("skipping notice recipient"))

		env.mail.mu.Lock()
		defer env.mail.mu.Unlock()
		require.Len(t, env.mail.sent, 1)
		msg := env.mail.sent[0]
		assert.Equal(t, "alice@test.test", msg.To[0].Address)
		assert.Equal(t, "Reminder: Open Day", msg.Subject)
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := env.disp.Status(uuid.Nil)
		assert.Equal(t, event.ErrBatchNotFound, err)
	})
}
