package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/user"
	emailsvc "github.com/trezcool/hafla/services/email"
	dummydb "github.com/trezcool/hafla/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                         {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}

func newSvc(t *testing.T) *user.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	emailsvc.ClearSentMessages()
	return user.NewService(dummydb.NewUserRepository(db), emailsvc.NewConsoleServiceMock(), nopLogger{})
}

func newUser(t *testing.T, svc *user.Service, uname string, role user.Role) user.User {
	t.Helper()
	nu := user.NewUser{
		Name:            "Test " + uname,
		Username:        uname,
		Email:           uname + "@test.test",
		Role:            role,
		Password:        "Str0ngPassw0rd",
		PasswordConfirm: "Str0ngPassw0rd",
	}
	require.NoError(t, nu.Validate(context.Background(), svc))
	usr, err := svc.Create(context.Background(), nu)
	require.NoError(t, err)
	return usr
}

func TestUserValidation(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		data    user.NewUser
		wantErr bool
	}{
		{
			name: "ok",
			data: user.NewUser{Name: "A", Username: "alice", Email: "alice@test.test", Role: user.RoleAdmin,
				Password: "Str0ngPassw0rd", PasswordConfirm: "Str0ngPassw0rd"},
		},
		{
			name:    "short username",
			data:    user.NewUser{Username: "al", Email: "al@test.test", Role: user.RoleAdmin, Password: "Str0ngPassw0rd", PasswordConfirm: "Str0ngPassw0rd"},
			wantErr: true,
		},
		{
			name:    "bad role",
			data:    user.NewUser{Username: "bob", Email: "bob@test.test", Role: "superuser", Password: "Str0ngPassw0rd", PasswordConfirm: "Str0ngPassw0rd"},
			wantErr: true,
		},
		{
			name:    "short password",
			data:    user.NewUser{Username: "carol", Email: "carol@test.test", Role: user.RoleVolunteer, Password: "nope", PasswordConfirm: "nope"},
			wantErr: true,
		},
		{
			name:    "password mismatch",
			data:    user.NewUser{Username: "dave", Email: "dave@test.test", Role: user.RoleVolunteer, Password: "Str0ngPassw0rd", PasswordConfirm: "Other0Passw0rd"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(ctx, svc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("duplicate username", func(t *testing.T) {
		newUser(t, svc, "erin", user.RoleVolunteer)
		dup := user.NewUser{Name: "E", Username: "erin", Email: "other@test.test", Role: user.RoleVolunteer,
			Password: "Str0ngPassw0rd", PasswordConfirm: "Str0ngPassw0rd"}
		err := dup.Validate(ctx, svc)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "username", vErr.Fields[0].Field)
	})
}

func TestAuthenticate(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	usr := newUser(t, svc, "alice", user.RoleAdmin)

	t.Run("by username", func(t *testing.T) {
		got, err := svc.Authenticate(ctx, "alice", "Str0ngPassw0rd")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
		assert.False(t, got.LastLogin.IsZero())
	})

	t.Run("by email", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "ALICE@test.test", "Str0ngPassw0rd")
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "alice", "wrong")
		assert.Equal(t, user.ErrAuthenticationFailed, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody", "Str0ngPassw0rd")
		assert.Equal(t, user.ErrAuthenticationFailed, err)
	})

	t.Run("deactivated account", func(t *testing.T) {
		inactive := false
		_, err := svc.Update(ctx, usr.ID, user.UpdateUser{IsActive: &inactive})
		require.NoError(t, err)

		_, err = svc.Authenticate(ctx, "alice", "Str0ngPassw0rd")
		assert.Equal(t, user.ErrAccountDeactivated, err)
	})
}

func TestPasswordReset(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	usr := newUser(t, svc, "alice", user.RoleVolunteer)

	require.NoError(t, svc.RequestPasswordReset(ctx, usr.Email))
	require.Eventually(t, func() bool {
		return len(emailsvc.SentMessages) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, usr.Email, emailsvc.SentMessages[0].To[0].Address)

	t.Run("unknown email", func(t *testing.T) {
		err := svc.RequestPasswordReset(ctx, "nobody@test.test")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("bad token", func(t *testing.T) {
		err := svc.ResetPassword(ctx, user.ResetUserPassword{
			UID:             user.EncodeUID(usr),
			Token:           "nope-nope",
			Password:        "NewStr0ngPwd",
			PasswordConfirm: "NewStr0ngPwd",
		})
		assert.Error(t, err)
	})

	t.Run("valid token", func(t *testing.T) {
		// re-fetch: the reset token binds to the stored hash and last login
		fresh, err := svc.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		token, err := user.MakeToken(fresh)
		require.NoError(t, err)

		err = svc.ResetPassword(ctx, user.ResetUserPassword{
			UID:             user.EncodeUID(fresh),
			Token:           token,
			Password:        "NewStr0ngPwd",
			PasswordConfirm: "NewStr0ngPwd",
		})
		require.NoError(t, err)

		_, err = svc.Authenticate(ctx, "alice", "NewStr0ngPwd")
		assert.NoError(t, err)
	})
}
