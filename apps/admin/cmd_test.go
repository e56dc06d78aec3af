package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/user"
	dummydb "github.com/trezcool/hafla/storage/database/dummy"
)

func setup(t *testing.T) (*commandLine, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)

	cli := &commandLine{
		openRepo: func() (user.Repository, func() error, error) {
			return repo, func() error { return nil }, nil
		},
	}
	return cli, repo
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", args: []string{}, wantErr: errHelp},
		{name: "unknown command", args: []string{"yolo"}, wantErr: errHelp},
		{name: "adduser: missing flags", args: []string{"adduser", "-name", "Jo"}, wantErr: errHelp},
		{name: "resetpassword: missing username", args: []string{"resetpassword"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, repo := setup(t)
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("Str0ngPa$$"), nil }

	err := cli.run([]string{"admin", "adduser", "-name", "Jane Admin", "-username", "jane", "-email", "jane@hafla.test"})
	require.NoError(t, err)

	ctx := context.Background()
	usr, err := repo.GetUserByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("Str0ngPa$$"))

	// running again updates instead of failing on uniqueness
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("0therPa$$"), nil }
	err = cli.run([]string{"admin", "adduser", "-name", "Jane A.", "-username", "jane", "-email", "jane@hafla.test", "-volunteer"})
	require.NoError(t, err)

	usr, err = repo.GetUserByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, "Jane A.", usr.Name)
	assert.Equal(t, user.RoleVolunteer, usr.Role)
	assert.NoError(t, usr.CheckPassword("0therPa$$"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repo := setup(t)

	usr := user.User{Name: "Sam", Username: "sam", Email: "sam@hafla.test", Role: user.RoleVolunteer, IsActive: true}
	require.NoError(t, usr.SetPassword("0ldPa$$word"))
	ctx := context.Background()
	_, err := repo.CreateUser(ctx, usr)
	require.NoError(t, err)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("NewPa$$word"), nil }
	err = cli.run([]string{"admin", "resetpassword", "-username", "sam@hafla.test"})
	require.NoError(t, err)

	got, err := repo.GetUserByUsername(ctx, "sam")
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("NewPa$$word"))
	assert.Error(t, got.CheckPassword("0ldPa$$word"))
}

func Test_commandLine_createDB(t *testing.T) {
	cli, _ := setup(t)

	var created, applied bool
	createDBFunc = func(conf *core.Config) error { created = true; return nil }
	applySchemaFunc = func(conf *core.Config) error { applied = true; return nil }

	require.NoError(t, cli.run([]string{"admin", "createdb"}))
	assert.True(t, created)
	assert.False(t, applied)

	created = false
	require.NoError(t, cli.run([]string{"admin", "createdb", "-schema"}))
	assert.True(t, created)
	assert.True(t, applied)
}
