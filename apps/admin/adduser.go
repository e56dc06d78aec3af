package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	repo, closeDB, err := cli.openRepo()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx := context.Background()
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	role := user.RoleVolunteer
	if isAdmin {
		role = user.RoleAdmin
	}

	usr, err := repo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      name,
			Username:  uname,
			Email:     email,
			Role:      role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = repo.CreateUser(ctx, usr)
		return err
	}

	usr.Name = name
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	isActive := true
	_, err = repo.UpdateUser(ctx, usr, &isActive)
	return err
}
