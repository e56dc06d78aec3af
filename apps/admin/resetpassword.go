package main

import (
	"context"
	"time"

	"github.com/trezcool/hafla/core"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	repo, closeDB, err := cli.openRepo()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx := context.Background()
	usr, err := repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = repo.UpdateUser(ctx, usr, nil)
	return err
}
