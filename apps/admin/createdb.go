package main

import (
	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/storage/database"
)

var (
	createDBFunc = database.CreateIfNotExist // mockable

	applySchemaFunc = func(conf *core.Config) error { // mockable
		db, err := database.Open(conf)
		if err != nil {
			return err
		}
		defer db.Close()
		if err = database.Ping(db); err != nil {
			return err
		}
		return database.ApplySchema(db)
	}
)

func (cli *commandLine) createDB(applySchema bool) error {
	if err := createDBFunc(core.Conf); err != nil {
		return err
	}
	if !applySchema {
		return nil
	}
	return applySchemaFunc(core.Conf)
}
