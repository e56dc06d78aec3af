package main

import (
	"log"
	"os"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/user"
	"github.com/trezcool/hafla/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cli := commandLine{
		openRepo: func() (user.Repository, func() error, error) {
			db, err := database.Open(core.Conf)
			if err != nil {
				return nil, nil, err
			}
			if err = database.Ping(db); err != nil {
				db.Close()
				return nil, nil, err
			}
			return database.NewUserRepository(db), db.Close, nil
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
