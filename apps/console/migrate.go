package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/klabu/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	switch args[0] {
	case "create", "fix":
		// they write migration files, and ours are compiled in
		return errors.Errorf("migrate %s is not available: migrations are embedded in the binary", args[0])
	}
	return gooseRunFunc(ctx, cli.db, cli.engine, args[0], args[1:]...)
}
