// Command console browses and administers the club management lists from a terminal.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/core/session"
	"github.com/trezcool/klabu/services/logger"
	"github.com/trezcool/klabu/services/restapi"
	"github.com/trezcool/klabu/storage/database"
)

var std *log.Logger

func main() {
	std = log.New(os.Stderr, "CONSOLE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	var logger core.Logger = logsvc.NewConsoleLogger(std, conf.Debug)
	closeLogger := func() {}
	if conf.RollbarToken != "" {
		rl := logsvc.NewRollbarLogger(std, conf)
		rl.Enable(!conf.Debug)
		logger, closeLogger = rl, rl.Close
	}
	defer closeLogger()

	sess, err := session.FromToken(conf.Session.Token, []byte(conf.Session.SecretKey))
	errAndDie(err)

	// set up DB; `migrate` leaves the schema alone
	ctx := context.Background()
	var db *sqlx.DB
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		db, err = database.Connect(ctx, conf.Database.Engine, conf.Database.DSN)
	} else {
		db, err = database.Open(ctx, conf)
	}
	errAndDie(err)
	defer func() { _ = db.Close() }()

	client := restapi.NewClientFromConfig(conf, sess, logger)
	all, err := newScreens(client, listview.Options{
		PageSize: conf.List.PageSize,
		Debounce: conf.List.DebounceDelay,
		Logger:   logger,
	}, core.NewValidator())
	errAndDie(err)
	defer all.close()

	// start CLI
	cli := commandLine{
		screens: all,
		views:   database.NewViewRepository(db),
		db:      db.DB,
		engine:  conf.Database.Engine,
		in:      os.Stdin,
		out:     os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", core.DisplayMessage(err))
		}
		all.close()
		_ = db.Close()
		closeLogger()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		std.Fatal(err)
	}
}
