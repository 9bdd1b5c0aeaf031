package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/pratikpatil/academy-fees/apps/api/echo"
	"github.com/pratikpatil/academy-fees/core"
	"github.com/pratikpatil/academy-fees/core/fees"
	emailsvc "github.com/pratikpatil/academy-fees/services/email"
	logsvc "github.com/pratikpatil/academy-fees/services/logger"
	"github.com/pratikpatil/academy-fees/storage/database"
	sqlxrepos "github.com/pratikpatil/academy-fees/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up logger
	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	dbx := sqlx.NewDb(db, core.Conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService()
	}
	feesSvc := fees.NewService(
		sqlxrepos.NewFeesRepository(dbx),
		sqlxrepos.NewSequences(dbx),
		sqlxrepos.NewStudentDirectory(dbx),
		mailSvc,
		logger,
	)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address: core.Conf.Server.Address(),
			FeesSvc: feesSvc,
			Logger:  logger,
		},
	)
	app.Start()
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
