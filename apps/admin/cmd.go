package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/pratikpatil/academy-fees/core/fees"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	feesRepo fees.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  seedstructure -standard STD -year YEAR -amount AMOUNT [-description TEXT] - create or replace a fee structure")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seedstructure", flag.ExitOnError)
	seedStandard := seedCmd.String("standard", "", "The standard/class, e.g. 11.")
	seedYear := seedCmd.String("year", fees.AcademicYearOf(time.Now()), "The academic year, e.g. 2025-2026.")
	seedAmount := seedCmd.Int64("amount", 0, "The total tuition fee in whole rupees.")
	seedDescription := seedCmd.String("description", "", "An optional description.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seedstructure":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedStandard == "" || *seedAmount <= 0 {
			seedCmd.Usage()
			return errHelp
		}
		return cli.seedStructure(*seedStandard, *seedYear, *seedAmount, *seedDescription)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) seedStructure(standard, year string, amount int64, description string) error {
	nfs := fees.NewFeeStructure{
		Standard:     standard,
		AcademicYear: year,
		TotalFee:     amount,
		Description:  description,
	}
	if err := nfs.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	fs, err := cli.feesRepo.UpsertStructure(context.Background(), fees.FeeStructure{
		Standard:     nfs.Standard,
		AcademicYear: nfs.AcademicYear,
		TotalFee:     nfs.TotalFee,
		Description:  nfs.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return err
	}
	logger.Printf("fee structure %s/%s set to %d", fs.Standard, fs.AcademicYear, fs.TotalFee)
	return nil
}
