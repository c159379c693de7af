package main

import (
	"fmt"

	"github.com/urfave/cli"

	libra "github.com/sadullah47/libra"
)

func versionCMD() cli.Command {
	return cli.Command{
		Name:   "version",
		Usage:  "Libra version",
		Action: version,
	}
}

func version(ctx *cli.Context) error {
	printVersion()

	return nil
}

func printVersion() {
	fmt.Printf("Libra version: %s-%s-%s\n", libra.CurrentVersion, libra.CurrentBranch, libra.CurrentCommit)
	fmt.Printf("App build date: %s\n", libra.BuildDate)
	fmt.Printf("System version: %s\n", libra.Platform)
	fmt.Printf("Golang version: %s\n", libra.GoVersion)
	fmt.Println()
}
