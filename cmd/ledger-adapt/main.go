package main

import (
	"fmt"
	"os"

	"githubledger/ledger-adapt/cmd/normalize"
	"githubledger/ledger-adapt/cmd/root"
	"githubledger/ledger-adapt/cmd/validate"
)

func init() {
	root.Init()
	root.Cmd.AddCommand(normalize.Cmd)
	root.Cmd.AddCommand(validate.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
