package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AsyncFlow-Sim/AsyncFlow/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>",
	Short: "Validate a scenario file without running it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := scenario.Load(args[0])
		if err != nil {
			logrus.Fatalf("loading scenario: %v", err)
		}
		if err := sc.Validate(); err != nil {
			logrus.Fatalf("invalid scenario:\n%v", err)
		}
		fmt.Printf("%s: valid\n", args[0])
	},
}
