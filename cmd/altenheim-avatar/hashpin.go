package main

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

func newHashPINCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-pin PIN",
		Short: "Print the bcrypt hash to store for a resident PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pinPattern.MatchString(args[0]) {
				return errors.New("PIN must have 4-6 digits")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
