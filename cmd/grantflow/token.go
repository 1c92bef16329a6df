package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MbBrainz/grantflow-dev-sub000/src/config"
	"github.com/MbBrainz/grantflow-dev-sub000/src/webserver"
)

var (
	tokenUser uint64
	tokenTTL  time.Duration
)

// tokenCmd mints a bearer token for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed API token for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		tok, err := webserver.IssueToken(tokenUser, []byte(cfg.JWTSecret), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Uint64Var(&tokenUser, "user", 0, "user id to put in the uid claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
