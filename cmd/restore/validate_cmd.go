package main

import (
	"fmt"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/spf13/cobra"
)

type validateOptions struct {
	file string
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a backup file without importing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", `Backup JSON file, "-" for stdin (required)`)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runValidate(cmd *cobra.Command, opts validateOptions) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := readPayload(opts.file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	res, err := a.service.Validate(ctx, p)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if err := writeJSONLine(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if res.State == core.StateAborted {
		return withCode(exitValidation, fmt.Errorf("backup rejected: %d validation errors", len(res.Validation.Errors)))
	}
	return nil
}
