package main

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type importOptions struct {
	file     string
	tenantID uuid.UUID
	apply    bool
	actor    string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a backup file into a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", `Backup JSON file, "-" for stdin (required)`)
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write to the database (default is dry-run)")
	cmd.Flags().StringVar(&opts.actor, "actor", "cli", "Actor recorded in import history")

	var tenant string
	cmd.Flags().StringVar(&tenant, "tenant", "", "Destination tenant UUID (required)")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("tenant")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(strings.TrimSpace(tenant))
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --tenant: %w", err))
		}
		opts.tenantID = id
		return nil
	}

	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	ctx := core.ContextWithActor(cmd.Context(), opts.actor)

	a, err := newApp(ctx, cmd.ErrOrStderr(), opts.apply)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := readPayload(opts.file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	mode := core.ModeDryRun
	if opts.apply {
		mode = core.ModeImport
	}
	res, err := a.service.Import(ctx, core.ImportRequest{
		Mode:     mode,
		TenantID: opts.tenantID.String(),
		Payload:  p,
	})
	if err != nil {
		return withCode(exitUsage, err)
	}
	if err := writeJSONLine(cmd.OutOrStdout(), res); err != nil {
		return err
	}

	switch resultCode(res) {
	case exitValidation:
		return withCode(exitValidation, fmt.Errorf("backup rejected: %d validation errors", len(res.Validation.Errors)))
	case exitPartial:
		imported, errs := res.Totals()
		return withCode(exitPartial, fmt.Errorf("import finished unsuccessfully: %d imported, %d errors", imported, errs))
	}
	return nil
}
