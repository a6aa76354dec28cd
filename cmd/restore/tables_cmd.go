package main

import (
	"github.com/JonMunkholm/tenantrestore/internal/core/tables"
	"github.com/spf13/cobra"
)

type tableLine struct {
	Name           string            `json:"name"`
	RequiredFields []string          `json:"required_fields"`
	ForeignKeys    map[string]string `json:"foreign_keys"`
	TenantScoped   bool              `json:"tenant_scoped"`
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List importable tables in import order, one JSON object per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, td := range tables.Clinic().OrderedTables() {
				line := tableLine{
					Name:           td.Name,
					RequiredFields: td.RequiredFields,
					ForeignKeys:    td.ForeignKeys,
					TenantScoped:   td.TenantScoped,
				}
				if line.RequiredFields == nil {
					line.RequiredFields = []string{}
				}
				if line.ForeignKeys == nil {
					line.ForeignKeys = map[string]string{}
				}
				if err := writeJSONLine(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
