package main

import (
	"encoding/json"
	"fmt"

	"github.com/Stewz00/go-backoffice-service/internal/app"
	"github.com/spf13/cobra"
)

const (
	jobLicenses    = "licenses"
	jobCustomers   = "contaazul.customers"
	jobContracts   = "contaazul.contracts"
	jobReceivables = "contaazul.receivables"
)

func syncCmd() *cobra.Command {
	var companyID int64

	cmd := &cobra.Command{
		Use:   "sync <job>",
		Short: "Run a sync job once and print its result",
		Long: `Run a sync job once and print its result as JSON.

Jobs:
  licenses                 pull license groups and branches from PDV Legal
  contaazul.customers      import Conta Azul customers (needs --company)
  contaazul.contracts      attach contracts to imported customers (needs --company)
  contaazul.receivables    import receivables for the current window (needs --company)`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobLicenses, jobCustomers, jobContracts, jobReceivables},
		RunE: func(cmd *cobra.Command, args []string) error {
			job := args[0]
			if job != jobLicenses && companyID <= 0 {
				return fmt.Errorf("--company is required for %s", job)
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				ctx := cmd.Context()

				var (
					result any
					err    error
				)
				switch job {
				case jobLicenses:
					result, err = a.Licenses.Sync(ctx)
				case jobCustomers:
					result, err = a.ContaAzul.SyncCustomers(ctx, companyID)
				case jobContracts:
					result, err = a.ContaAzul.SyncContracts(ctx, companyID)
				case jobReceivables:
					result, err = a.ContaAzul.SyncReceivables(ctx, companyID)
				default:
					return fmt.Errorf("unknown job %q", job)
				}
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			})
		},
	}

	cmd.Flags().Int64Var(&companyID, "company", 0, "company id for Conta Azul jobs")

	return cmd
}
