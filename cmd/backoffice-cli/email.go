package main

import (
	"fmt"

	"github.com/Stewz00/go-backoffice-service/internal/mailer"
	"github.com/spf13/cobra"
)

func testEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-email <to>",
		Short: "Check the SMTP connection and send a test message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.SMTP.Host == "" {
				return fmt.Errorf("SMTP_HOST is not set")
			}

			m := mailer.NewSMTPMailer(cfg.SMTP, log)
			if err := m.Verify(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s:%d\n", cfg.SMTP.Host, cfg.SMTP.Port)

			msg, err := mailer.TestMessage(args[0])
			if err != nil {
				return err
			}
			if err := m.Send(cmd.Context(), msg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test email sent to %s\n", args[0])
			return nil
		},
	}
}
