package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studio/internal/domain"
)

func newCatalogCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog <stage>",
		Short: "List a stage newest first, or zip it with --archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := domain.ParseStage(args[0])
			if err != nil {
				return err
			}
			archive, _ := cmd.Flags().GetString("archive")
			if archive == "" {
				items, err := s.runtime.Service.ListCatalog(cmd.Context(), stage)
				if err != nil {
					return err
				}
				return s.print(cmd.OutOrStdout(), items)
			}

			f, err := os.Create(archive)
			if err != nil {
				return err
			}
			n, err := s.runtime.Service.Archive(cmd.Context(), stage, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d files to %s\n", n, archive)
			return nil
		},
	}
	cmd.Flags().StringP("archive", "o", "", "Write a zip of the stage to this path")
	return cmd
}

func newStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe external services and count every stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := s.runtime.Service.Status(cmd.Context())
			if err != nil {
				return err
			}
			return s.print(cmd.OutOrStdout(), st)
		},
	}
}
