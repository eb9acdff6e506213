package main

import (
	"github.com/spf13/cobra"
)

func newNormalizeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file...]",
		Short: "Gate and normalize uploads (all uploads when no file is named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := s.runtime.Service.NormalizeBatch(cmd.Context(), args)
			if err != nil {
				return err
			}
			return s.print(cmd.OutOrStdout(), res)
		},
	}
}

func newValidateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check one staged file without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := s.runtime.Service.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return s.print(cmd.OutOrStdout(), rep)
		},
	}
}

func newRemoveBackgroundCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-background [file...]",
		Short: "Send normalized images to the segmentation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := s.runtime.Service.RemoveBackgroundBatch(cmd.Context(), args)
			if err != nil {
				return err
			}
			return s.print(cmd.OutOrStdout(), res)
		},
	}
}
