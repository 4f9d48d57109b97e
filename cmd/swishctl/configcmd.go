package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print every resolved key with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			entries, err := cfg.Describe()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Value)
			}
			return w.Flush()
		},
	}

	var output string
	headerCmd := &cobra.Command{
		Use:   "header",
		Short: "Render the firmware config.h from the resolved settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return cfg.WriteHeader(cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := cfg.WriteHeader(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	headerCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the resolved settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := flags.load(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cfgCmd.AddCommand(showCmd, headerCmd, checkCmd)
	return cfgCmd
}
