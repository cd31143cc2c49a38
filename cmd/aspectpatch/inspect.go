package main

import (
	"github.com/ZacharyZcR/aspectpatch/internal/cli"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <文件>",
		Short: "列出节区及其是否会被扫描",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := cli.InspectFile(args[0])
			if err != nil {
				return err
			}

			cli.NewReporter(cmd.OutOrStdout()).PrintInfo(args[0], info)
			return nil
		},
	}
}
