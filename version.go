package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/packhub/packhub/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			printVersion()
			return nil
		},
	}
}

// printVersion 输出注入的版本 + 提交信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
