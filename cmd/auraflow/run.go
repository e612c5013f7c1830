package main

import (
	"strings"

	"github.com/aretw0/auraflow/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a coding task to completion",
	Long:  `Creates a session for the task and streams every stage to the terminal until the code passes verification or the run fails.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")

		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.RunTask(sigCtx, app, strings.Join(args, " "), cli.RunOptions{JSON: jsonMode, Out: cmd.OutOrStdout()})
	},
}

// resumeCmd represents the resume command
var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume an interrupted session from its last checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")

		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.ResumeTask(sigCtx, app, args[0], cli.RunOptions{JSON: jsonMode, Out: cmd.OutOrStdout()})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	runCmd.Flags().Bool("json", false, "Print events as JSON Lines")
	resumeCmd.Flags().Bool("json", false, "Print events as JSON Lines")
}
