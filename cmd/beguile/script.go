package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagArgs map[string]string

var scriptCmd = &cobra.Command{
	Use:   "script <path>",
	Short: "Run a Risor script against the workspace index",
	Long: "Runs a Risor script with the parser and index functions available as globals. " +
		"Paths name bundled scripts (e.g. report/summary.risor) unless --scripts-dir is given. " +
		"--arg key=value pairs are exposed to the script as the args map.",
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load scripts from disk path instead of embedded")
	scriptCmd.Flags().StringToStringVar(&flagArgs, "arg", nil, "script argument as key=value (repeatable)")
	rootCmd.AddCommand(scriptCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	engine, err := openEngine(resolveDBPath(findRepoRoot(cwd)))
	if err != nil {
		return err
	}
	defer engine.Close()

	scriptArgs := make(map[string]any, len(flagArgs))
	for k, v := range flagArgs {
		scriptArgs[k] = v
	}
	return engine.Runtime().RunScript(cmd.Context(), args[0], map[string]any{"args": scriptArgs})
}
