// Package cmd provides the command-line interface of tbench.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix prefixes the environment variables that set flag defaults, as in
// RTLTB_CYCLES=1000.
const envPrefix = "RTLTB_"

// errTestFailed is returned by commands whose test ran but did not pass.
var errTestFailed = errors.New("test failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tbench",
	Short: "tbench verifies a streaming FIFO with randomized traffic.",
	Long: `tbench drives randomized traffic through a FIFO model, compares ` +
		`what comes out against what went in, and reports a verdict. ` +
		`Flags can also be set with RTLTB_ environment variables or a .env ` +
		`file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := loadDotEnv(".env")
		if err != nil {
			return err
		}

		return applyEnv(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It exits with 1 if the test fails and 2 on other errors.
func Execute() {
	err := rootCmd.Execute()

	switch {
	case err == nil:
		atexit.Exit(0)
	case errors.Is(err, errTestFailed):
		atexit.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(2)
	}
}

// loadDotEnv loads the file into the environment if it exists. Variables
// that are already set win.
func loadDotEnv(path string) error {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}

	err = godotenv.Load(path)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	return nil
}

// envName returns the environment variable of a flag, such as
// RTLTB_VALID_PROB for --valid-prob.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv sets the flags that are not given on the command line from the
// environment.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		value, found := os.LookupEnv(envName(f.Name))
		if !found {
			return
		}

		setErr := flags.Set(f.Name, value)
		if setErr != nil {
			err = errors.Wrapf(setErr, "environment variable %s", envName(f.Name))
		}
	})

	return err
}
