package commands

import (
	"os"
	"path/filepath"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/backkem/seif/pkg/store"
)

var (
	home       string
	passphrase string
	verbose    bool

	st            store.Store
	loggerFactory logging.LoggerFactory
)

// Execute runs the seif command tree.
func Execute() error {
	root := &cobra.Command{
		Use:           "seif",
		Short:         "Seif protocol peer",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".seif")
			}

			fs, err := store.NewFileStore(home, passphrase)
			if err != nil {
				return err
			}
			st = fs

			factory := logging.NewDefaultLoggerFactory()
			if verbose {
				factory.DefaultLogLevel = logging.LogLevelDebug
			} else {
				factory.DefaultLogLevel = logging.LogLevelWarn
			}
			loggerFactory = factory
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state directory (default ~/.seif)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the private key")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(initCmd())
	root.AddCommand(listenCmd())
	root.AddCommand(connectCmd())
	root.AddCommand(peersCmd())
	root.AddCommand(discoverCmd())

	return root.Execute()
}
