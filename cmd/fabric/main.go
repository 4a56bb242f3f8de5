package main

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meshweave/fabric-go/controller"
	storagebadger "github.com/meshweave/fabric-go/storage/badger"
)

var (
	flagDataDir string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "fabric",
		Short:         "manage controller fabrics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&flagDataDir, "datadir", "", "directory for the persistent store (required)")
	flags.BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	cobra.CheckErr(root.MarkPersistentFlagRequired("datadir"))

	root.AddCommand(newStartCommand())
	root.AddCommand(newFabricsCommand())

	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func openDB() (*badger.DB, error) {
	opts := badger.DefaultOptions(flagDataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open store at %s: %w", flagDataDir, err)
	}
	return db, nil
}

// withFactory opens the store, starts a factory on it and hands both
// to the given function, tearing everything down afterwards.
func withFactory(f func(log zerolog.Logger, db *badger.DB, factory *controller.Factory) error) error {
	log := newLogger()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	factory, err := controller.NewFactory(log,
		controller.WithGroupDataProvider(storagebadger.NewGroupKeys(db)),
	)
	if err != nil {
		return err
	}
	defer func() {
		err := factory.Destroy()
		if err != nil {
			log.Err(err).Msg("factory teardown incomplete")
		}
	}()

	err = factory.Startup(controller.Config{DB: db})
	if err != nil {
		return err
	}
	return f(log, db, factory)
}
