package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meshweave/fabric-go/controller"
)

func newStartCommand() *cobra.Command {
	var listenPort uint16
	var serverInteractions bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "run the controller factory until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			factory, err := controller.NewFactory(log)
			if err != nil {
				return err
			}
			defer factory.Destroy()

			err = factory.Startup(controller.Config{
				DB:                       db,
				ListenPort:               listenPort,
				EnableServerInteractions: serverInteractions,
			})
			if err != nil {
				return err
			}

			waitForInterrupt(log, db)
			return factory.Shutdown()
		},
	}
	cmd.Flags().Uint16Var(&listenPort, "port", 0, "listen port override")
	cmd.Flags().BoolVar(&serverInteractions, "server", false, "enable server interactions")
	return cmd
}

func waitForInterrupt(log zerolog.Logger, _ *badger.DB) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("shutting down")
}
