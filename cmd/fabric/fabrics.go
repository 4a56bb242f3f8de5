package main

import (
	"crypto/rand"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meshweave/fabric-go/controller"
	"github.com/meshweave/fabric-go/crypto"
	"github.com/meshweave/fabric-go/model/fabric"
	storagebadger "github.com/meshweave/fabric-go/storage/badger"
)

func newFabricsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fabrics",
		Short: "inspect and provision fabrics",
	}
	cmd.AddCommand(newFabricsListCommand())
	cmd.AddCommand(newFabricsNewCommand())
	return cmd
}

func newFabricsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored fabrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			table := storagebadger.NewFabrics(db)
			indexes, err := table.Indexes()
			if err != nil {
				return err
			}
			for _, index := range indexes {
				fab, err := table.ByIndex(index)
				if err != nil {
					return err
				}
				fmt.Printf("%3d  fabric=%s  node=%s  vendor=%04x\n",
					uint8(fab.Index), fab.FabricID, fab.NodeID, uint16(fab.VendorID))
			}
			log.Info().Int("fabrics", len(indexes)).Msg("listed fabric table")
			return nil
		},
	}
}

func newFabricsNewCommand() *cobra.Command {
	var fabricID uint64
	var vendorID uint16

	cmd := &cobra.Command{
		Use:   "new",
		Short: "provision a new fabric and start a controller on it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFactory(func(log zerolog.Logger, db *badger.DB, factory *controller.Factory) error {
				signer, err := crypto.GenerateSigner()
				if err != nil {
					return err
				}
				ipk := make([]byte, fabric.IPKLength)
				_, err = rand.Read(ipk)
				if err != nil {
					return err
				}

				vendor := fabric.VendorID(vendorID)
				ctrl, err := factory.StartControllerOnNewFabric(&fabric.StartupParameters{
					Signer:   signer,
					FabricID: fabric.FabricID(fabricID),
					IPK:      ipk,
					VendorID: &vendor,
				})
				if err != nil {
					return err
				}
				params := ctrl.Params()
				fmt.Printf("fabric %s provisioned at index %d, node %s\n",
					params.FabricID, uint8(ctrl.FabricIndex()), params.NodeID)
				return ctrl.Shutdown()
			})
		},
	}
	cmd.Flags().Uint64Var(&fabricID, "fabric-id", 0, "fabric identifier (required)")
	cmd.Flags().Uint16Var(&vendorID, "vendor-id", 0xfff1, "vendor identifier")
	_ = cmd.MarkFlagRequired("fabric-id")
	return cmd
}
