package controller

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/meshweave/fabric-go/storage"
	storagebadger "github.com/meshweave/fabric-go/storage/badger"
	"github.com/meshweave/fabric-go/storage/inmem"
)

// Config carries the startup parameters of the factory.
type Config struct {
	// DB is the required storage delegate backing the fabric table.
	DB *badger.DB

	// TrustAnchors is the list of accepted attestation root
	// certificates (portable form). When empty, the well-known test
	// anchor set is used.
	TrustAnchors [][]byte

	// ListenPort overrides the operational listen port. Zero selects
	// the default.
	ListenPort uint16

	// EnableServerInteractions enables responding to incoming
	// interactions in addition to initiating them.
	EnableServerInteractions bool
}

// DefaultListenPort is used when the config does not override it.
const DefaultListenPort uint16 = 5540

type options struct {
	groups         storage.GroupDataProvider
	newFabricTable func(db *badger.DB) storage.FabricTable
}

func defaultOptions() options {
	return options{
		groups: inmem.NewGroupKeys(),
		newFabricTable: func(db *badger.DB) storage.FabricTable {
			return storagebadger.NewFabrics(db)
		},
	}
}

// Option customizes init-time collaborators of the factory.
type Option func(*options)

// WithGroupDataProvider replaces the factory's group-key store. The
// provider is an init-time object: it is opened by NewFactory and
// survives startup/shutdown cycles.
func WithGroupDataProvider(groups storage.GroupDataProvider) Option {
	return func(o *options) {
		o.groups = groups
	}
}

// WithFabricTable replaces the constructor for the transient fabric
// table views bound to the storage delegate.
func WithFabricTable(newTable func(db *badger.DB) storage.FabricTable) Option {
	return func(o *options) {
		o.newFabricTable = newTable
	}
}
