package command

const (
	DefaultSetupFileName = "setup.yaml"
	DefaultStorePath     = "keymanager.db"
	DefaultBackend       = "bolt"
	DefaultChainID       = 1789
)

const (
	JSONOutputFlag = "json"
	StorePathFlag  = "store"
	BackendFlag    = "backend"
)
