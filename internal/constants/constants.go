package constants

const (
	Version        = `0.1.0`
	ConfigFile     = `cfg`
	ConfigFileType = `yaml`
	ConfigDir      = `/.listingnotes/`
	EnvPrefix      = `LISTINGNOTES_`
	StoreFile      = `store.json`
)
