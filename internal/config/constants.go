package config

// Source and image file extensions.
const (
	SourceFileExt = ".jl"
	BundleFileExt = ".julb"
)

// Fixed capacities of the virtual machine. A config file may lower or
// raise them per run; these are the values used when it does not.
const (
	StackSize   = 2048
	GlobalsSize = 65536
	MaxFrames   = 1024
)

const (
	DefaultPrompt    = ">> "
	DefaultLogLevel  = "warn"
	DefaultLogFormat = LogFormatConsole
	DefaultCachePath = ".july/cache.db"
)

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// ConfigFileNames are looked up, in order, in each directory by FindConfig.
var ConfigFileNames = []string{"july.yaml", "july.yml", "july.toml"}
