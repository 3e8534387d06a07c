package config

const (
	defaultSourceDir       = "~/Downloads"
	defaultDestinationDir  = "~/Organized"
	defaultLogDir          = "~/.local/share/sortd/logs"
	defaultUndoDir         = "~/.local/share/sortd/undo"
	defaultCollisionPolicy = "rename"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultSettleSeconds   = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDirs:     []string{defaultSourceDir},
			DestinationDir: defaultDestinationDir,
			LogDir:         defaultLogDir,
			UndoDir:        defaultUndoDir,
		},
		Organize: Organize{
			CollisionPolicy: defaultCollisionPolicy,
			WriteUndoLog:    true,
		},
		Watch: Watch{
			SettleSeconds: defaultSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
