package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/srcpack/internal/commands"
	"github.com/arthur-debert/srcpack/internal/version"
	"github.com/arthur-debert/srcpack/pkg/config"
	"github.com/arthur-debert/srcpack/pkg/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	verbosity     int
	configFile    string
	cacheRoot     string
	instanceID    string
	patchesDir    string
	extraFilesDir string
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "srcpack",
		Short:   commands.MsgRootShort,
		Long:    commands.MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&opts.verbosity, "verbose", "v", commands.MsgFlagVerbose)
	flags.StringVar(&opts.configFile, "config", "", commands.MsgFlagConfig)
	flags.StringVar(&opts.cacheRoot, "cache-root", "", commands.MsgFlagCacheRoot)
	flags.StringVar(&opts.instanceID, "instance-id", "", commands.MsgFlagInstanceID)
	flags.StringVar(&opts.patchesDir, "patches-dir", "", commands.MsgFlagPatchesDir)
	flags.StringVar(&opts.extraFilesDir, "extra-files-dir", "", commands.MsgFlagExtraFilesDir)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMaterializeCmd(opts))
	rootCmd.AddCommand(newSumCmd())
	rootCmd.AddCommand(newVerifyCmd())

	return rootCmd
}

// loadConfig layers the directory flags that were set on top of the
// configuration files and environment.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := make(map[string]interface{})
	for flag, key := range map[string]string{
		"cache-root":      "cache_root",
		"instance-id":     "instance_id",
		"patches-dir":     "patches_dir",
		"extra-files-dir": "extra_files_dir",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}

	return config.Load(config.LoadOptions{
		ConfigFile: o.configFile,
		Overrides:  overrides,
	})
}
