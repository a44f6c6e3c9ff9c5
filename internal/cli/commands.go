package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/srcpack/internal/commands"
	"github.com/arthur-debert/srcpack/internal/version"
	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/pipeline"
	"github.com/arthur-debert/srcpack/pkg/types"
	"github.com/arthur-debert/srcpack/pkg/verify"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: commands.MsgVersionShort,
		Long:  commands.MsgVersionLong,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, commands.MsgVersionFormat, version.Version)
			if version.Commit != "" {
				_, _ = fmt.Fprintf(out, commands.MsgCommitFormat, version.Commit)
			}
			if version.Date != "" {
				_, _ = fmt.Fprintf(out, commands.MsgBuiltFormat, version.Date)
			}
		},
	}
}

func newMaterializeCmd(opts *globalOptions) *cobra.Command {
	var (
		descriptorPath string
		sourceID       string
	)

	cmd := &cobra.Command{
		Use:     "materialize <dest>",
		Short:   commands.MsgMaterializeShort,
		Long:    commands.MsgMaterializeLong,
		Example: commands.MsgMaterializeExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("cli.materialize")
			if descriptorPath == "" {
				return errors.New(errors.ErrInvalidInput, commands.MsgErrNoDescriptor)
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			logger.Info().
				Str("descriptor", descriptorPath).
				Str("source_id", sourceID).
				Str("dest", args[0]).
				Msg("Materializing source")

			res, err := pipeline.New(cfg).MaterializeFile(cmd.Context(), descriptorPath, sourceID, args[0])
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.DestDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&descriptorPath, "descriptor", "d", "", commands.MsgFlagDescriptor)
	cmd.Flags().StringVar(&sourceID, "source-id", types.DefaultSourceID, commands.MsgFlagSourceID)
	return cmd
}

func newSumCmd() *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "sum <file>",
		Short: commands.MsgSumShort,
		Long:  commands.MsgSumLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := verify.Sum(filesystem.NewOS(), args[0], types.ParseChecksumAlgorithm(algorithm))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), commands.MsgSumFormat, digest, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(types.DefaultChecksumAlgorithm), commands.MsgFlagAlgorithm)
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var (
		algorithm string
		checksum  string
	)

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: commands.MsgVerifyShort,
		Long:  commands.MsgVerifyLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if checksum == "" {
				return errors.New(errors.ErrInvalidInput, commands.MsgErrNoChecksum)
			}

			algo := types.ParseChecksumAlgorithm(algorithm)
			prefixed, digest := types.SplitChecksum(checksum)
			if prefixed != "" {
				algo = prefixed
			}

			if err := verify.Verify(filesystem.NewOS(), args[0], digest, algo); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, renderSuccess(out, fmt.Sprintf(commands.MsgVerifyOK, args[0])))
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(types.DefaultChecksumAlgorithm), commands.MsgFlagAlgorithm)
	cmd.Flags().StringVarP(&checksum, "checksum", "c", "", commands.MsgFlagChecksum)
	return cmd
}
