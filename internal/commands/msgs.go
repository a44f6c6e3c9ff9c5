package commands

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort        = "Fetch, verify and unpack upstream sources"
	MsgVersionShort     = "Print version information"
	MsgVersionLong      = "Print detailed version information including commit hash and build date"
	MsgMaterializeShort = "Materialize a source into a directory"
	MsgSumShort         = "Print the digest of a file"
	MsgSumLong          = "Sum prints the digest of a file in the format of sha256sum and friends."
	MsgVerifyShort      = "Check a file against an expected digest"
	MsgVerifyLong       = "Verify exits with an error unless the file's digest equals the given checksum exactly."

	// Status messages
	MsgSumFormat     = "%s  %s\n"
	MsgVerifyOK      = "%s: OK"
	MsgVersionFormat = "srcpack version %s\n"
	MsgCommitFormat  = "Commit: %s\n"
	MsgBuiltFormat   = "Built:  %s\n"

	// Error messages
	MsgErrNoDescriptor = "--descriptor is required"
	MsgErrNoChecksum   = "--checksum is required"

	// Flag descriptions
	MsgFlagVerbose       = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig        = "Config file (default $XDG_CONFIG_HOME/srcpack/config.toml)"
	MsgFlagCacheRoot     = "Root of the artifact cache (default $XDG_CACHE_HOME/srcpack)"
	MsgFlagInstanceID    = "Cache subdirectory for this packaging instance"
	MsgFlagPatchesDir    = "Directory holding <source id>-*.patch files"
	MsgFlagExtraFilesDir = "Directory holding <source id>/ extra file trees"
	MsgFlagDescriptor    = "Source descriptor file (KEY=VALUE, .yaml or .toml)"
	MsgFlagSourceID      = "Source id; selects patches and extra files"
	MsgFlagAlgorithm     = "Digest algorithm (md5, sha1, sha224, sha256, sha384, sha512, blake3, sha3-256, sha3-512)"
	MsgFlagChecksum      = "Expected hex digest, optionally prefixed with the algorithm (sha256:...)"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/materialize-long.txt
	msgMaterializeLongRaw string
	MsgMaterializeLong    = strings.TrimSpace(msgMaterializeLongRaw)

	//go:embed msgs/materialize-example.txt
	msgMaterializeExampleRaw string
	MsgMaterializeExample    = strings.TrimRight(msgMaterializeExampleRaw, "\n")
)
