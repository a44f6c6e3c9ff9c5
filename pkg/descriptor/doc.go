// Package descriptor reads source descriptors: the declarative record of
// where an upstream artifact lives, how to check it and how to unpack it.
//
// The native format is KEY=VALUE lines (SOURCE_URL, SOURCE_SUM, ...), read
// with dotenv rules. YAML and TOML documents carrying the same keys, with or
// without the SOURCE_ prefix, are accepted as structured alternatives.
package descriptor
