// Package configs manages the sealctl project configuration.
//
// Configuration lives in a single TOML file, .sealctl.toml, at the root of the
// infrastructure repository. It is located by walking up from the working
// directory until the file is found or the filesystem root is reached.
//
// # Project Configuration
//
// The project config stores:
//   - manifests_dir: where rendered manifests live, one subdirectory per environment
//   - secrets_dir: where the git-ignored plaintext secret files live
//   - environments: the fixed set of deployment targets
//   - [kubeseal]: how the external sealing command is invoked
//   - [[resources]]: the declared secret schema, one entry per resource
//
// Missing fields fall back to DefaultProjectConfig values, so a config file
// that only declares resources is valid.
//
// # Settings
//
// InitProjectSettings resolves the project root and loads the config. The
// result is passed explicitly to workflows; this package keeps no globals.
package configs
