// Package manifests loads the generated Kubernetes manifests of one
// environment into memory.
//
// The tree under generatedManifests/<environment>/ is walked in directory
// order. Every *.yaml and *.yml file is split into its documents, and each
// document is tagged with the file it came from and the resource base
// directory that owns it: the first directory below the environment root.
//
//	generatedManifests/local/postgres/secret.yaml
//	                         ^^^^^^^^ resource base directory
//
// A malformed file is reported and skipped; the rest of the tree still
// loads. A missing environment root is fatal.
//
// Documents keep their raw YAML. Typed views are decoded on demand:
// Secrets() returns corev1.Secret values, SealedSecrets() returns
// bitnami.com/v1alpha1 SealedSecret values.
package manifests
