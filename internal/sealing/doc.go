// Package sealing turns selected Secret fields into SealedSecret documents.
//
// For every selected secret the engine finds the SealedSecret generated by an
// earlier run, seals only the selected fields through an Encryptor, and
// merges the fresh ciphertext over the old one. Keys that no longer exist in
// the Secret are pruned. Untouched fields keep their previous ciphertext byte
// for byte, so a run that changes nothing rewrites nothing.
//
// Output goes to
//
//	<resource base dir>/sealed-secrets/sealed-secret-<name>-<namespace>.yaml
//
// and always replaces the whole file.
//
// Failures are scoped: a field that cannot be sealed keeps its old value, a
// secret that cannot be written is reported, and the rest of the batch
// continues. Only cancellation stops the batch, and files already written
// stay on disk.
package sealing
