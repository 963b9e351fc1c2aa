// Package selector implements the two-stage interactive secret picker.
//
// Stage one lists every Secret grouped by namespace, with the
// "applications" namespace first, and asks which secrets to review. Stage
// two asks, for each chosen secret independently, which of its fields to
// seal. A secret that ends stage two with no fields is left out of the
// Selection: stage one chooses what to look at, stage two chooses what to
// change.
//
// The terminal is reached only through the Prompter interface, so tests
// drive the selector with a scripted prompter.
package selector
