// Package ui provides semantic text formatting for sealctl output.
//
// Formatters render content by meaning rather than by color. With a color
// capable terminal, content is colorized; when NO_COLOR is set or the
// terminal cannot show colors, a plain-text decoration is used instead so the
// meaning survives in logs and CI output.
//
//	ui.Code.Sprint("sealctl secrets seal")    // `sealctl secrets seal`
//	ui.Path.Sprint("generatedManifests/local") // unchanged
//	ui.Ref.Sprint("applications/db-creds")    // [applications/db-creds]
//	ui.Field.Sprint("PASS")                    // 'PASS'
//	ui.Muted.Sprint("unchanged")               // (unchanged)
//
// Check renders a checkbox marker for selection lists.
package ui
