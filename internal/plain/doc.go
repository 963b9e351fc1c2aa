// Package plain keeps the per-environment plaintext secret files in shape.
//
// Every environment has one git-ignored JSON file, <secrets dir>/<env>.json,
// holding the values that are later rendered into Secrets and sealed:
//
//	{
//	  "services": {
//	    "postgres": { "POSTGRES_PASSWORD": "" }
//	  }
//	}
//
// The shape is fixed by the declared schema: every resource category, every
// resource, every variable. Sync merges existing values into that shape;
// values survive, missing keys appear as empty strings, keys that left the
// schema disappear. Reset writes the empty shape, which is what you want
// after sealing so no plaintext is left on disk.
package plain
