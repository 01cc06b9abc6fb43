// Package password implements credential hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Every hash carries its own random salt, so identical passwords never produce
// identical hashes. An optional site-wide pepper is mixed into the password
// bytes before hashing; the pepper never appears in the encoded output.
// [Hasher.NeedsRehash] reports whether a stored hash was produced with weaker
// parameters than the current configuration, so the caller can transparently
// re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// reuse) and lockout throttling are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other accessguard package.
//   - Log plaintext passwords or the pepper.
package password
