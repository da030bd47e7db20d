// Package password implements the credential verifier: argon2id hashing and
// constant-time verification of presented secrets against stored hashes in
// standard PHC string format.
//
// Verification accepts hashes produced under older cost parameters;
// NeedsUpgrade lets callers rehash opportunistically after a successful
// login.
package password
