// Package policy is a pluggable password-policy engine.
//
// It archives previous password hashes when an account's password changes and prunes
// them to a retention limit, rejects reuse (and, optionally, trivial extensions) of
// archived passwords, and decides per request whether an account with an expired
// password should be warned or redirected to its reset route.
//
// The package never authenticates, hashes or stores credentials. Hosts plug in their
// persistence through Account/HistoryEntry and FlushHook, their hashing through Verifier,
// and their web pipeline through PrincipalResolver, URLGenerator, Notifier and Translator.
package policy
