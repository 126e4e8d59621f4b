// Package votingengine implements sealed commit-reveal governance voting.
//
// Voters first commit a digest of their ballot together with the weight they
// reserve, then reveal the ballot and its salt once the commit window has
// closed. The module also owns the delegation registry, the reputation and
// token ledger that gate participation, and the outbox that carries every
// state change to the worker process.
package votingengine
