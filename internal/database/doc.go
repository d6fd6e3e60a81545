// Package database provides the SQLite run ledger for flatparser.
//
// The ledger stores one row per run (parser or data modifier invocation)
// and one row per task outcome, so `flatparser history` can list previous
// runs and show which addresses failed and why. Each outcome carries a
// SHA3-256 fingerprint of its originating row, which identifies the input
// record without storing its contents.
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver; the
// database is a single file in the XDG data directory unless configured
// otherwise.
package database
