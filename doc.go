// Package hold implements a FIFO position ledger for a small portfolio subject
// to a minimum holding period.
//
// The ledger is the auditable source of truth that trading suggestions are
// checked against:
//   - Lot Store: the purchase lots of every ticker, always kept in FIFO order
//     (ascending purchase date) and persisted as a single JSON state file.
//   - Consolidation: per ticker totals, weighted average cost, lock status and
//     P&L derived from the lots and a price snapshot.
//   - FIFO Resolution: how much of a position may be sold on a given day, the
//     oldest lots being consumed first.
//   - Validation: a sequence of proposed SELL, BUY and HOLD actions simulated
//     step by step against a single running cash balance.
//   - Recording: trades executed elsewhere applied back into the lots.
//
// None of these operations perform I/O. Prices are given as a snapshot and
// persistence is isolated in Decode and Encode so that the command line tool
// loads the state once and writes it once.
package hold
