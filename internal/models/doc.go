// Package models defines the core domain models for expensekey.
//
// # Models
//
//   - Group: one shared ledger (members, expenses, activity log)
//   - Member: a person in a group, admitted by unanimous approval of active members
//   - Expense: money paid by one member on behalf of a fixed set of members
//   - ActivityEntry: immutable audit record of one state transition
//   - Settlement: a suggested transfer that moves balances towards zero
//
// # Design Principles
//
// 1. **Integer money**: amounts are int64 minor units (cents), never floats
// 2. **IDs, not pointers**: relationships use id strings to avoid circular references
// 3. **Value semantics**: models are plain data; Clone produces independent copies so
// snapshots handed to readers never alias the ledger's working state
// 4. **Frozen history**: activity entries carry a copy of the actor, not a reference
package models
