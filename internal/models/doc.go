// Package models defines the core domain models for partnerledger.
//
// # Models
//
//   - Transaction: a saved revenue record with its expense snapshot,
//     percentage split, and derived profit shares
//   - ExpenseItem: a single named deduction attached to a transaction
//   - TransactionPatch: a partial update; only non-nil fields are written
//   - User: a directory account with a partner or boss role
//   - Actor: the resolved identity making a request
//
// # Design Principles
//
//  1. Monetary values are decimals (shopspring/decimal), never floats.
//     Rounding happens only at display boundaries.
//  2. Derived fields (TotalExpenses, NetProfit, the two shares) are always
//     recomputed from their inputs via Recompute; they are never accepted
//     from a client as-is.
//  3. The two split percentages are complementary by construction: setting
//     one side fixes the other to 100 minus it.
//  4. Display names (PartnerName, CounterpartyName) are denormalized caches
//     of the roster entry at creation/edit time. A later roster rename does
//     not rewrite history; the cached name refreshes on the next edit.
package models
