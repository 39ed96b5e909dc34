// Package models defines the core domain models for TripMate.
//
// # Models
//
//   - User: a website account, created on first contact from the bot and
//     identified by its linked LINE user ID
//   - Bill: a shared expense group with participants and a running total
//   - Expense: a single payment recorded against a bill by one payer
//   - Trip: a planned trip that can be listed, filtered and ranked
//
// Settlement results are not models: they are derived on demand by the
// calculator package and never stored.
//
// # Conventions
//
//  1. IDs are UUID strings generated by the store when left empty
//  2. Relationships use ID strings, never pointers
//  3. Timestamps are Unix seconds; calendar dates are "YYYY-MM-DD" strings
package models
