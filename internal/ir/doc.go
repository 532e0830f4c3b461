// Package ir provides the value and result-set types shared by every other
// internal package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed interface (Null, Int, Float, String, Bool)
//   - Text values are NFC normalized on construction
//   - Column names are matched case-insensitively, as SQL identifiers are
//   - A QueryResult's column list never changes after construction
package ir
