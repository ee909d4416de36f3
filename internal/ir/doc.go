// Package ir provides the declaration and trace record types shared by the
// compiler, engine, store and harness.
//
// This package contains type definitions only. It imports nothing internal
// except package field, which is itself a leaf. All JSON tags use
// snake_case.
package ir
