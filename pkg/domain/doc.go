/*
Package domain contains the core domain models for the cairn engine.

It defines the fundamental entities of the prediction system: nodes,
transitions, procedures, sessions, recorded action events and the
structured error type shared by every layer. This package is kept pure
and free of external dependencies so it can be imported by adapters,
the runtime and host applications alike.
*/
package domain
