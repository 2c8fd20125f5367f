// Package shared holds code used across packages that belongs to no
// single layer.
//
// The testutil subpackage provides a buffered slog handler for asserting
// on log output:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    runThing(logger)
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "thing done")
//	}
package shared
