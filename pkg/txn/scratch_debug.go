//go:build debug

package txn

// scratchMisuse aborts, mirroring fsl_cx_scratchpad's documented
// "fails fatally if it needs more than it has" behavior. Only wired
// into debug builds so production code degrades instead of crashing.
func scratchMisuse(msg string) {
	panic("txn: " + msg)
}
