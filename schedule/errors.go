package schedule

import "github.com/clusterforge/streamkm/kmerr"

func tileMismatchError(runnableName string) error {
	return kmerr.New("scheduler.Run", kmerr.CodeConsistency,
		"binary runnable "+runnableName+" operands disagree on tile count")
}
