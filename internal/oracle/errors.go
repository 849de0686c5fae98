package oracle

import (
	"errors"
	"fmt"
)

// ContractError reports that the oracle failed to satisfy a caller's
// structured-output contract after exhausting retries. LastOutput
// carries the final raw reply for diagnosis.
type ContractError struct {
	Op         string // which operation's contract was violated
	Reason     string
	LastOutput string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("oracle contract violation in %s: %s", e.Op, e.Reason)
}

// IsContractError reports whether err is (or wraps) a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
