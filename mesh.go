package fgddem

import (
	"fmt"
	"strconv"
)

// ValidateMeshCodes checks that every mesh code in a batch is a 6-digit
// second-level or 8-digit third-level code and that the batch does not mix
// the two levels.
func ValidateMeshCodes(meshCodes []int) error {
	var second, third bool
	for _, meshCode := range meshCodes {
		switch len(strconv.Itoa(meshCode)) {
		case 6:
			second = true
		case 8:
			third = true
		default:
			return fmt.Errorf("%w: %d", ErrInvalidMeshCode, meshCode)
		}
	}
	if second && third {
		return fmt.Errorf("%w: batch contains both second- and third-level codes", ErrMixedMeshLevel)
	}
	return nil
}
