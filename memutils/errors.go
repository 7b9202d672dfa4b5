package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// RegionOutOfBoundsError is returned when a Region reaches past the end of the allocation that contains it
var RegionOutOfBoundsError error = errors.New("region extends past the end of its allocation")

// NoOverlapError is returned from CheckedIntersect when the two regions do not share any bytes
var NoOverlapError error = errors.New("regions do not overlap")
