package memutils

import (
	"fmt"

	cerrors "github.com/cockroachdb/errors"
)

// WholeSize is used in place of a flush or map size to indicate "to the end of the allocation".
// It becomes VK_WHOLE_SIZE when it reaches the driver.
const WholeSize int = -1

// Region is a half-open byte interval [Offset, Offset+Size) within a single memory allocation
type Region struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte past the end of the region
func (r Region) End() uint64 {
	return r.Offset + r.Size
}

// Empty is true when the region does not cover any bytes
func (r Region) Empty() bool {
	return r.Size == 0
}

// Contains reports whether other lies entirely within r
func (r Region) Contains(other Region) bool {
	return other.Offset >= r.Offset && other.End() <= r.End()
}

func (r Region) String() string {
	return fmt.Sprintf("[%d, %d)", r.Offset, r.End())
}

// CheckBounds returns an error if the region reaches past the end of an allocation of the
// provided size
func (r Region) CheckBounds(allocationSize uint64) error {
	if r.Offset > allocationSize || r.Size > allocationSize-r.Offset {
		return cerrors.Wrapf(RegionOutOfBoundsError, "region %s, allocation size %d", r, allocationSize)
	}
	return nil
}

// Overlaps reports whether the two regions share at least one byte
func Overlaps(a, b Region) bool {
	return Max(a.Offset, b.Offset) < Min(a.End(), b.End())
}

// Intersect returns the bytes shared by both regions. The result is only meaningful when
// Overlaps(a, b) is true; callers must check first.
func Intersect(a, b Region) Region {
	start := Max(a.Offset, b.Offset)
	end := Min(a.End(), b.End())
	return Region{Offset: start, Size: end - start}
}

// CheckedIntersect is Intersect, but returns NoOverlapError instead of a meaningless region
// when the two regions are disjoint
func CheckedIntersect(a, b Region) (Region, error) {
	if !Overlaps(a, b) {
		return Region{}, cerrors.Wrapf(NoOverlapError, "%s and %s", a, b)
	}
	return Intersect(a, b), nil
}
