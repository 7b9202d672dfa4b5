package memutils

import (
	"testing"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

var overlapTestCases = map[string]struct {
	A, B     Region
	Overlaps bool
	Expected Region
}{
	"Disjoint": {
		A:        Region{Offset: 0, Size: 10},
		B:        Region{Offset: 20, Size: 10},
		Overlaps: false,
	},
	"Adjacent": {
		A:        Region{Offset: 0, Size: 10},
		B:        Region{Offset: 10, Size: 10},
		Overlaps: false,
	},
	"Partial": {
		A:        Region{Offset: 0, Size: 10},
		B:        Region{Offset: 5, Size: 10},
		Overlaps: true,
		Expected: Region{Offset: 5, Size: 5},
	},
	"Contained": {
		A:        Region{Offset: 0, Size: 100},
		B:        Region{Offset: 40, Size: 8},
		Overlaps: true,
		Expected: Region{Offset: 40, Size: 8},
	},
	"SingleByte": {
		A:        Region{Offset: 9, Size: 1},
		B:        Region{Offset: 0, Size: 10},
		Overlaps: true,
		Expected: Region{Offset: 9, Size: 1},
	},
	"Empty": {
		A:        Region{Offset: 5, Size: 0},
		B:        Region{Offset: 0, Size: 10},
		Overlaps: false,
	},
}

func TestOverlapAndIntersect(t *testing.T) {
	for testName, testCase := range overlapTestCases {
		t.Run(testName, func(t *testing.T) {
			require.Equal(t, testCase.Overlaps, Overlaps(testCase.A, testCase.B))
			require.Equal(t, testCase.Overlaps, Overlaps(testCase.B, testCase.A))

			if !testCase.Overlaps {
				_, err := CheckedIntersect(testCase.A, testCase.B)
				require.True(t, cerrors.Is(err, NoOverlapError))
				return
			}

			require.Equal(t, testCase.Expected, Intersect(testCase.A, testCase.B))
			require.Equal(t, testCase.Expected, Intersect(testCase.B, testCase.A))

			inter, err := CheckedIntersect(testCase.A, testCase.B)
			require.NoError(t, err)
			require.Equal(t, testCase.Expected, inter)
		})
	}
}

func TestIntersectSelf(t *testing.T) {
	regions := []Region{
		{Offset: 0, Size: 1},
		{Offset: 7, Size: 13},
		{Offset: 4096, Size: 65536},
	}

	for _, region := range regions {
		require.True(t, Overlaps(region, region))
		require.Equal(t, region, Intersect(region, region))
	}
}

func TestRegionCheckBounds(t *testing.T) {
	require.NoError(t, Region{Offset: 0, Size: 64}.CheckBounds(64))
	require.NoError(t, Region{Offset: 64, Size: 0}.CheckBounds(64))

	err := Region{Offset: 60, Size: 8}.CheckBounds(64)
	require.True(t, cerrors.Is(err, RegionOutOfBoundsError))

	err = Region{Offset: 65, Size: 0}.CheckBounds(64)
	require.True(t, cerrors.Is(err, RegionOutOfBoundsError))
}

func TestRegionContains(t *testing.T) {
	outer := Region{Offset: 16, Size: 32}
	require.True(t, outer.Contains(Region{Offset: 16, Size: 32}))
	require.True(t, outer.Contains(Region{Offset: 20, Size: 4}))
	require.False(t, outer.Contains(Region{Offset: 8, Size: 16}))
	require.False(t, outer.Contains(Region{Offset: 40, Size: 16}))
}

func TestRemapVec(t *testing.T) {
	remaps := MemoryRemapVec{
		{Capture: Region{Offset: 0, Size: 16}, Replay: Region{Offset: 0, Size: 32}},
		{Capture: Region{Offset: 16, Size: 16}, Replay: Region{Offset: 64, Size: 8}},
	}

	require.False(t, remaps.Identity())
	require.True(t, MemoryRemapVec{}.Identity())
	require.Equal(t, uint64(72), remaps.ReplayExtent())
	require.Equal(t, uint64(16), remaps[0].CopySize())
	require.Equal(t, uint64(8), remaps[1].CopySize())

	require.NoError(t, remaps.Validate(72))
	require.True(t, cerrors.Is(remaps.Validate(70), RegionOutOfBoundsError))
}
