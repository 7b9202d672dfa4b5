package memutils

// RestoreStatistics accumulates what the restore engine did to device memory
type RestoreStatistics struct {
	RestoreCount   int
	RemapsApplied  int
	RemapsSkipped  int
	BytesCopied    uint64
	FlushRanges    int
	WholeSizeFlush int
}

func (s *RestoreStatistics) Clear() {
	s.RestoreCount = 0
	s.RemapsApplied = 0
	s.RemapsSkipped = 0
	s.BytesCopied = 0
	s.FlushRanges = 0
	s.WholeSizeFlush = 0
}

func (s *RestoreStatistics) AddStatistics(other *RestoreStatistics) {
	s.RestoreCount += other.RestoreCount
	s.RemapsApplied += other.RemapsApplied
	s.RemapsSkipped += other.RemapsSkipped
	s.BytesCopied += other.BytesCopied
	s.FlushRanges += other.FlushRanges
	s.WholeSizeFlush += other.WholeSizeFlush
}

// HeapStatistics tracks real device memory allocations made for one heap
type HeapStatistics struct {
	BlockCount int
	BlockBytes int
}

func (s *HeapStatistics) Clear() {
	s.BlockCount = 0
	s.BlockBytes = 0
}

func (s *HeapStatistics) AddStatistics(other *HeapStatistics) {
	s.BlockCount += other.BlockCount
	s.BlockBytes += other.BlockBytes
}
