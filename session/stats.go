package session

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildStatsString describes the device, its memory layout, the memory this session has
// allocated, and the work the restore engine has done, as a JSON object
func (s *ReplaySession) BuildStatsString() string {
	writer := jwriter.NewWriter()
	obj := writer.Object()

	device := obj.Name("Device").Object()
	if s.properties != nil {
		device.Name("Name").String(s.properties.DriverName)
		device.Name("Type").String(s.properties.DriverType.String())
	}
	device.Name("QueueFamily").Int(s.queueFamilyIndex)
	device.Name("Labels").Bool(s.labeler != nil)
	if s.extensions != nil {
		device.Name("DrawIndirectCount").Bool(s.extensions.HasDrawIndirectCount())
		device.Name("Swapchain").Bool(s.extensions.Swapchain)
	}
	device.End()

	memoryTypes := obj.Name("MemoryTypes").Array()
	for typeIndex := 0; typeIndex < s.memory.MemoryTypeCount(); typeIndex++ {
		memoryType := s.memory.MemoryTypeProperties(typeIndex)

		typeObj := memoryTypes.Object()
		typeObj.Name("Index").Int(typeIndex)
		typeObj.Name("HeapIndex").Int(memoryType.HeapIndex)
		typeObj.Name("Flags").String(memoryType.PropertyFlags.String())
		typeObj.End()
	}
	memoryTypes.End()

	heaps := obj.Name("MemoryHeaps").Array()
	for heapIndex := 0; heapIndex < s.memory.MemoryHeapCount(); heapIndex++ {
		heap := s.memory.MemoryHeapProperties(heapIndex)
		stats := s.memory.HeapStatistics(heapIndex)

		heapObj := heaps.Object()
		heapObj.Name("Index").Int(heapIndex)
		heapObj.Name("Size").Int(heap.Size)
		heapObj.Name("Flags").String(heap.Flags.String())
		heapObj.Name("BlockCount").Int(stats.BlockCount)
		heapObj.Name("BlockBytes").Int(stats.BlockBytes)
		heapObj.End()
	}
	heaps.End()

	if s.restorer != nil {
		stats := s.restorer.Statistics()

		restoreObj := obj.Name("Restore").Object()
		restoreObj.Name("Restores").Int(stats.RestoreCount)
		restoreObj.Name("RemapsApplied").Int(stats.RemapsApplied)
		restoreObj.Name("RemapsSkipped").Int(stats.RemapsSkipped)
		restoreObj.Name("BytesCopied").Int(int(stats.BytesCopied))
		restoreObj.Name("FlushRanges").Int(stats.FlushRanges)
		restoreObj.Name("WholeSizeFlushes").Int(stats.WholeSizeFlush)
		restoreObj.End()
	}

	if s.names != nil {
		obj.Name("NamedObjects").Int(s.names.Count())
	}

	obj.End()
	return string(writer.Bytes())
}
