package session

import (
	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
)

// Labeler annotates command buffers for graphics debuggers
type Labeler interface {
	BeginLabel(cmd core1_0.CommandBuffer, name string)
	EndLabel(cmd core1_0.CommandBuffer)
	InsertLabel(cmd core1_0.CommandBuffer, name string)
}

type debugUtilsLabeler struct {
	debugUtils ext_debug_utils.Extension
}

func newLabeler(extensions *vulkan.ExtensionData) Labeler {
	if extensions == nil || extensions.DebugUtils == nil {
		return nil
	}
	return &debugUtilsLabeler{debugUtils: extensions.DebugUtils}
}

func (l *debugUtilsLabeler) BeginLabel(cmd core1_0.CommandBuffer, name string) {
	l.debugUtils.CmdBeginDebugUtilsLabel(cmd, ext_debug_utils.DebugUtilsLabel{LabelName: name})
}

func (l *debugUtilsLabeler) EndLabel(cmd core1_0.CommandBuffer) {
	l.debugUtils.CmdEndDebugUtilsLabel(cmd)
}

func (l *debugUtilsLabeler) InsertLabel(cmd core1_0.CommandBuffer, name string) {
	l.debugUtils.CmdInsertDebugUtilsLabel(cmd, ext_debug_utils.DebugUtilsLabel{LabelName: name})
}

// HasLabels is true when debug utils labels are available
func (s *ReplaySession) HasLabels() bool {
	return s.labeler != nil
}

// BeginLabel opens a labeled region in cmd. It does nothing when debug utils are absent.
func (s *ReplaySession) BeginLabel(cmd core1_0.CommandBuffer, name string) {
	if s.labeler != nil {
		s.labeler.BeginLabel(cmd, name)
	}
}

func (s *ReplaySession) EndLabel(cmd core1_0.CommandBuffer) {
	if s.labeler != nil {
		s.labeler.EndLabel(cmd)
	}
}

func (s *ReplaySession) InsertLabel(cmd core1_0.CommandBuffer, name string) {
	if s.labeler != nil {
		s.labeler.InsertLabel(cmd, name)
	}
}

// SetObjectName records name in the session's name table and passes the table's display name
// for the object on to the driver through debug utils. Without debug utils only the table is
// updated.
func (s *ReplaySession) SetObjectName(handle driver.VulkanHandle, objectType core1_0.ObjectType, name string) error {
	s.names.Insert(uint64(handle), objectType, name)

	if s.extensions == nil || s.extensions.DebugUtils == nil {
		return nil
	}

	displayName, _ := s.names.Lookup(uint64(handle), objectType)
	res, err := s.extensions.DebugUtils.SetDebugUtilsObjectName(s.device, ext_debug_utils.DebugUtilsObjectNameInfo{
		ObjectName:   displayName,
		ObjectHandle: handle,
		ObjectType:   objectType,
	})
	if err != nil {
		return wrapResult(err, res, "vkSetDebugUtilsObjectNameEXT")
	}
	return nil
}
