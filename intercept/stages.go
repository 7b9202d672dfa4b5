package intercept

import (
	"github.com/bjoeris/renderdoc-sub003/memtype"
	"github.com/bjoeris/renderdoc-sub003/shim"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// MemoryTypeMask restricts the memory types reported by every memory requirements query to
// those in mask, so the replayed application only ever picks memory types that are also valid
// for the captured allocations. A query left with no memory types is an error.
func MemoryTypeMask(mask uint32) Interceptor {
	return InterceptorFunc(func(call Call, next Next) error {
		err := next(call)
		if err != nil {
			return err
		}

		requirements, ok := call.(*MemoryRequirementsCall)
		if !ok || requirements.Requirements == nil {
			return nil
		}

		masked := *requirements.Requirements
		masked.MemoryTypeBits &= mask
		if masked.MemoryTypeBits == 0 {
			return errors.Newf("memory type bits %#x share no memory types with mask %#x",
				requirements.Requirements.MemoryTypeBits, mask)
		}

		requirements.Requirements = &masked
		return nil
	})
}

// CompatibleTypeMask is the mask MemoryTypeMask should use for a resolver: every present-device
// memory type that some captured memory type translates to
func CompatibleTypeMask(resolver *memtype.Resolver) uint32 {
	captured := resolver.Captured()
	present := resolver.Present()
	if captured == nil || present == nil {
		return memtype.AllMemoryTypeBits(present)
	}

	all := memtype.AllMemoryTypeBits(present)
	var mask uint32
	for capturedIndex := range captured.MemoryTypes {
		index, found := resolver.Translate(capturedIndex, all)
		if found {
			mask |= 1 << uint(index)
		}
	}
	return mask
}

// RecordMemoryProperties keeps resolver's present-device memory table in step with what the
// driver reports
func RecordMemoryProperties(resolver *memtype.Resolver) Interceptor {
	return InterceptorFunc(func(call Call, next Next) error {
		err := next(call)
		if err != nil {
			return err
		}

		properties, ok := call.(*MemoryPropertiesCall)
		if ok && properties.Properties != nil {
			recorded := *properties.Properties
			recorded.MemoryTypes = slices.Clone(properties.Properties.MemoryTypes)
			recorded.MemoryHeaps = slices.Clone(properties.Properties.MemoryHeaps)
			resolver.SetPresent(&recorded)
		}
		return nil
	})
}

// PresentCounter advances frame around every present. The present that ends the target frame
// is marked on the call.
func PresentCounter(frame *shim.FrameState) Interceptor {
	return InterceptorFunc(func(call Call, next Next) error {
		present, ok := call.(*PresentCall)
		if !ok {
			return next(call)
		}

		present.TargetFrame = frame.BeginPresent()
		err := next(call)
		frame.EndPresent()
		return err
	})
}

// Trace logs every call passing through and any error it returns
func Trace(logger *slog.Logger) Interceptor {
	return InterceptorFunc(func(call Call, next Next) error {
		logger.Debug("intercepted call", slog.String("call", call.CallName()))

		err := next(call)
		if err != nil {
			logger.Error("intercepted call failed",
				slog.String("call", call.CallName()),
				slog.String("error", err.Error()),
			)
		}
		return err
	})
}
