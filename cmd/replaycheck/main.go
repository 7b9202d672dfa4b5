// Command replaycheck opens a replay session on the first Vulkan device, restores a buffer and
// an image through staging memory, verifies the restored contents, and replays a short
// synthetic frame loop that dumps the target frame. It exits non-zero on the first failure.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/bjoeris/renderdoc-sub003/intercept"
	"github.com/bjoeris/renderdoc-sub003/session"
	"github.com/bjoeris/renderdoc-sub003/shim"
	"github.com/bjoeris/renderdoc-sub003/transfer"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"github.com/vkngwrapper/extensions/v2/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"golang.org/x/exp/slog"
)

const (
	checkBufferSize = 64 * 1024
	checkImageSize  = 256

	// presentImageCount is the number of headless images the virtual swapchain presents to
	presentImageCount = 2

	// maxFrames bounds the frame loop when the target frame is disabled
	maxFrames = 16
)

type application struct {
	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	physicalDevice core1_0.PhysicalDevice
	device         core1_0.Device
	queues         []core1_0.DeviceQueueCreateInfo
}

func createApplication(logger *slog.Logger) (*application, error) {
	loader, err := core.CreateSystemLoader()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load vulkan")
	}

	instanceExtensions, _, err := loader.AvailableExtensions()
	if err != nil {
		return nil, err
	}

	logDebug := func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
		logger.Warn(data.Message, slog.Any("severity", severity), slog.Any("type", msgType))
		return false
	}
	messengerInfo := ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}

	instanceExtensionNames := []string{ext_debug_utils.ExtensionName}
	var flags core1_0.InstanceCreateFlags
	_, ok := instanceExtensions[khr_portability_enumeration.ExtensionName]
	if ok {
		instanceExtensionNames = append(instanceExtensionNames, khr_portability_enumeration.ExtensionName)
		flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	instance, _, err := loader.CreateInstance(nil, core1_0.InstanceCreateInfo{
		ApplicationName:       "replaycheck",
		ApplicationVersion:    common.CreateVersion(1, 0, 0),
		EngineName:            "replaycheck",
		EngineVersion:         common.CreateVersion(1, 0, 0),
		APIVersion:            common.Vulkan1_0,
		EnabledExtensionNames: instanceExtensionNames,
		Flags:                 flags,
		NextOptions:           common.NextOptions{Next: messengerInfo},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create instance")
	}

	app := &application{instance: instance}

	debugLoader := ext_debug_utils.CreateExtensionFromInstance(instance)
	app.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(instance, nil, messengerInfo)
	if err != nil {
		app.destroy()
		return nil, errors.Wrap(err, "failed to create debug messenger")
	}

	gpus, _, err := instance.EnumeratePhysicalDevices()
	if err != nil {
		app.destroy()
		return nil, err
	}
	if len(gpus) == 0 {
		app.destroy()
		return nil, errors.New("no vulkan devices found")
	}
	app.physicalDevice = gpus[0]

	graphicsFamily := -1
	for familyIndex, family := range app.physicalDevice.QueueFamilyProperties() {
		if family.QueueFlags&core1_0.QueueGraphics != 0 {
			graphicsFamily = familyIndex
			break
		}
	}
	if graphicsFamily < 0 {
		app.destroy()
		return nil, errors.New("the device has no graphics queue family")
	}

	var deviceExtensionNames []string
	deviceExtensions, _, err := app.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		app.destroy()
		return nil, err
	}

	_, ok = deviceExtensions[khr_portability_subset.ExtensionName]
	if ok {
		deviceExtensionNames = append(deviceExtensionNames, khr_portability_subset.ExtensionName)
	}

	app.queues = []core1_0.DeviceQueueCreateInfo{
		{
			QueueFamilyIndex: graphicsFamily,
			QueuePriorities:  []float32{0.0},
		},
	}
	app.device, _, err = app.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      app.queues,
		EnabledExtensionNames: deviceExtensionNames,
	})
	if err != nil {
		app.destroy()
		return nil, errors.Wrap(err, "failed to create device")
	}

	return app, nil
}

func (a *application) destroy() {
	if a.device != nil {
		_, _ = a.device.WaitIdle()
		a.device.Destroy(nil)
	}
	if a.debugMessenger != nil {
		a.debugMessenger.Destroy(nil)
	}
	a.instance.Destroy(nil)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	config, err := shim.ConfigFromEnv(shim.DefaultPrefix)
	if err != nil {
		session.Fatal(logger, err)
	}

	// vkngwrapper objects must stay on one OS thread for the lifetime of the device
	runtime.LockOSThread()

	err = run(logger, config)
	runtime.UnlockOSThread()
	if err != nil {
		session.Fatal(logger, err)
	}
}

func run(logger *slog.Logger, config shim.Config) error {
	app, err := createApplication(logger)
	if err != nil {
		return err
	}
	defer app.destroy()

	replay, err := session.Open(logger, app.instance, app.physicalDevice, app.device, session.Options{
		DeviceQueues: app.queues,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeErr := replay.Close()
		if closeErr != nil {
			logger.Error("failed to close replay session", slog.String("error", closeErr.Error()))
		}
	}()

	class, err := replay.ClassifyQueue(replay.Queue())
	if err != nil {
		return err
	}
	logger.Info("replay session open",
		slog.String("device", replay.Properties().DriverName),
		slog.String("queue", class.String()),
		slog.Bool("labels", replay.HasLabels()),
	)

	presents := shim.NewFrameState(config.CaptureFrame)
	pipeline, err := buildPipeline(logger, replay, presents)
	if err != nil {
		return err
	}

	err = pipeline.Dispatch(&intercept.MemoryPropertiesCall{PhysicalDevice: app.physicalDevice}, intercept.QueryMemoryProperties)
	if err != nil {
		return err
	}

	err = checkBufferRestore(logger, replay, pipeline)
	if err != nil {
		return err
	}

	target, err := createCheckImage(logger, replay)
	if err != nil {
		return err
	}
	defer target.Destroy()

	err = replayFrames(logger, replay, pipeline, config, target)
	if err != nil {
		return err
	}

	logger.Info("replay statistics", slog.String("stats", replay.BuildStatsString()))
	return nil
}

// nameObject records a debug name for handle and forwards it to the driver. Naming failures are
// only logged.
func nameObject(logger *slog.Logger, replay *session.ReplaySession, handle driver.VulkanHandle, objectType core1_0.ObjectType, name string) uint64 {
	err := replay.SetObjectName(handle, objectType, name)
	if err != nil {
		logger.Warn("failed to name object", slog.String("name", name), slog.String("error", err.Error()))
	}
	return uint64(handle)
}

// buildPipeline chains the interceptors every replayed call passes through. presents counts
// frames for the present calls the frame loop dispatches.
func buildPipeline(logger *slog.Logger, replay *session.ReplaySession, presents *shim.FrameState) (*intercept.Pipeline, error) {
	pipeline := intercept.NewPipeline(logger)

	err := pipeline.Use("trace", intercept.Trace(logger))
	if err != nil {
		return nil, err
	}

	err = pipeline.Use("memoryProperties", intercept.RecordMemoryProperties(replay.Resolver()))
	if err != nil {
		return nil, err
	}

	err = pipeline.Use("memoryTypeMask", intercept.MemoryTypeMask(intercept.CompatibleTypeMask(replay.Resolver())))
	if err != nil {
		return nil, err
	}

	err = pipeline.Use("presentCounter", intercept.PresentCounter(presents))
	if err != nil {
		return nil, err
	}

	return pipeline, nil
}

// checkBufferRestore stages a patterned buffer, copies it on the device into a second host
// buffer and verifies that the copy matches
func checkBufferRestore(logger *slog.Logger, replay *session.ReplaySession, pipeline *intercept.Pipeline) error {
	data := make([]byte, checkBufferSize)
	for i := range data {
		data[i] = byte(i * 7)
	}

	src, err := replay.Stager().InitializeSourceBuffer(data, nil)
	if err != nil {
		return err
	}
	defer src.Destroy()
	nameObject(logger, replay, driver.VulkanHandle(src.Buffer.Handle()), core1_0.ObjectTypeBuffer, "restore source")

	dst, err := replay.Stager().InitializeDestinationBuffer(checkBufferSize)
	if err != nil {
		return err
	}
	defer dst.Destroy()
	dstHandle := nameObject(logger, replay, driver.VulkanHandle(dst.Buffer.Handle()), core1_0.ObjectTypeBuffer, "restore destination")

	requirements := &intercept.MemoryRequirementsCall{Resource: dst.Buffer}
	err = pipeline.Dispatch(requirements, intercept.QueryMemoryRequirements)
	if err != nil {
		return err
	}
	compatibility := replay.Resolver().Check(dst.MemoryType, *requirements.Requirements)
	logger.Debug("restore destination memory", slog.String("compatibility", compatibility.String()))

	err = replay.Execute(func(cmd core1_0.CommandBuffer) error {
		replay.BeginLabel(cmd, "restore buffer")
		defer replay.EndLabel(cmd)
		return replay.Copier().ResetBuffer(cmd, dst.Buffer, src.Buffer, checkBufferSize)
	}, session.WaitIdle)
	if err != nil {
		return err
	}

	_, err = dst.Invalidate()
	if err != nil {
		return err
	}

	same, err := transfer.VerifyUnchanged(logger,
		src.Memory.VulkanDeviceMemory(), 0,
		dst.Memory.VulkanDeviceMemory(), 0,
		checkBufferSize, replay.Names().MustLookup(dstHandle, core1_0.ObjectTypeBuffer))
	if err != nil {
		return err
	}
	if !same {
		return errors.New("restored buffer does not match its source")
	}

	logger.Info("buffer restore verified", slog.Int("bytes", checkBufferSize))
	return nil
}

type checkImage struct {
	image   core1_0.Image
	info    transfer.ImageInfo
	destroy func()
}

func (i *checkImage) Destroy() { i.destroy() }

// createCheckImage creates a color image and restores a gradient into it
func createCheckImage(logger *slog.Logger, replay *session.ReplaySession) (*checkImage, error) {
	info := transfer.ImageInfo{
		Format:      core1_0.FormatR8G8B8A8UnsignedNormalized,
		Extent:      core1_0.Extent3D{Width: checkImageSize, Height: checkImageSize, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Layout:      core1_0.ImageLayoutGeneral,
	}

	image, _, err := replay.Memory().CreateDeviceImage(core1_0.ImageCreateInfo{
		ImageType:     core1_0.ImageType2D,
		Format:        info.Format,
		Extent:        info.Extent,
		MipLevels:     info.MipLevels,
		ArrayLayers:   info.ArrayLayers,
		Samples:       core1_0.Samples1,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageTransferSrc | core1_0.ImageUsageTransferDst | core1_0.ImageUsageColorAttachment,
		SharingMode:   core1_0.SharingModeExclusive,
		InitialLayout: core1_0.ImageLayoutUndefined,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create check image")
	}
	imageHandle := nameObject(logger, replay, driver.VulkanHandle(image.Image.Handle()), core1_0.ObjectTypeImage, "check image")

	pixels := make([]byte, transfer.RegionSize(info))
	for y := 0; y < checkImageSize; y++ {
		for x := 0; x < checkImageSize; x++ {
			texel := pixels[(y*checkImageSize+x)*4:]
			texel[0] = byte(x)
			texel[1] = byte(y)
			texel[2] = byte(x ^ y)
			texel[3] = 0xff
		}
	}

	staging, err := replay.Stager().InitializeSourceBuffer(pixels, nil)
	if err != nil {
		image.Destroy()
		return nil, err
	}
	defer staging.Destroy()

	err = replay.Execute(func(cmd core1_0.CommandBuffer) error {
		return replay.Copier().ResetImage(cmd, image.Image, staging.Buffer, info)
	}, session.WaitIdle)
	if err != nil {
		image.Destroy()
		return nil, err
	}

	logger.Info("image restored", slog.String("image", replay.Names().MustLookup(imageHandle, core1_0.ObjectTypeImage)))
	return &checkImage{image: image.Image, info: info, destroy: image.Destroy}, nil
}

// createPresentImages creates the headless images the virtual swapchain presents into. They stand
// in for the images a real swapchain would own.
func createPresentImages(logger *slog.Logger, replay *session.ReplaySession, createInfo core1_0.ImageCreateInfo) ([]core1_0.Image, func(), error) {
	var images []core1_0.Image
	var owned []func()
	destroy := func() {
		for _, destroyImage := range owned {
			destroyImage()
		}
	}

	for i := 0; i < presentImageCount; i++ {
		image, _, err := replay.Memory().CreateDeviceImage(createInfo)
		if err != nil {
			destroy()
			return nil, nil, errors.Wrapf(err, "failed to create present image %d", i)
		}
		owned = append(owned, image.Destroy)
		images = append(images, image.Image)
		nameObject(logger, replay, driver.VulkanHandle(image.Image.Handle()), core1_0.ObjectTypeImage, fmt.Sprintf("present image %d", i))
	}

	return images, destroy, nil
}

// recordFrame draws one frame into virtual image index by copying the check image into it, and
// leaves the virtual image in PRESENT_SRC
func recordFrame(cmd core1_0.CommandBuffer, replay *session.ReplaySession, swapchain *shim.VirtualSwapchain, index int, target *checkImage) error {
	attachment := swapchain.Attachment(index)

	// The whole image is overwritten, so its previous contents are discarded
	err := transfer.TransitionWholeImage(cmd, attachment.Image, attachment.Info, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutUndefined)
	if err != nil {
		return err
	}

	err = replay.Copier().CopyImage(cmd, target.image, target.info.Layout, attachment.Image, core1_0.ImageLayoutTransferDstOptimal, target.info.Extent, core1_0.ImageAspectColor)
	if err != nil {
		return err
	}

	return transfer.TransitionWholeImage(cmd, attachment.Image, attachment.Info, khr_swapchain.ImageLayoutPresentSrc, core1_0.ImageLayoutTransferDstOptimal)
}

// replayFrames runs a synthetic frame loop over a virtual swapchain. Each frame is one render
// pass drawing into the next virtual image; the target frame's pass is read back and the
// screenshot written when it is presented. Presents go through pipeline so the present counter
// sees them.
func replayFrames(logger *slog.Logger, replay *session.ReplaySession, pipeline *intercept.Pipeline, config shim.Config, target *checkImage) error {
	createInfo := core1_0.ImageCreateInfo{
		ImageType:     core1_0.ImageType2D,
		Format:        target.info.Format,
		Extent:        target.info.Extent,
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       core1_0.Samples1,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageTransferDst | core1_0.ImageUsageColorAttachment,
		SharingMode:   core1_0.SharingModeExclusive,
		InitialLayout: core1_0.ImageLayoutUndefined,
	}

	presentImages, destroyPresentImages, err := createPresentImages(logger, replay, createInfo)
	if err != nil {
		return err
	}
	defer destroyPresentImages()

	swapchain, err := shim.NewVirtualSwapchain(logger, replay.Memory(), replay.Copier(), presentImages, createInfo)
	if err != nil {
		return err
	}
	defer swapchain.Destroy()

	for i := 0; i < swapchain.ImageCount(); i++ {
		nameObject(logger, replay, driver.VulkanHandle(swapchain.Image(i).Handle()), core1_0.ObjectTypeImage, fmt.Sprintf("virtual swapchain image %d", i))
	}

	frameShim := shim.New(logger, config, replay.Copier(), replay.Stager(), replay)

	waitIdle := func() error {
		res, err := replay.Queue().WaitIdle()
		if err != nil {
			return errors.Wrapf(err, "vkQueueWaitIdle failed with %s", res)
		}
		return nil
	}

	presentToImage := func(call intercept.Call) error {
		present, ok := call.(*intercept.PresentCall)
		if !ok {
			return errors.Newf("cannot present %s", call.CallName())
		}

		err := replay.Execute(func(cmd core1_0.CommandBuffer) error {
			return swapchain.RecordPresentCopy(cmd, present.ImageIndex)
		}, session.WaitIdle)
		if err != nil {
			return err
		}

		present.Result = core1_0.VKSuccess
		if present.TargetFrame {
			logger.Info("presented target frame", slog.Int("image", present.ImageIndex))
		}
		return nil
	}

	for frame := 0; frame < maxFrames && !frameShim.ShouldQuit(); frame++ {
		index := frame % swapchain.ImageCount()
		attachment := swapchain.Attachment(index)

		err := replay.Execute(func(cmd core1_0.CommandBuffer) error {
			replay.BeginLabel(cmd, fmt.Sprintf("frame %d", frame))
			defer replay.EndLabel(cmd)

			frameShim.OnRenderPassBegin(cmd, shim.RenderPassInfo{
				Name:        "main",
				Attachments: []shim.ImageAndView{attachment},
			})

			err := recordFrame(cmd, replay, swapchain, index, target)
			if err != nil {
				return err
			}

			return frameShim.OnRenderPassEnd(cmd)
		}, session.NoWait)
		if err != nil {
			return err
		}

		err = frameShim.OnQueueSubmit([]core1_0.CommandBuffer{replay.CommandBuffer()}, waitIdle)
		if err != nil {
			return err
		}

		err = frameShim.Present(func() error {
			return pipeline.Dispatch(&intercept.PresentCall{Queue: replay.Queue(), ImageIndex: index}, presentToImage)
		}, &attachment)
		if err != nil {
			return err
		}
	}

	if frameShim.ShouldQuit() {
		logger.Info("target frame written",
			slog.Int("frame", config.CaptureFrame),
			slog.String("dir", frameShim.Writer().Dir()),
			slog.Int("images", len(frameShim.Writer().Entries())),
		)
	}
	return nil
}
