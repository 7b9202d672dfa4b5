package shim

// State is the position of a replay run relative to its target frame
type State int

const (
	// StateIdle means diagnostics are disabled and every frame passes through
	StateIdle State = iota
	// StateArmedForTarget means the target frame has not been reached yet
	StateArmedForTarget
	// StateTargetReached means the frame currently being rendered is the target frame
	StateTargetReached
	// StateQuit means the target frame has been presented and the replay loop should stop
	StateQuit
)

var stateNames = map[State]string{
	StateIdle:           "Idle",
	StateArmedForTarget: "ArmedForTarget",
	StateTargetReached:  "TargetReached",
	StateQuit:           "Quit",
}

func (s State) String() string {
	return stateNames[s]
}

// FrameState counts presents and decides which frame is the target frame. The frame rendered
// while the present counter equals the target is the target frame; once that frame's present
// returns, the quit flag is set and stays set.
type FrameState struct {
	target  int
	counter int
	quit    bool
}

// NewFrameState creates a FrameState for the provided target present index. A negative target
// disables diagnostics.
func NewFrameState(target int) *FrameState {
	return &FrameState{target: target}
}

func (f *FrameState) Target() int { return f.target }

// PresentIndex is the number of presents that have completed
func (f *FrameState) PresentIndex() int { return f.counter }

func (f *FrameState) IsTargetFrame() bool {
	return !f.quit && f.target >= 0 && f.counter == f.target
}

func (f *FrameState) ShouldQuit() bool { return f.quit }

func (f *FrameState) State() State {
	switch {
	case f.target < 0:
		return StateIdle
	case f.quit:
		return StateQuit
	case f.counter == f.target:
		return StateTargetReached
	}
	return StateArmedForTarget
}

// BeginPresent is called when a present call starts and reports whether it presents the
// target frame
func (f *FrameState) BeginPresent() bool {
	return f.IsTargetFrame()
}

// EndPresent is called when a present call returns
func (f *FrameState) EndPresent() {
	if f.IsTargetFrame() {
		f.quit = true
	}
	f.counter++
}
