package debugger

// AdapterAction says whether an Adapter launches a fresh debuggee or
// attaches to one already running.
type AdapterAction string

const (
	ActionLaunch AdapterAction = "launch"
	ActionAttach AdapterAction = "attach"
)

// Adapter describes one debug-back-end preset: which action to take,
// the raw argument blob for it, and the adapter-specific transforms the
// engine must apply before handing arguments or expressions to
// DebugSession.
type Adapter interface {
	Name() string
	Action() AdapterAction

	// AsyncStopThread is the thread id to pause on immediately after
	// attach, if the adapter hints one; ok is false if it does not.
	AsyncStopThread() (id int, ok bool)

	// SupportsCodeBlocks reports whether evaluateExpression may be
	// given a multi-statement block rather than a single expression.
	SupportsCodeBlocks() bool

	TransformLaunchArguments(raw map[string]interface{}) map[string]interface{}
	TransformAttachArguments(raw map[string]interface{}) map[string]interface{}
	TransformExpression(expr string, isBlockOfCode bool) string
}
