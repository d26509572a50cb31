package lifecycle

import "fmt"

// Mode selects which phases an invocation executes.
type Mode string

const (
	ModeInstall  Mode = "install"
	ModeConnect  Mode = "connect"
	ModeRun      Mode = "run"
	ModeStartRun Mode = "startRun"
	ModeStopRun  Mode = "stopRun"
)

// ParseMode maps a CLI verb to its Mode.
func ParseMode(verb string) (Mode, error) {
	switch Mode(verb) {
	case ModeInstall, ModeConnect, ModeRun, ModeStartRun, ModeStopRun:
		return Mode(verb), nil
	}
	return "", fmt.Errorf("unrecognized operation %q", verb)
}

// impliesTeardown reports whether the mode ends by stopping the instance.
// Connect leaves the session to the user and StartRun leaves the workload
// running for later inspection.
func (m Mode) impliesTeardown() bool {
	switch m {
	case ModeRun, ModeStopRun:
		return true
	case ModeInstall:
		return true // gated on the auto-stop flag by the orchestrator
	}
	return false
}
