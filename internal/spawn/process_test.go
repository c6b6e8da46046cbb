package spawn_test

import (
	"os"
	"os/exec"
	"testing"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isProcessAlive reports whether a process with the given pid exists.
// A process that has exited and been reaped is not alive.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return false
	}

	return exists
}

func TestIsProcessAlive(t *testing.T) {
	assert.True(t, isProcessAlive(os.Getpid()))

	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	assert.False(t, isProcessAlive(cmd.Process.Pid))

	assert.False(t, isProcessAlive(0))
}
