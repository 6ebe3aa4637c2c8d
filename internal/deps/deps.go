package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds how long a tool may take to print its version.
const versionTimeout = 3 * time.Second

// Status reports whether an external tool the backend shells out to is usable.
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
}

// Check looks binary up in PATH (or uses it as a path) and runs it with
// versionArgs to read the first line of its version banner.
func Check(binary string, versionArgs ...string) Status {
	status := Status{Name: binary}
	path, err := exec.LookPath(binary)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if len(versionArgs) == 0 {
		return status
	}
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, versionArgs...).CombinedOutput()
	if err == nil {
		status.Version = firstLine(string(output))
	}
	return status
}

// CheckWhisperCli checks the whisper.cpp command line binary. An empty
// binary means whisper-cli.
func CheckWhisperCli(binary string) Status {
	if binary == "" {
		binary = "whisper-cli"
	}
	return Check(binary, "--version")
}

// CheckFFmpeg checks the ffmpeg binary used to convert uploads to 16kHz wav.
func CheckFFmpeg(binary string) Status {
	if binary == "" {
		binary = "ffmpeg"
	}
	return Check(binary, "-version")
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
