package util

import (
	"fmt"
	"os"
	"os/exec"
)

// LocateFFmpeg returns the path of the ffmpeg binary, taken from the FFMPEG
// environment variable or else $PATH.
func LocateFFmpeg() (string, error) {
	if p := os.Getenv("FFMPEG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("FFMPEG=%v: %w", p, err)
		}
		return p, nil
	}
	return exec.LookPath("ffmpeg")
}
