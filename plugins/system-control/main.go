// Package main provides a system control plugin. It handles volume,
// brightness and media playback from pad strikes; volume steps grow with
// strike intensity.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action    string          `json:"action"`
	Pad       string          `json:"pad"`
	Intensity float64         `json:"intensity"`
	Velocity  float64         `json:"velocity"`
	Config    json.RawMessage `json:"config"`
	Params    json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	minVolumeStep = 2
	maxVolumeStep = 20
)

// command is one platform invocation.
type command struct {
	name string
	args []string
}

func osascript(script string) command {
	return command{name: "osascript", args: []string{"-e", script}}
}

func keyCode(code int) command {
	return osascript(fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code))
}

// volumeStep maps intensity in [0, 1] to a volume change in percent.
func volumeStep(intensity float64) int {
	if math.IsNaN(intensity) || intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return minVolumeStep + int(math.Round(intensity*(maxVolumeStep-minVolumeStep)))
}

// commandFor resolves an action to the command for the platform.
func commandFor(action, goos string, intensity float64) (command, error) {
	step := volumeStep(intensity)

	switch goos {
	case "darwin":
		switch action {
		case "volume-up":
			return osascript(fmt.Sprintf(`set volume output volume ((output volume of (get volume settings)) + %d)`, step)), nil
		case "volume-down":
			return osascript(fmt.Sprintf(`set volume output volume ((output volume of (get volume settings)) - %d)`, step)), nil
		case "volume-mute":
			return osascript(`set volume output muted (not (output muted of (get volume settings)))`), nil
		case "brightness-up":
			return keyCode(144), nil
		case "brightness-down":
			return keyCode(145), nil
		case "media-play-pause":
			return keyCode(100), nil
		case "media-next":
			return keyCode(101), nil
		case "media-prev":
			return keyCode(98), nil
		}
	case "linux":
		switch action {
		case "volume-up":
			return command{"pactl", []string{"set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("+%d%%", step)}}, nil
		case "volume-down":
			return command{"pactl", []string{"set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("-%d%%", step)}}, nil
		case "volume-mute":
			return command{"pactl", []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}}, nil
		case "brightness-up":
			return command{"brightnessctl", []string{"set", "+10%"}}, nil
		case "brightness-down":
			return command{"brightnessctl", []string{"set", "10%-"}}, nil
		case "media-play-pause":
			return command{"playerctl", []string{"play-pause"}}, nil
		case "media-next":
			return command{"playerctl", []string{"next"}}, nil
		case "media-prev":
			return command{"playerctl", []string{"previous"}}, nil
		}
	default:
		return command{}, fmt.Errorf("unsupported platform: %s", goos)
	}
	return command{}, fmt.Errorf("unknown action: %s", action)
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cmd, err := commandFor(req.Action, runtime.GOOS, req.Intensity)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if err := run(cmd); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func run(c command) error {
	output, err := exec.Command(c.name, c.args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
