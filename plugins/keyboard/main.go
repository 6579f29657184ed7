// Package main provides a keyboard plugin. A struck pad sends a keystroke,
// via AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
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

// KeystrokeParams defines parameters for keystroke and shortcut actions.
// Params override the binding config field by field.
type KeystrokeParams struct {
	Key          string   `json:"key"`
	Modifiers    []string `json:"modifiers"` // command, option, control, shift
	MinIntensity float64  `json:"min_intensity"`
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// xdotoolModifiers maps the same names to xdotool key prefixes.
var xdotoolModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "keystroke", "shortcut":
		sent, err := handleKeystroke(req, runtime.GOOS)
		if err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
		writeSuccessResponse(sent)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
	}
}

// parseParams merges the binding config with per-request params.
func parseParams(req Request) (KeystrokeParams, error) {
	var p KeystrokeParams
	for _, raw := range []json.RawMessage{req.Config, req.Params} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("failed to parse params: %w", err)
		}
	}
	return p, nil
}

// handleKeystroke sends the configured key unless the strike was softer
// than min_intensity. It reports whether a key was sent.
func handleKeystroke(req Request, goos string) (bool, error) {
	p, err := parseParams(req)
	if err != nil {
		return false, err
	}
	if p.Key == "" {
		return false, fmt.Errorf("key is required")
	}
	if req.Intensity < p.MinIntensity {
		return false, nil
	}

	switch goos {
	case "darwin":
		return true, run("osascript", "-e", buildKeystrokeScript(p.Key, p.Modifiers))
	case "linux":
		return true, run("xdotool", xdotoolArgs(p.Key, p.Modifiers)...)
	default:
		return false, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}

	modifierList := strings.Join(appleModifiers, ", ")
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, modifierList)
}

// xdotoolArgs builds the argument list for `xdotool key`.
func xdotoolArgs(key string, modifiers []string) []string {
	combo := make([]string, 0, len(modifiers)+1)
	for _, mod := range modifiers {
		if m, ok := xdotoolModifiers[strings.ToLower(mod)]; ok {
			combo = append(combo, m)
		}
	}
	combo = append(combo, key)
	return []string{"key", "--clearmodifiers", strings.Join(combo, "+")}
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeSuccessResponse(sent bool) {
	data, _ := json.Marshal(map[string]bool{"sent": sent})
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: true,
		Data:    data,
	})
}

// run executes a command and folds its output into the error.
func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
