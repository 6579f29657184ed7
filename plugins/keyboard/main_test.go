package main

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBuildKeystrokeScript(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		modifiers []string
		want      string
	}{
		{
			name: "plain key",
			key:  "a",
			want: `tell application "System Events" to keystroke "a"`,
		},
		{
			name:      "with modifiers",
			key:       "c",
			modifiers: []string{"Cmd", "shift"},
			want:      `tell application "System Events" to keystroke "c" using {command down, shift down}`,
		},
		{
			name:      "unknown modifiers dropped",
			key:       "x",
			modifiers: []string{"hyper"},
			want:      `tell application "System Events" to keystroke "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildKeystrokeScript(tt.key, tt.modifiers); got != tt.want {
				t.Errorf("buildKeystrokeScript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestXdotoolArgs(t *testing.T) {
	got := xdotoolArgs("space", []string{"ctrl", "Alt", "bogus"})
	want := []string{"key", "--clearmodifiers", "ctrl+alt+space"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("xdotoolArgs() = %v, want %v", got, want)
	}
}

func TestParseParams_ParamsOverrideConfig(t *testing.T) {
	req := Request{
		Config: json.RawMessage(`{"key":"a","min_intensity":0.5}`),
		Params: json.RawMessage(`{"key":"b"}`),
	}

	p, err := parseParams(req)
	if err != nil {
		t.Fatalf("parseParams() error = %v", err)
	}
	if p.Key != "b" {
		t.Errorf("Key = %q, want b", p.Key)
	}
	if p.MinIntensity != 0.5 {
		t.Errorf("MinIntensity = %v, want 0.5", p.MinIntensity)
	}
}

func TestHandleKeystroke_NoSideEffects(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{
			name:    "missing key",
			req:     Request{Config: json.RawMessage(`{}`)},
			wantErr: true,
		},
		{
			name:    "bad config",
			req:     Request{Config: json.RawMessage(`{"key":`)},
			wantErr: true,
		},
		{
			name: "below min intensity",
			req: Request{
				Intensity: 0.2,
				Config:    json.RawMessage(`{"key":"a","min_intensity":0.6}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent, err := handleKeystroke(tt.req, "plan9")
			if (err != nil) != tt.wantErr {
				t.Fatalf("handleKeystroke() error = %v, wantErr %v", err, tt.wantErr)
			}
			if sent {
				t.Error("no key should be sent")
			}
		})
	}
}

func TestHandleKeystroke_UnsupportedPlatform(t *testing.T) {
	req := Request{Intensity: 1, Config: json.RawMessage(`{"key":"a"}`)}
	if _, err := handleKeystroke(req, "plan9"); err == nil {
		t.Error("expected error on unsupported platform")
	}
}
