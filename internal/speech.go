package internal

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// SpeechUnsupportedNotice is shown once when speech input is unavailable
const SpeechUnsupportedNotice = "Speech recognition not supported in this environment."

// SpeechOptions mirrors the voice parameters of a speech engine. 1 is the
// engine default for rate, pitch and volume; an empty voice picks the
// engine's first voice.
type SpeechOptions struct {
	Rate   float64 `yaml:"rate"`
	Pitch  float64 `yaml:"pitch"`
	Volume float64 `yaml:"volume"`
	Voice  string  `yaml:"voice,omitempty"`
}

// DefaultSpeechOptions returns rate, pitch and volume of 1 and the first voice
func DefaultSpeechOptions() SpeechOptions {
	return SpeechOptions{Rate: 1, Pitch: 1, Volume: 1}
}

// Speaker plays text aloud
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Recognizer captures one spoken utterance and returns its transcript
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// commandRunner runs name with args, feeding stdin, and returns stdout
type commandRunner func(ctx context.Context, name string, args []string, stdin string) ([]byte, error)

func execRunner(ctx context.Context, name string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

var ttsCandidates = map[string][]string{
	"darwin": {"say"},
	"linux":  {"espeak-ng", "espeak", "spd-say"},
}

// SelectSpeechCommand picks the text-to-speech engine available on goos
func SelectSpeechCommand(goos string, lookPath func(string) (string, error)) (string, error) {
	candidates, ok := ttsCandidates[goos]
	if !ok {
		candidates = ttsCandidates["linux"]
	}
	for _, name := range candidates {
		if _, err := lookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no text-to-speech engine found (tried %s): %w", strings.Join(candidates, ", "), ErrSpeechUnsupported)
}

// VoiceSpeaker speaks through an external text-to-speech command
type VoiceSpeaker struct {
	Enabled bool
	Options SpeechOptions
	Command string

	run commandRunner
}

// NewVoiceSpeaker creates a speaker. An empty command selects one for the
// current platform when Speak is first called.
func NewVoiceSpeaker(enabled bool, command string, opts SpeechOptions) *VoiceSpeaker {
	return &VoiceSpeaker{
		Enabled: enabled,
		Options: opts,
		Command: command,
		run:     execRunner,
	}
}

// Speak plays text. It does nothing when disabled or when text is empty.
func (s *VoiceSpeaker) Speak(ctx context.Context, text string) error {
	if s == nil || !s.Enabled || strings.TrimSpace(text) == "" {
		return nil
	}

	command := s.Command
	if command == "" {
		selected, err := SelectSpeechCommand(runtime.GOOS, exec.LookPath)
		if err != nil {
			return err
		}
		command = selected
		s.Command = selected
	}

	args := speechArgs(command, s.Options)
	run := s.run
	if run == nil {
		run = execRunner
	}
	if _, err := run(ctx, command, args, text); err != nil {
		return fmt.Errorf("failed to speak: %w", err)
	}
	return nil
}

// speechArgs maps options onto the flags of each engine. Text is always
// passed on stdin so it can never be parsed as a flag.
func speechArgs(command string, opts SpeechOptions) []string {
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.Pitch <= 0 {
		opts.Pitch = 1
	}
	if opts.Volume < 0 {
		opts.Volume = 1
	}

	switch command {
	case "say":
		args := []string{"-r", strconv.Itoa(int(175 * opts.Rate))}
		if opts.Voice != "" {
			args = append(args, "-v", opts.Voice)
		}
		return append(args, "-f", "-")
	case "spd-say":
		args := []string{
			"-r", strconv.Itoa(clamp(int((opts.Rate-1)*100), -100, 100)),
			"-p", strconv.Itoa(clamp(int((opts.Pitch-1)*100), -100, 100)),
			"-i", strconv.Itoa(clamp(int((opts.Volume-1)*100), -100, 100)),
			"-w",
		}
		if opts.Voice != "" {
			args = append(args, "-y", opts.Voice)
		}
		return append(args, "-e")
	default: // espeak, espeak-ng
		args := []string{
			"-s", strconv.Itoa(int(175 * opts.Rate)),
			"-p", strconv.Itoa(clamp(int(50*opts.Pitch), 0, 99)),
			"-a", strconv.Itoa(clamp(int(100*opts.Volume), 0, 200)),
		}
		if opts.Voice != "" {
			args = append(args, "-v", opts.Voice)
		}
		return append(args, "--stdin")
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CommandRecognizer runs a speech-to-text command that records one
// utterance and prints the final transcript on stdout.
type CommandRecognizer struct {
	Command string

	lookPath func(string) (string, error)
	run      commandRunner
}

// NewCommandRecognizer creates a recognizer for command, e.g. "whisper-listen --once"
func NewCommandRecognizer(command string) *CommandRecognizer {
	return &CommandRecognizer{
		Command:  command,
		lookPath: exec.LookPath,
		run:      execRunner,
	}
}

// Available reports whether the configured command can be run
func (r *CommandRecognizer) Available() bool {
	fields := strings.Fields(r.Command)
	if len(fields) == 0 {
		return false
	}
	_, err := r.lookPath(fields[0])
	return err == nil
}

// Listen records and returns the transcript
func (r *CommandRecognizer) Listen(ctx context.Context) (string, error) {
	fields := strings.Fields(r.Command)
	if len(fields) == 0 {
		return "", ErrSpeechUnsupported
	}
	if _, err := r.lookPath(fields[0]); err != nil {
		return "", fmt.Errorf("%s: %w", fields[0], ErrSpeechUnsupported)
	}
	out, err := r.run(ctx, fields[0], fields[1:], "")
	if err != nil {
		return "", fmt.Errorf("failed to capture speech: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
