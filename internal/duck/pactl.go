package duck

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes pactl invocations. Tests substitute canned output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// execRunner shells out to the pactl binary.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "pactl", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("pactl %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// sinkInput mirrors the fields we need from `pactl -f json list sink-inputs`.
type sinkInput struct {
	Index      int                     `json:"index"`
	Volume     map[string]channelLevel `json:"volume"`
	Properties map[string]string       `json:"properties"`
}

type channelLevel struct {
	Value        int    `json:"value"`
	ValuePercent string `json:"value_percent"`
}

// appName returns the best application label for matching and display.
func (s sinkInput) appName() string {
	if name := s.Properties["application.name"]; name != "" {
		return name
	}
	return s.Properties["media.name"]
}

// volumePercent returns the current volume of the first channel as a
// percentage. Channels are assumed balanced, as pactl sets them.
func (s sinkInput) volumePercent() (int, error) {
	for _, level := range s.Volume {
		pct, err := strconv.Atoi(strings.TrimSuffix(level.ValuePercent, "%"))
		if err != nil {
			return 0, fmt.Errorf("unparseable volume %q: %w", level.ValuePercent, err)
		}
		return pct, nil
	}
	return 0, fmt.Errorf("sink input %d reports no volume channels", s.Index)
}

// listSinkInputs queries PulseAudio for all application playback streams.
func listSinkInputs(ctx context.Context, runner Runner) ([]sinkInput, error) {
	out, err := runner.Run(ctx, "-f", "json", "list", "sink-inputs")
	if err != nil {
		return nil, err
	}

	var inputs []sinkInput
	if err := json.Unmarshal(out, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse pactl output: %w", err)
	}
	return inputs, nil
}

// setVolumePercent sets the volume of a sink input on all channels.
func setVolumePercent(ctx context.Context, runner Runner, index, percent int) error {
	_, err := runner.Run(ctx, "set-sink-input-volume", strconv.Itoa(index), fmt.Sprintf("%d%%", percent))
	return err
}
