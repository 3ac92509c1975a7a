package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/irprobe/pkg/bench"
)

func modeLabel(simple bool) string {
	if simple {
		return "Simple"
	}
	return "Differential"
}

// handleModeToggle asks the bench logger to flip the probe's mode-select line.
func handleModeToggle(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}

	state.simple = !state.simple
	if err := state.device.SetSimple(state.simple); err != nil {
		state.simple = !state.simple
		dialog.ShowError(fmt.Errorf("failed to set mode: %w", err), state.window)
		return
	}

	updateModeButton(state.modeBtn, state.simple)
}

// followModeLine tracks the mode-select line reported by the logger and
// updates the UI only when the line actually changes.
func followModeLine(state *appState, samples <-chan bench.RawSample) {
	first := true
	var last bool
	for raw := range samples {
		if !first && raw.Simple == last {
			continue
		}
		first = false
		last = raw.Simple

		simple := raw.Simple
		fyne.Do(func() {
			state.simple = simple
			updateModeButton(state.modeBtn, simple)
		})
	}
}

func updateModeButton(btn *widget.Button, simple bool) {
	btn.SetText(modeLabel(simple))
	if simple {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}
