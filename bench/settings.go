package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/irprobe/pkg/bench"
	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/monitor"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createProbeTab(state),
		createMonitorTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func saveConfig(state *appState) bool {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// reconnect restarts the measurement chain so a new device picks up changed settings.
func reconnect(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	handleConnect(state) // disconnect
	handleConnect(state)
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := bench.Ports()
	portOptions := []string{}
	if err == nil {
		for _, port := range ports {
			portOptions = append(portOptions, port.Name)
		}
	}

	currentPort := state.cfg.Serial.Port
	found := false
	for _, opt := range portOptions {
		if opt == currentPort {
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentPort != "" {
		portSelect.SetSelected(currentPort)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			changed := false
			if portSelect.Selected != "" && portSelect.Selected != state.cfg.Serial.Port {
				state.cfg.Serial.Port = portSelect.Selected
				changed = true
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 && baud != state.cfg.Serial.BaudRate {
				state.cfg.Serial.BaudRate = baud
				changed = true
			}
			if !saveConfig(state) {
				return
			}
			if changed && !state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

func parseUint16(s string) (uint16, bool) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// createProbeTab creates the tab with the tuning used by the simulated probe
// and by the bench level decoding.
func createProbeTab(state *appState) *container.TabItem {
	p := &state.cfg.Probe

	irDepthEntry := widget.NewEntry()
	irDepthEntry.SetText(strconv.Itoa(p.IRSamplesAveraged))

	fanDepthEntry := widget.NewEntry()
	fanDepthEntry.SetText(strconv.Itoa(p.FanSamplesAveraged))

	farEntry := widget.NewEntry()
	farEntry.SetText(strconv.Itoa(int(p.FarReading)))

	simpleNearEntry := widget.NewEntry()
	simpleNearEntry.SetText(strconv.Itoa(int(p.SimpleNearReading)))

	saturatedEntry := widget.NewEntry()
	saturatedEntry.SetText(strconv.Itoa(int(p.SaturatedReading)))

	fanOnEntry := widget.NewEntry()
	fanOnEntry.SetText(strconv.Itoa(int(p.FanOnSeconds)))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "IR Samples Averaged", Widget: irDepthEntry},
			{Text: "Fan Samples Averaged", Widget: fanDepthEntry},
			{Text: "Far Reading", Widget: farEntry},
			{Text: "Simple Near Reading", Widget: simpleNearEntry},
			{Text: "Saturated Reading", Widget: saturatedEntry},
			{Text: "Fan Minimum On (s)", Widget: fanOnEntry},
		},
		OnSubmit: func() {
			next := *p
			if v, err := strconv.Atoi(irDepthEntry.Text); err == nil {
				next.IRSamplesAveraged = v
			}
			if v, err := strconv.Atoi(fanDepthEntry.Text); err == nil {
				next.FanSamplesAveraged = v
			}
			if v, ok := parseUint16(farEntry.Text); ok {
				next.FarReading = v
			}
			if v, ok := parseUint16(simpleNearEntry.Text); ok {
				next.SimpleNearReading = v
			}
			if v, ok := parseUint16(saturatedEntry.Text); ok {
				next.SaturatedReading = v
			}
			if v, ok := parseUint16(fanOnEntry.Text); ok {
				next.FanOnSeconds = v
			}

			candidate := config.Config{Probe: next}
			if err := candidate.Settings().Validate(); err != nil {
				dialog.ShowError(fmt.Errorf("invalid probe settings: %w", err), state.window)
				return
			}

			*p = next
			if saveConfig(state) && state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Probe", form)
}

// createMonitorTab creates the event monitor configuration tab.
func createMonitorTab(state *appState) *container.TabItem {
	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Monitor.WindowSeconds))

	minEventEntry := widget.NewEntry()
	minEventEntry.SetText(state.cfg.Monitor.MinEventDuration.String())

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(strconv.Itoa(state.cfg.Bench.AverageSamples))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowSecondsEntry},
			{Text: "Min Event Duration", Widget: minEventEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Monitor.WindowSeconds = ws
			}
			if d, err := time.ParseDuration(minEventEntry.Text); err == nil && d >= 0 {
				state.cfg.Monitor.MinEventDuration = d
			}
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil && avg >= 0 {
				state.cfg.Bench.AverageSamples = avg
			}
			if !saveConfig(state) {
				return
			}

			// The old monitor is still fed by the running chain
			wasConnected := state.device != nil && state.device.IsConnected()
			if wasConnected {
				handleConnect(state)
			}
			state.monitor = monitor.New(state.cfg)
			subscribeScope(state)
			if wasConnected {
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Monitor", form)
}

func parseFloat32(s string) (float32, bool) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, false
	}
	return float32(v), true
}

// createMockTab creates the simulated probe configuration tab.
func createMockTab(state *appState) *container.TabItem {
	m := &state.cfg.Mock

	minDistanceEntry := widget.NewEntry()
	minDistanceEntry.SetText(fmt.Sprintf("%.1f", m.Sweep.MinDistance))

	maxDistanceEntry := widget.NewEntry()
	maxDistanceEntry.SetText(fmt.Sprintf("%.1f", m.Sweep.MaxDistance))

	distancePeriodEntry := widget.NewEntry()
	distancePeriodEntry.SetText(m.Sweep.DistancePeriod.String())

	minTemperatureEntry := widget.NewEntry()
	minTemperatureEntry.SetText(fmt.Sprintf("%.1f", m.Sweep.MinTemperature))

	maxTemperatureEntry := widget.NewEntry()
	maxTemperatureEntry.SetText(fmt.Sprintf("%.1f", m.Sweep.MaxTemperature))

	temperaturePeriodEntry := widget.NewEntry()
	temperaturePeriodEntry.SetText(m.Sweep.TemperaturePeriod.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.1f", m.Plant.Noise))

	reflectivityEntry := widget.NewEntry()
	reflectivityEntry.SetText(fmt.Sprintf("%.2f", m.Plant.Reflectivity))

	highSensitivityCheck := widget.NewCheck("", nil)
	highSensitivityCheck.SetChecked(m.Plant.HighSensitivity)

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(m.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Min Distance (mm)", Widget: minDistanceEntry},
			{Text: "Max Distance (mm)", Widget: maxDistanceEntry},
			{Text: "Distance Period", Widget: distancePeriodEntry},
			{Text: "Min Temperature (C)", Widget: minTemperatureEntry},
			{Text: "Max Temperature (C)", Widget: maxTemperatureEntry},
			{Text: "Temperature Period", Widget: temperaturePeriodEntry},
			{Text: "Noise (counts)", Widget: noiseEntry},
			{Text: "Reflectivity", Widget: reflectivityEntry},
			{Text: "High Sensitivity Strap", Widget: highSensitivityCheck},
			{Text: "Sample Rate", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			if v, ok := parseFloat32(minDistanceEntry.Text); ok {
				m.Sweep.MinDistance = v
			}
			if v, ok := parseFloat32(maxDistanceEntry.Text); ok {
				m.Sweep.MaxDistance = v
			}
			if d, err := time.ParseDuration(distancePeriodEntry.Text); err == nil {
				m.Sweep.DistancePeriod = d
			}
			if v, ok := parseFloat32(minTemperatureEntry.Text); ok {
				m.Sweep.MinTemperature = v
			}
			if v, ok := parseFloat32(maxTemperatureEntry.Text); ok {
				m.Sweep.MaxTemperature = v
			}
			if d, err := time.ParseDuration(temperaturePeriodEntry.Text); err == nil {
				m.Sweep.TemperaturePeriod = d
			}
			if v, ok := parseFloat32(noiseEntry.Text); ok && v >= 0 {
				m.Plant.Noise = v
			}
			if v, ok := parseFloat32(reflectivityEntry.Text); ok && v >= 0 {
				m.Plant.Reflectivity = v
			}
			m.Plant.HighSensitivity = highSensitivityCheck.Checked
			if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil && sr > 0 {
				m.SampleRate = sr
			}
			if saveConfig(state) && state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
