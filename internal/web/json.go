package web

import (
	"time"

	"github.com/sweeney/espresso-controller/internal/command"
	"github.com/sweeney/espresso-controller/internal/telemetry"
)

// setModeRequest is the request body for POST /mode.
type setModeRequest struct {
	Mode            string `json:"mode"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

// setTargetRequest is the request body for POST /target.
type setTargetRequest struct {
	Target float64 `json:"target"`
}

// setGainsRequest is the request body for POST /gains.
type setGainsRequest struct {
	P float64 `json:"p"`
	I float64 `json:"i"`
	D float64 `json:"d"`
}

// setGainRequest is the request body for POST /gain/{name}.
type setGainRequest struct {
	Value float64 `json:"value"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// modeJSON is the JSON representation of a Mode Controller snapshot.
type modeJSON struct {
	Mode                  string  `json:"mode"`
	Target                float64 `json:"target"`
	EspressoPreference    float64 `json:"espresso_preference"`
	SteamPreference       float64 `json:"steam_preference"`
	SteamRemainingSeconds *int64  `json:"steam_remaining_seconds,omitempty"`
	MachineState          string  `json:"machine_state"`
}

func formatModeJSON(r command.ModeResult) modeJSON {
	mj := modeJSON{
		Mode:               string(r.Mode),
		Target:             r.Target,
		EspressoPreference: r.EspressoPref,
		SteamPreference:    r.SteamPref,
		MachineState:       r.MachineState,
	}
	if r.SteamRemaining != nil {
		secs := int64(r.SteamRemaining.Seconds())
		mj.SteamRemainingSeconds = &secs
	}
	return mj
}

type targetJSON struct {
	Target float64 `json:"target"`
	Mode   string  `json:"mode"`
}

type gainsJSON struct {
	P float64 `json:"p"`
	I float64 `json:"i"`
	D float64 `json:"d"`
}

type singleGainJSON struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type stateJSON struct {
	MachineState string `json:"machine_state"`
	UpdatedAt    string `json:"updated_at"`
	Description  string `json:"description"`
}

func formatStateJSON(r command.StateResult) stateJSON {
	return stateJSON{
		MachineState: r.MachineState,
		UpdatedAt:    r.UpdatedAt,
		Description:  r.Description,
	}
}

type historyRecordJSON struct {
	Temperature float64 `json:"temperature"`
	Output      float64 `json:"output"`
	TimestampMs int64   `json:"timestamp_ms"`
	PIDMode     string  `json:"pid_mode"`
}

type historyJSON struct {
	Records []historyRecordJSON `json:"records"`
}

func formatHistoryJSON(records []telemetry.Record) historyJSON {
	out := make([]historyRecordJSON, 0, len(records))
	for _, r := range records {
		out = append(out, historyRecordJSON{
			Temperature: r.Temperature,
			Output:      r.Output,
			TimestampMs: r.Timestamp,
			PIDMode:     string(r.PIDMode),
		})
	}
	return historyJSON{Records: out}
}

type statusJSON struct {
	Mode  modeJSON  `json:"mode"`
	State stateJSON `json:"state"`
	Now   string    `json:"now"`
}

func formatStatusJSON(m command.ModeResult, s command.StateResult) statusJSON {
	return statusJSON{
		Mode:  formatModeJSON(m),
		State: formatStateJSON(s),
		Now:   time.Now().UTC().Format(time.RFC3339),
	}
}
