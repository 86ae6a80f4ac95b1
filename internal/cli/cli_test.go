package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/plife507/TRADE-sub002/internal/config"
	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/replay"
	"github.com/plife507/TRADE-sub002/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Engine: config.EngineConfig{
			ExecTimeframe: string(models.Timeframe5Min),
			ATRPeriod:     14,
			EMAPeriod:     20,
		},
		Store: config.StoreConfig{
			Path: filepath.Join(t.TempDir(), "test.db"),
		},
		UI: config.UIConfig{ColorEnabled: false},
		Detectors: []config.DetectorConfig{
			{Type: "swing", Key: "swing_main", Params: map[string]interface{}{"left": 1, "right": 1}},
			{Type: "market_structure", Key: "ms_main", DependsOn: map[string]string{"swing": "swing_main"}},
		},
	}
}

func runCommand(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg, zerolog.Nop())
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeBarsCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	content := "idx,open,high,low,close,volume\n"
	rows := []string{
		"0,105,106,104,105,100",
		"1,100,101,99,100,100",
		"2,110,111,109,110,100",
		"3,104,105,103,104,100",
		"4,114,115,104,114,100",
	}
	for _, r := range rows {
		content += r + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
	return path
}

func TestPathsCommand(t *testing.T) {
	out, err := runCommand(t, testConfig(t), "paths", "--json")
	if err != nil {
		t.Fatalf("paths: %v", err)
	}

	var paths []string
	if err := json.Unmarshal([]byte(out), &paths); err != nil {
		t.Fatalf("paths output is not JSON: %v\n%s", err, out)
	}

	want := map[string]bool{
		"exec.swing_main.version": false,
		"exec.ms_main.bias":       false,
	}
	for _, p := range paths {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, seen := range want {
		if !seen {
			t.Errorf("path %q missing from output", p)
		}
	}
}

func TestReplayCSVCommand(t *testing.T) {
	csvPath := writeBarsCSV(t)

	out, err := runCommand(t, testConfig(t), "replay", "--csv", csvPath, "--json")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	var result struct {
		Symbol string            `json:"symbol"`
		Bars   int               `json:"bars"`
		Final  map[string]string `json:"final"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("replay output is not JSON: %v\n%s", err, out)
	}
	if result.Bars != 5 {
		t.Errorf("replayed %d bars, want 5", result.Bars)
	}
	if result.Symbol != csvPath {
		t.Errorf("source = %q, want %q", result.Symbol, csvPath)
	}
	// Pivots confirm one bar late: low 99@1, high 111@2, low 103@3.
	if got := result.Final["exec.swing_main.version"]; got != "3" {
		t.Errorf("swing version = %s, want 3", got)
	}
}

func TestReplayRequiresSource(t *testing.T) {
	if _, err := runCommand(t, testConfig(t), "replay"); err == nil {
		t.Fatal("replay without --csv or --symbol should fail")
	}
}

func TestImportAndSeriesCommands(t *testing.T) {
	cfg := testConfig(t)
	csvPath := writeBarsCSV(t)

	if _, err := runCommand(t, cfg, "import", csvPath, "--symbol", "BTCUSDT"); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := runCommand(t, cfg, "series", "--json")
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	var series []store.Series
	if err := json.Unmarshal([]byte(out), &series); err != nil {
		t.Fatalf("series output is not JSON: %v\n%s", err, out)
	}
	if len(series) != 1 || series[0].Symbol != "BTCUSDT" || series[0].Bars != 5 {
		t.Fatalf("series = %+v, want one BTCUSDT entry with 5 bars", series)
	}

	// The imported series can be replayed from the store.
	out, err = runCommand(t, cfg, "replay", "--symbol", "BTCUSDT", "--json")
	if err != nil {
		t.Fatalf("replay from store: %v", err)
	}
	var result struct {
		Bars int `json:"bars"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("replay output is not JSON: %v\n%s", err, out)
	}
	if result.Bars != 5 {
		t.Errorf("replayed %d bars from store, want 5", result.Bars)
	}
}

func TestReplayAllCommand(t *testing.T) {
	cfg := testConfig(t)
	csvPath := writeBarsCSV(t)

	for _, symbol := range []string{"BTCUSDT", "ETHUSDT"} {
		if _, err := runCommand(t, cfg, "import", csvPath, "--symbol", symbol); err != nil {
			t.Fatalf("import %s: %v", symbol, err)
		}
	}

	out, err := runCommand(t, cfg, "replay", "--all", "--workers", "2", "--json")
	if err != nil {
		t.Fatalf("replay --all: %v", err)
	}
	var results []struct {
		Symbol string `json:"symbol"`
		Bars   int    `json:"bars"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("replay --all output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("replayed %d series, want 2", len(results))
	}
	for _, r := range results {
		if r.Error != "" || r.Bars != 5 {
			t.Errorf("series %s: bars=%d error=%q, want 5 bars and no error", r.Symbol, r.Bars, r.Error)
		}
	}
}

func TestImportRequiresSymbol(t *testing.T) {
	csvPath := writeBarsCSV(t)
	if _, err := runCommand(t, testConfig(t), "import", csvPath); err == nil {
		t.Fatal("import without a symbol should fail")
	}
}

func TestCollectEvents(t *testing.T) {
	samples := []replay.Sample{
		{Idx: 3, Values: map[string]models.Value{
			"exec.ms_main.bos_this_bar":   models.BoolValue(false),
			"exec.ms_main.choch_this_bar": models.BoolValue(false),
		}},
		{Idx: 4, Values: map[string]models.Value{
			"exec.ms_main.bos_this_bar":   models.BoolValue(true),
			"exec.ms_main.choch_this_bar": models.BoolValue(false),
			"exec.ms_main.bias":           models.StringValue("bullish"),
		}},
		{Idx: 6, Values: map[string]models.Value{
			"exec.ms_main.bos_this_bar":   models.BoolValue(false),
			"exec.ms_main.choch_this_bar": models.BoolValue(true),
			"exec.ms_main.bias":           models.StringValue("bearish"),
		}},
	}

	events := collectEvents(samples)
	if len(events) != 2 {
		t.Fatalf("collected %d events, want 2", len(events))
	}
	if events[0].Idx != 4 || events[0].Event != "bos" || events[0].Bias != "bullish" {
		t.Errorf("first event = %+v, want bos/bullish at bar 4", events[0])
	}
	if events[1].Idx != 6 || events[1].Event != "choch" || events[1].Key != "exec.ms_main" {
		t.Errorf("second event = %+v, want choch at bar 6", events[1])
	}
}
