package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const profileTemplate = `# Structure Engine Profile

[engine]
# Execution timeframe: 1minute, 5minute, 15minute, 60minute, day
exec_timeframe = "5minute"
# ATR period used to stamp bars before detection
atr_period = 14
# EMA period stamped alongside ATR
ema_period = 20

[store]
# SQLite database for imported bars
# path = "~/.config/structure/structure.db"

[replay]
# Default symbol for replay runs
symbol = "NIFTY"
# Default CSV source (overridden by --csv)
csv_path = ""

[ui]
# Enable colored output
color_enabled = true

# Detectors run in declaration order; dependencies must be declared earlier.

[[detectors]]
type = "swing"
key = "swing_main"
[detectors.params]
mode = "fractal"
left = 2
right = 2

[[detectors]]
type = "trend"
key = "trend_main"
[detectors.depends_on]
swing = "swing_main"

[[detectors]]
type = "market_structure"
key = "ms_main"
[detectors.depends_on]
swing = "swing_main"

[[detectors]]
type = "fibonacci"
key = "fib_main"
[detectors.params]
levels = [0.236, 0.382, 0.5, 0.618, 0.786]
[detectors.depends_on]
swing = "swing_main"

[[detectors]]
type = "zone"
key = "zones_main"
[detectors.params]
width_pct = 0.5
max_active = 3
[detectors.depends_on]
swing = "swing_main"

# Higher timeframes forward-fill between their bar closes.

[[high_tfs]]
name = "1h"
timeframe = "60minute"

[[high_tfs.detectors]]
type = "swing"
key = "swing_htf"
[high_tfs.detectors.params]
left = 2
right = 2

[[high_tfs.detectors]]
type = "trend"
key = "trend_htf"
[high_tfs.detectors.depends_on]
swing = "swing_htf"
`

// writeTemplate creates the config directory and writes the default profile.
func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, "structure.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(profileTemplate), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Created template profile at %s\n", path)
	return nil
}
