package automations

import "os"

// runnerScript is written once to <root>/runner.sh (spec.md §4.7 "Runner
// script"). It takes an automation id as $1, acquires a per-id file lock,
// and either logs a skipped event (lock already held) or runs the matching
// script under bash and logs a success/error event with the truncated
// output, exit code, and duration. json_str wraps a single-line value in a
// JSON string, escaping backslashes and double quotes, without depending on
// an external JSON tool; other control characters are not escaped.
const runnerScript = `#!/bin/sh
set -u
id="$1"
root="$(cd "$(dirname "$0")" && pwd)"
lockdir="$root/locks"
logpath="$root/events.jsonl"
script="$root/scripts/$id.sh"
mkdir -p "$lockdir"
lockfile="$lockdir/$id.lock"

json_str() {
  printf '"%s"' "$(printf '%s' "$1" | sed -e 's/\\/\\\\/g' -e 's/"/\\"/g')"
}
ts() { date -u +%Y-%m-%dT%H:%M:%SZ; }

exec 9>"$lockfile"
if ! flock -n 9; then
  printf '{"id":%s,"event":"skipped","timestamp":%s}\n' "$(json_str "$id")" "$(json_str "$(ts)")" >> "$logpath"
  exit 0
fi

start_ms=$(( $(date +%s%N) / 1000000 ))
output=$(/bin/bash "$script" 2>&1)
code=$?
end_ms=$(( $(date +%s%N) / 1000000 ))
duration=$((end_ms - start_ms))
trimmed=$(printf '%s' "$output" | tr -d '\n' | cut -c1-200)
event="success"
if [ "$code" -ne 0 ]; then
  event="error"
fi
printf '{"id":%s,"event":"%s","timestamp":%s,"exitCode":%d,"durationMs":%d,"output":%s}\n' \
  "$(json_str "$id")" "$event" "$(json_str "$(ts)")" "$code" "$duration" "$(json_str "$trimmed")" >> "$logpath"
exit "$code"
`

func ensureRunnerScript(cfg Config) error {
	return os.WriteFile(cfg.runnerPath(), []byte(runnerScript), 0o755)
}
