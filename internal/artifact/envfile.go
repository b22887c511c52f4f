// Package artifact persists what generation produces for each run: the
// .env descriptor exported to commands executed in the run, and a
// per-environment manifest of generated runs.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
)

// EnvFileName is the descriptor written into every run directory.
const EnvFileName = ".env"

// RunIDKey is the reserved key holding the run's own identity.
const RunIDKey = "PTM_RUN"

var quoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	`$`, `\$`,
)

var dollarEscaper = strings.NewReplacer(`$`, `\$`)

// UnencodableValueError is returned for a value the .env reader cannot
// recover: it must be quoted but ends in a backslash or a double quote.
type UnencodableValueError struct {
	Key   string
	Value string
}

func (e *UnencodableValueError) Error() string {
	return fmt.Sprintf("setenv %s=%q cannot be written to %s: a value that needs quoting must not end in a backslash or a double quote", e.Key, e.Value, EnvFileName)
}

// FormatEnv renders vars as KEY="value" lines sorted by key, followed by
// the run identity under RunIDKey. A value ending in a backslash or a
// double quote is written unquoted, since the reader takes a quote after a
// backslash as escaped and strips trailing quotes.
func FormatEnv(vars map[string]string, id string) (string, error) {
	all := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		all[k] = v
	}
	all[RunIDKey] = id

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := all[k]
		switch {
		case !strings.HasSuffix(v, `\`) && !strings.HasSuffix(v, `"`):
			fmt.Fprintf(&b, "%s=\"%s\"\n", k, quoteEscaper.Replace(v))
		case bareSafe(v):
			fmt.Fprintf(&b, "%s=%s\n", k, dollarEscaper.Replace(v))
		default:
			return "", &UnencodableValueError{Key: k, Value: v}
		}
	}
	return b.String(), nil
}

// bareSafe reports whether v survives as an unquoted value: one line, no
// surrounding space, no leading quote and no inline comment.
func bareSafe(v string) bool {
	if v == "" || strings.ContainsAny(v, "\r\n") || strings.ContainsAny(v[:1], "\"'`") {
		return false
	}
	runes := []rune(v)
	if unicode.IsSpace(runes[0]) || unicode.IsSpace(runes[len(runes)-1]) {
		return false
	}
	for i := 1; i < len(runes); i++ {
		if runes[i] == '#' && unicode.IsSpace(runes[i-1]) {
			return false
		}
	}
	return true
}

// WriteEnvFile writes the descriptor into dir, creating it if needed, and
// returns the file path.
func WriteEnvFile(dir string, vars map[string]string, id string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	content, err := FormatEnv(vars, id)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, EnvFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadEnvFile reads a descriptor written by WriteEnvFile.
func ReadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vars, nil
}

// Overlay returns environ with vars applied on top, in KEY=value form.
// Keys already present in environ are replaced in place.
func Overlay(environ []string, vars map[string]string) []string {
	out := make([]string, 0, len(environ)+len(vars))
	applied := make(map[string]bool, len(vars))
	for _, kv := range environ {
		k, _, _ := strings.Cut(kv, "=")
		if v, ok := vars[k]; ok {
			out = append(out, k+"="+v)
			applied[k] = true
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if !applied[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}
