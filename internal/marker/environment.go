package marker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Probe reports the full version of the interpreter markers are evaluated
// against, for example "3.12.4".
type Probe func(ctx context.Context) (string, error)

// InterpreterProbe returns a Probe that prefers the PTM_PYTHON variable
// exported inside a run and otherwise asks the given executable.
func InterpreterProbe(executable string) Probe {
	return func(ctx context.Context) (string, error) {
		if v := os.Getenv("PTM_PYTHON"); v != "" {
			return v, nil
		}
		out, err := exec.CommandContext(ctx, executable, "-c", "import platform; print(platform.python_version())").Output()
		if err != nil {
			return "", fmt.Errorf("probing %s: %w", executable, err)
		}
		return strings.TrimSpace(string(out)), nil
	}
}

// Current builds the marker environment of this process. Platform values are
// always filled in; when the probe fails the python variables are left empty
// and the probe error is returned alongside the environment.
func Current(ctx context.Context, probe Probe) (Environment, error) {
	env := Environment{
		"os_name":                        osName(runtime.GOOS),
		"sys_platform":                   sysPlatform(runtime.GOOS),
		"platform_system":                platformSystem(runtime.GOOS),
		"platform_machine":               platformMachine(runtime.GOOS, runtime.GOARCH),
		"platform_release":               "",
		"platform_version":               "",
		"implementation_name":            "cpython",
		"platform_python_implementation": "CPython",
		"python_version":                 "",
		"python_full_version":            "",
		"implementation_version":         "",
		"extra":                          "",
	}
	if probe == nil {
		return env, nil
	}
	full, err := probe(ctx)
	if err != nil {
		return env, err
	}
	env["python_full_version"] = full
	env["implementation_version"] = full
	env["python_version"] = majorMinor(full)
	return env, nil
}

func majorMinor(v string) string {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return v
	}
	return parts[0] + "." + parts[1]
}

func osName(goos string) string {
	if goos == "windows" {
		return "nt"
	}
	return "posix"
}

func sysPlatform(goos string) string {
	if goos == "windows" {
		return "win32"
	}
	return goos
}

func platformSystem(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	}
	return goos
}

func platformMachine(goos, goarch string) string {
	switch goarch {
	case "amd64":
		if goos == "windows" {
			return "AMD64"
		}
		return "x86_64"
	case "arm64":
		if goos == "linux" {
			return "aarch64"
		}
		return "arm64"
	case "386":
		return "i686"
	}
	return goarch
}
