package cli

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/go-cligolden/internal/jsonutil"
)

const (
	devVersionString = "dev"
	unknownString    = "unknown"
)

// Build information set via ldflags
//
//nolint:gochecknoglobals // Build variables are set via ldflags during compilation
var (
	versionMu sync.RWMutex
	version   = devVersionString
	commit    = unknownString
	buildDate = unknownString
)

// VersionInfo contains version information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

func createVersionCmd(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build details.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := sessionFrom(cmd.Context())
			if err != nil {
				return err
			}

			info := GetVersionInfo()
			if flags.JSON {
				return jsonutil.Write(cmd.OutOrStdout(), info)
			}

			s.out.Infof("go-cligolden %s", info.Version)
			s.out.Infof("Commit:     %s", info.Commit)
			s.out.Infof("Build Date: %s", info.BuildDate)
			s.out.Infof("Go Version: %s", info.GoVersion)
			s.out.Infof("Platform:   %s/%s", info.OS, info.Arch)
			return nil
		},
	}
}

// SetVersionInfo allows setting version information programmatically
// This is useful for testing or when not using ldflags (thread-safe)
func SetVersionInfo(v, c, d string) {
	versionMu.Lock()
	defer versionMu.Unlock()
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	if d != "" {
		buildDate = d
	}
}

// ResetVersionInfo resets the version info to defaults (thread-safe, for testing)
func ResetVersionInfo() {
	versionMu.Lock()
	defer versionMu.Unlock()
	version = devVersionString
	commit = unknownString
	buildDate = unknownString
}

// GetVersionInfo returns complete version information
func GetVersionInfo() VersionInfo {
	versionMu.RLock()
	v, c, d := version, commit, buildDate
	versionMu.RUnlock()

	info, hasBuildInfo := debug.ReadBuildInfo()
	setting := func(key string) string {
		if !hasBuildInfo {
			return ""
		}
		for _, s := range info.Settings {
			if s.Key == key {
				return s.Value
			}
		}
		return ""
	}

	if v == devVersionString || v == "" {
		switch {
		case hasBuildInfo && info.Main.Version != "" && info.Main.Version != "(devel)":
			v = info.Main.Version
		case setting("vcs.revision") != "":
			v = shortHash(setting("vcs.revision"))
		default:
			v = devVersionString
		}
	}

	if c == unknownString || c == "" {
		switch {
		case setting("vcs.revision") != "":
			c = shortHash(setting("vcs.revision"))
		case hasBuildInfo && info.Main.Sum != "":
			// Module sum format: h1:base64hash
			if parts := strings.Split(info.Main.Sum, ":"); len(parts) == 2 {
				c = shortHash(parts[1])
			}
		}
	}

	if d == unknownString || d == "" {
		if vcsTime := setting("vcs.time"); vcsTime != "" {
			d = vcsTime
			if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
				d = t.Format("2006-01-02_15:04:05_UTC")
			}
		}
	}

	return VersionInfo{
		Version:   v,
		Commit:    c,
		BuildDate: d,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func shortHash(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
