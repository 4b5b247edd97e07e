package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/petal-labs/iris-messages/messages"
)

// Version information set at build time via ldflags.
// Example: go build -ldflags "-X github.com/petal-labs/iris-messages/cli/commands.Version=v1.0.0"
var (
	// Version is the semantic version of the CLI.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

type versionInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildDate  string `json:"buildDate"`
	APIVersion string `json:"apiVersion"`
	GoVersion  string `json:"goVersion"`
	Platform   string `json:"platform"`
}

// currentVersion fills in the module version and VCS revision when the
// binary was installed with go install rather than built with ldflags.
func currentVersion() versionInfo {
	v := versionInfo{
		Version:    Version,
		Commit:     Commit,
		BuildDate:  BuildDate,
		APIVersion: messages.DefaultVersion,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if v.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && v.Commit == "unknown":
			v.Commit = s.Value
		case s.Key == "vcs.time" && v.BuildDate == "unknown":
			v.BuildDate = s.Value
		}
	}
	return v
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version, commit, build date, default API version and Go runtime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion()
			if a.jsonOutput {
				return json.NewEncoder(a.stdout).Encode(v)
			}

			fmt.Fprintf(a.stdout, "iris-messages %s\n", v.Version)
			fmt.Fprintf(a.stdout, "  commit:      %s\n", v.Commit)
			fmt.Fprintf(a.stdout, "  built:       %s\n", v.BuildDate)
			fmt.Fprintf(a.stdout, "  api version: %s\n", v.APIVersion)
			fmt.Fprintf(a.stdout, "  go version:  %s\n", v.GoVersion)
			fmt.Fprintf(a.stdout, "  platform:    %s\n", v.Platform)
			return nil
		},
	}
}
