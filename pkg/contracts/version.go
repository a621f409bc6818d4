package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release of the cleaner.
	Version = "1.0.0"

	// APIVersion is the version of the HTTP API
	APIVersion = "v1"

	// OutputFormat names the encoding of every cleaned file.
	OutputFormat = "csv; utf-8 with bom"

	// RuleSet identifies the normalization rules. It changes whenever a rule
	// change could alter the output for an existing input.
	RuleSet = "prefix-5"
)

// Set with -ldflags "-X campaignclean/pkg/contracts.GitCommit=..." at build time.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version      string `json:"version"`
	APIVersion   string `json:"api_version"`
	RuleSet      string `json:"rule_set"`
	OutputFormat string `json:"output_format"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

// GetVersionInfo returns the build information of the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		APIVersion:   APIVersion,
		RuleSet:      RuleSet,
		OutputFormat: OutputFormat,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetFullVersionString returns a one-line summary for --version output.
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (rules %s, commit %s, built %s, %s %s)",
		info.Version, info.RuleSet, info.GitCommit, info.BuildTime, info.GoVersion, info.Platform)
}
