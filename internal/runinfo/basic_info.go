// Package runinfo captures CI metadata attached to run summaries and history rows.
package runinfo

import (
	"os"
	"regexp"
	"strings"
)

const overridePrefix = "PARITY_CI"

var githubPullRefPattern = regexp.MustCompile(`^refs/pull/([0-9]+)/`)

// BasicInfo captures CI/run metadata for logs and case reports.
type BasicInfo struct {
	CI          bool   `json:"ci,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Job         string `json:"job,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	PullRequest string `json:"pull_request,omitempty"`
	BuildURL    string `json:"build_url,omitempty"`
}

// FromEnv builds run metadata from environment variables.
// Explicit PARITY_CI_* values take precedence over provider defaults.
func FromEnv() *BasicInfo {
	info := detectProvider()
	explicitCI, explicitAny := applyOverrides(&info)
	normalize(&info, explicitCI)
	if !explicitCI && explicitAny {
		info.CI = true
	}
	if info.IsZero() {
		return nil
	}
	return &info
}

// IsZero reports whether all fields are empty.
func (b BasicInfo) IsZero() bool {
	return b == BasicInfo{}
}

// String renders a short one-line description for log output.
func (b *BasicInfo) String() string {
	if b == nil {
		return "local"
	}
	parts := []string{b.Provider}
	for _, v := range []string{b.Repository, b.Branch, b.Commit, b.RunID} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// fields returns the override suffix for every string field.
func (b *BasicInfo) fields() map[string]*string {
	return map[string]*string{
		"PROVIDER":     &b.Provider,
		"REPOSITORY":   &b.Repository,
		"BRANCH":       &b.Branch,
		"COMMIT":       &b.Commit,
		"JOB":          &b.Job,
		"RUN_ID":       &b.RunID,
		"PULL_REQUEST": &b.PullRequest,
		"BUILD_URL":    &b.BuildURL,
	}
}

func detectProvider() BasicInfo {
	info := BasicInfo{}
	switch {
	case isTruthy(env("GITHUB_ACTIONS")):
		info.CI = true
		info.Provider = "github_actions"
		info.Repository = env("GITHUB_REPOSITORY")
		info.Branch = envFirst("GITHUB_HEAD_REF", "GITHUB_REF_NAME")
		info.Commit = env("GITHUB_SHA")
		info.Job = env("GITHUB_JOB")
		info.RunID = env("GITHUB_RUN_ID")
		info.PullRequest = envFirst("GITHUB_PR_NUMBER")
		if info.PullRequest == "" {
			info.PullRequest = githubPullRequestFromRef(env("GITHUB_REF"))
		}
		serverURL := env("GITHUB_SERVER_URL")
		if serverURL == "" {
			serverURL = "https://github.com"
		}
		if info.Repository != "" && info.RunID != "" {
			info.BuildURL = strings.TrimRight(serverURL, "/") + "/" + info.Repository + "/actions/runs/" + info.RunID
		}
	case isTruthy(env("GITLAB_CI")):
		info.CI = true
		info.Provider = "gitlab_ci"
	case isTruthy(env("BUILDKITE")):
		info.CI = true
		info.Provider = "buildkite"
	case env("JENKINS_URL") != "":
		info.CI = true
		info.Provider = "jenkins"
	case isTruthy(env("CI")):
		info.CI = true
	}

	setIfEmpty(&info.Repository, envFirst("CI_PROJECT_PATH", "BUILD_REPOSITORY_NAME"))
	setIfEmpty(&info.Branch, envFirst("CI_COMMIT_REF_NAME", "BRANCH_NAME", "GIT_BRANCH"))
	setIfEmpty(&info.Commit, envFirst("CI_COMMIT_SHA", "GIT_COMMIT"))
	setIfEmpty(&info.Job, envFirst("CI_JOB_NAME", "JOB_NAME"))
	setIfEmpty(&info.RunID, envFirst("CI_PIPELINE_ID", "BUILD_ID"))
	setIfEmpty(&info.PullRequest, envFirst("CI_MERGE_REQUEST_IID", "PR_NUMBER"))
	setIfEmpty(&info.BuildURL, envFirst("CI_JOB_URL", "BUILD_URL"))
	return info
}

func applyOverrides(info *BasicInfo) (explicitCI bool, explicitAny bool) {
	if v, ok := lookupTrimmed(overridePrefix); ok && v != "" {
		info.CI = isTruthy(v)
		explicitCI = true
	}
	for suffix, dst := range info.fields() {
		if v, ok := lookupTrimmed(overridePrefix + "_" + suffix); ok && v != "" {
			*dst = v
			explicitAny = true
		}
	}
	return explicitCI, explicitAny
}

func normalize(info *BasicInfo, explicitCI bool) {
	for _, dst := range info.fields() {
		*dst = strings.TrimSpace(*dst)
	}
	info.Provider = strings.ToLower(info.Provider)
	info.Branch = strings.TrimPrefix(strings.TrimPrefix(info.Branch, "refs/heads/"), "origin/")
	if !explicitCI && !info.CI && (info.Repository != "" || info.RunID != "" || info.Commit != "") {
		info.CI = true
	}
	if info.CI && info.Provider == "" {
		info.Provider = "generic"
	}
}

func githubPullRequestFromRef(ref string) string {
	m := githubPullRefPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := env(key); value != "" {
			return value
		}
	}
	return ""
}

func setIfEmpty(dst *string, value string) {
	if *dst != "" || value == "" {
		return
	}
	*dst = value
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
